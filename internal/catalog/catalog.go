// Package catalog define el catálogo estático de operaciones del panel admin.
// Es process-wide y de solo lectura en runtime: se carga al arranque y el
// PermissionSyncEngine reconcilia las filas de permisos de cada rol contra él.
package catalog

// Flag distingue los pares de vista por objeto administrado.
type Flag string

const (
	FlagNone    Flag = ""
	FlagLimited Flag = "LIMITED"
	FlagFull    Flag = "FULL"
)

// Operation es una entrada del catálogo.
type Operation struct {
	// Name es el identificador único de la operación (clave natural de la
	// fila de permiso).
	Name string
	// Object agrupa operaciones por entidad administrada; los pares
	// LIMITED/FULL se buscan dentro del mismo Object.
	Object string
	// AccessToAllOps marca la fila maestra "todas las operaciones".
	AccessToAllOps bool
	// Flag marca vistas pareadas LIMITED/FULL.
	Flag Flag
}

// Default es el catálogo del sistema. El orden es estable: los tests y el
// sync dependen de iterarlo determinísticamente.
var Default = []Operation{
	{Name: "allOperations", Object: "system", AccessToAllOps: true},

	{Name: "viewPartnersLimited", Object: "partner", Flag: FlagLimited},
	{Name: "viewPartnersFull", Object: "partner", Flag: FlagFull},
	{Name: "addPartner", Object: "partner"},
	{Name: "editPartner", Object: "partner"},
	{Name: "deletePartner", Object: "partner"},

	{Name: "viewToponymsLimited", Object: "toponym", Flag: FlagLimited},
	{Name: "viewToponymsFull", Object: "toponym", Flag: FlagFull},
	{Name: "addToponym", Object: "toponym"},
	{Name: "editToponym", Object: "toponym"},

	{Name: "viewUsersLimited", Object: "user", Flag: FlagLimited},
	{Name: "viewUsersFull", Object: "user", Flag: FlagFull},
	{Name: "addUser", Object: "user"},
	{Name: "editUser", Object: "user"},
	{Name: "blockUser", Object: "user"},

	{Name: "viewAuditLog", Object: "audit"},
	{Name: "downloadReports", Object: "report"},
}

// AllOps retorna la entrada maestra del catálogo, o nil si no existe.
func AllOps(ops []Operation) *Operation {
	for i := range ops {
		if ops[i].AccessToAllOps {
			return &ops[i]
		}
	}
	return nil
}

// Pairs retorna los pares LIMITED/FULL por objeto presentes en el catálogo.
// Solo cuenta el par si ambas vistas existen.
type Pair struct {
	Object  string
	Limited string // operation name de la vista LIMITED
	Full    string // operation name de la vista FULL
}

func Pairs(ops []Operation) []Pair {
	limited := map[string]string{}
	full := map[string]string{}
	order := []string{}
	for _, op := range ops {
		switch op.Flag {
		case FlagLimited:
			if _, seen := limited[op.Object]; !seen {
				order = append(order, op.Object)
			}
			limited[op.Object] = op.Name
		case FlagFull:
			full[op.Object] = op.Name
		}
	}
	var out []Pair
	for _, obj := range order {
		if f, ok := full[obj]; ok {
			out = append(out, Pair{Object: obj, Limited: limited[obj], Full: f})
		}
	}
	return out
}

// Contains indica si el catálogo tiene una operación con ese nombre.
func Contains(ops []Operation, name string) bool {
	for _, op := range ops {
		if op.Name == name {
			return true
		}
	}
	return false
}
