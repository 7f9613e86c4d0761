package core

import "time"

// User es la cuenta del panel admin. Creada por user-management (externo);
// acá solo mutan sus campos de lockout (lockout.Policy) y lectura para login.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	RoleID       string
	RoleName     string

	// Estado de lockout. failedLoginCount se resetea solo en éxito o al
	// disparar el lock; IsRestricted es sticky (intervención manual).
	FailedLoginCount int
	LockedUntil      *time.Time
	BruteWindowStart *time.Time
	BruteStrikes     int
	IsRestricted     bool
	RestrictionCause string
	RestrictedAt     *time.Time
}

// RefreshToken es una fila por sesión activa; ID = jti del token firmado.
// Se consume (destroy) al rotar o al cerrar sesión.
type RefreshToken struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	UserAgent string
	IP        string
	CreatedAt time.Time
}

// Role es un rol del sistema. El catálogo de operaciones vive aparte
// (internal/catalog); acá solo la identidad del rol.
type Role struct {
	ID   string
	Name string
}

// RolePermission es una fila por (rol, operación del catálogo).
// Solo el PermissionSyncEngine crea/borra filas; access/disabled los muta
// el rule engine o una edición admin.
type RolePermission struct {
	ID        string
	RoleID    string
	Operation string
	Access    bool
	Disabled  bool
}
