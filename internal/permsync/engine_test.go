package permsync

import (
	"context"
	"sync"
	"testing"

	"github.com/dropDatabas3/sentinela/internal/catalog"
	"github.com/dropDatabas3/sentinela/internal/store/core"
	"github.com/dropDatabas3/sentinela/internal/store/memory"
	"github.com/stretchr/testify/require"
)

// catálogo chico para tests: all-ops + par LIMITED/FULL + una op suelta
var testCatalog = []catalog.Operation{
	{Name: "allOperations", Object: "system", AccessToAllOps: true},
	{Name: "viewPartnersLimited", Object: "partner", Flag: catalog.FlagLimited},
	{Name: "viewPartnersFull", Object: "partner", Flag: catalog.FlagFull},
	{Name: "addPartner", Object: "partner"},
}

func newEngine(t *testing.T) (*Engine, *memory.Store, string) {
	t.Helper()
	st := memory.New()
	role := core.Role{ID: "role-1", Name: "operator"}
	st.SeedRole(role)
	e := New(st.RolePermissions(), st.Roles(), testCatalog, &MutexLocker{})
	return e, st, role.ID
}

func permsByOp(t *testing.T, st *memory.Store, roleID string) map[string]core.RolePermission {
	t.Helper()
	rows, err := st.RolePermissions().FindByRole(context.Background(), roleID)
	require.NoError(t, err)
	out := map[string]core.RolePermission{}
	for _, p := range rows {
		out[p.Operation] = p
	}
	return out
}

func setPerm(t *testing.T, st *memory.Store, roleID, op string, access, disabled bool) {
	t.Helper()
	for name, p := range permsByOp(t, st, roleID) {
		if name == op {
			p.Access = access
			p.Disabled = disabled
			require.NoError(t, st.RolePermissions().Update(context.Background(), &p))
			return
		}
	}
	t.Fatalf("permission %s not found", op)
}

func TestSyncRole_CreatesMissingRows(t *testing.T) {
	e, st, roleID := newEngine(t)
	require.NoError(t, e.SyncRole(context.Background(), roleID))

	perms := permsByOp(t, st, roleID)
	require.Len(t, perms, len(testCatalog))
	// el resto nace cerrado, y con siblings cerrados la regla 1 baja la maestra
	require.False(t, perms["allOperations"].Access)
	require.False(t, perms["addPartner"].Access)
	require.False(t, perms["viewPartnersLimited"].Access)
}

func TestReconcile_MasterRowInheritsCatalogDefault(t *testing.T) {
	e, st, roleID := newEngine(t)
	// solo la fase de reconciliación: el default del catálogo queda intacto
	// hasta que corra el rule engine
	require.NoError(t, e.reconcile(context.Background(), roleID))

	perms := permsByOp(t, st, roleID)
	require.True(t, perms["allOperations"].Access)
	require.False(t, perms["addPartner"].Access)
}

func TestSyncRole_RemovesDriftedRows(t *testing.T) {
	e, st, roleID := newEngine(t)
	ctx := context.Background()
	require.NoError(t, e.SyncRole(ctx, roleID))

	// fila huérfana de un catálogo anterior
	require.NoError(t, st.RolePermissions().Create(ctx, &core.RolePermission{
		RoleID: roleID, Operation: "legacyOperation", Access: true,
	}))

	require.NoError(t, e.SyncRole(ctx, roleID))
	perms := permsByOp(t, st, roleID)
	require.Len(t, perms, len(testCatalog))
	require.NotContains(t, perms, "legacyOperation")
}

func TestSyncRole_ConcurrentRunsYieldOneRowPerOp(t *testing.T) {
	e, st, roleID := newEngine(t)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = e.SyncRole(context.Background(), roleID)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	rows, err := st.RolePermissions().FindByRole(context.Background(), roleID)
	require.NoError(t, err)
	require.Len(t, rows, len(testCatalog), "no duplicates, no destroyed rows")
	seen := map[string]bool{}
	for _, p := range rows {
		require.False(t, seen[p.Operation], "duplicate row for %s", p.Operation)
		seen[p.Operation] = true
	}
}

func TestSyncAll(t *testing.T) {
	e, st, _ := newEngine(t)
	st.SeedRole(core.Role{ID: "role-2", Name: "viewer"})

	require.NoError(t, e.SyncAll(context.Background()))
	require.Len(t, permsByOp(t, st, "role-1"), len(testCatalog))
	require.Len(t, permsByOp(t, st, "role-2"), len(testCatalog))
}
