// Package permsync reconcilia las filas de permisos de cada rol contra el
// catálogo estático de operaciones y mantiene los invariantes cruzados
// (all-ops, pares LIMITED/FULL).
//
// No está en el hot path de requests: corre al boot, ante cambios del
// catálogo o bajo demanda por rol.
package permsync

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/sentinela/internal/catalog"
	"github.com/dropDatabas3/sentinela/internal/observability/logger"
	"github.com/dropDatabas3/sentinela/internal/store/core"
)

type Engine struct {
	Perms   core.RolePermissionRepository
	Roles   core.RoleRepository
	Catalog []catalog.Operation
	Locker  Locker
}

func New(perms core.RolePermissionRepository, roles core.RoleRepository, ops []catalog.Operation, locker Locker) *Engine {
	return &Engine{Perms: perms, Roles: roles, Catalog: ops, Locker: locker}
}

// SyncRole reconcilia las filas del rol contra el catálogo y luego aplica
// el rule engine. Toda la fase de reconciliación corre bajo el lock global;
// las reglas corren fuera (solo tocan filas recién confirmadas).
//
// Errores de store se propagan: un sync parcial no debe pasar por éxito.
func (e *Engine) SyncRole(ctx context.Context, roleID string) error {
	if err := e.reconcile(ctx, roleID); err != nil {
		return err
	}
	_, err := e.ApplyAllOpsRule(ctx, roleID)
	return err
}

func (e *Engine) reconcile(ctx context.Context, roleID string) error {
	log := logger.From(ctx).Named("permsync").With(logger.RoleID(roleID))

	unlock, err := e.Locker.Lock(ctx)
	if err != nil {
		return fmt.Errorf("permsync: lock: %w", err)
	}
	defer unlock()

	existing, err := e.Perms.FindByRole(ctx, roleID)
	if err != nil {
		return fmt.Errorf("permsync: load permissions: %w", err)
	}
	byOp := make(map[string]*core.RolePermission, len(existing))
	for i := range existing {
		byOp[existing[i].Operation] = &existing[i]
	}

	created := 0
	for _, op := range e.Catalog {
		if _, ok := byOp[op.Name]; ok {
			continue
		}
		row := &core.RolePermission{
			RoleID:    roleID,
			Operation: op.Name,
			// la fila maestra arranca con el default del catálogo;
			// el resto nace sin acceso
			Access:   op.AccessToAllOps,
			Disabled: false,
		}
		if err := e.Perms.Create(ctx, row); err != nil {
			return fmt.Errorf("permsync: create %s: %w", op.Name, err)
		}
		created++
	}

	// Limpieza de drift: filas cuya operación ya no está en el catálogo
	removed := 0
	for _, p := range existing {
		if catalog.Contains(e.Catalog, p.Operation) {
			continue
		}
		if err := e.Perms.Destroy(ctx, p.ID); err != nil {
			return fmt.Errorf("permsync: destroy %s: %w", p.Operation, err)
		}
		removed++
	}

	if created > 0 || removed > 0 {
		log.Info("role permissions reconciled",
			logger.Count(created), logger.Int("removed", removed))
	}
	return nil
}

// SyncAll corre SyncRole para cada rol. Pensado para boot/migración.
func (e *Engine) SyncAll(ctx context.Context) error {
	roles, err := e.Roles.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("permsync: load roles: %w", err)
	}
	for _, r := range roles {
		if err := e.SyncRole(ctx, r.ID); err != nil {
			return fmt.Errorf("permsync: role %s: %w", r.ID, err)
		}
	}
	logger.From(ctx).Named("permsync").Info("all roles synced", logger.Count(len(roles)))
	return nil
}
