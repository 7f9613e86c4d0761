package permsync

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/sentinela/internal/catalog"
	"github.com/dropDatabas3/sentinela/internal/observability/logger"
	"github.com/dropDatabas3/sentinela/internal/store/core"
)

// ApplyAllOpsRule evalúa los invariantes cruzados sobre los valores
// actuales de las filas del rol y emite un update solo por fila que
// efectivamente cambia. Idempotente: una segunda pasada sobre estado sin
// cambios produce cero escrituras. Retorna la cantidad de updates emitidos.
//
// Reglas:
//  1. all-ops access=true con algún otro permiso access=false fuerza
//     all-ops access=false.
//  2. LIMITED.access=false fuerza FULL {access=false, disabled=true}:
//     no hay vista completa sin el baseline limitado. LIMITED queda
//     habilitado.
//  3. LIMITED.access=true y FULL.access=false dejan ambos seleccionables
//     (disabled=false).
//  4. FULL.access=true (solo alcanzable con LIMITED.access=true) deja
//     FULL.disabled=false y LIMITED.disabled=true: el limitado queda
//     redundante y bloqueado.
func (e *Engine) ApplyAllOpsRule(ctx context.Context, roleID string) (int, error) {
	log := logger.From(ctx).Named("permsync").With(logger.RoleID(roleID))

	rows, err := e.Perms.FindByRole(ctx, roleID)
	if err != nil {
		return 0, fmt.Errorf("permsync: load permissions: %w", err)
	}
	byOp := make(map[string]*core.RolePermission, len(rows))
	for i := range rows {
		byOp[rows[i].Operation] = &rows[i]
	}

	writes := 0
	emit := func(p *core.RolePermission, access, disabled bool, rule string) error {
		if p == nil || (p.Access == access && p.Disabled == disabled) {
			return nil
		}
		p.Access = access
		p.Disabled = disabled
		if err := e.Perms.Update(ctx, p); err != nil {
			return fmt.Errorf("permsync: update %s: %w", p.Operation, err)
		}
		writes++
		log.Debug("permission adjusted", logger.String("operation", p.Operation),
			logger.Rule(rule))
		return nil
	}

	// Regla 1: all-ops no puede afirmar "todo" si algo está denegado
	if allOps := catalog.AllOps(e.Catalog); allOps != nil {
		if master := byOp[allOps.Name]; master != nil && master.Access {
			for _, p := range rows {
				if p.Operation != allOps.Name && !p.Access {
					if err := emit(master, false, master.Disabled, "all-ops-demote"); err != nil {
						return writes, err
					}
					break
				}
			}
		}
	}

	// Reglas 2-4: pares LIMITED/FULL por objeto
	for _, pair := range catalog.Pairs(e.Catalog) {
		lim := byOp[pair.Limited]
		full := byOp[pair.Full]
		if lim == nil || full == nil {
			continue
		}
		switch {
		case !lim.Access:
			// sin baseline limitado no se puede otorgar la vista completa
			if err := emit(full, false, true, "full-requires-limited"); err != nil {
				return writes, err
			}
			if err := emit(lim, lim.Access, false, "limited-selectable"); err != nil {
				return writes, err
			}
		case full.Access:
			// full otorgado: limited queda redundante y bloqueado
			if err := emit(full, true, false, "full-granted"); err != nil {
				return writes, err
			}
			if err := emit(lim, true, true, "limited-locked"); err != nil {
				return writes, err
			}
		default:
			// limited sí, full no: ambos seleccionables
			if err := emit(full, false, false, "both-selectable"); err != nil {
				return writes, err
			}
			if err := emit(lim, true, false, "both-selectable"); err != nil {
				return writes, err
			}
		}
	}

	return writes, nil
}
