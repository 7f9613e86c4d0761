// Package rate implementa presupuestos fixed-window con bloqueo por exceso.
//
// Backends: memoria (go-cache) y Redis (INCR + EXPIRE). El wrapper Insured
// degrada a memoria si Redis no responde: el throttling falla "open", nunca
// bloquea un login por una falla de infraestructura.
package rate

import (
	"context"
	"time"
)

// Budget define el presupuesto de un scope: Points consumos por Window;
// agotado el presupuesto, la key queda bloqueada por Block.
type Budget struct {
	Points int
	Window time.Duration
	Block  time.Duration
}

// Result es el estado de una key tras un consumo.
type Result struct {
	Allowed   bool
	Remaining int64
	// RetryAfter > 0 cuando la key está bloqueada: cuánto falta para el
	// próximo intento permitido.
	RetryAfter time.Duration
}

// Limiter es el contrato de un backend.
type Limiter interface {
	Allow(ctx context.Context, key string, b Budget) (Result, error)
	Reset(ctx context.Context, key string) error
}
