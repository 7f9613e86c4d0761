package rate

import (
	"context"

	"github.com/dropDatabas3/sentinela/internal/observability/logger"
)

// InsuredLimiter envuelve un backend primario (Redis) con un limiter de
// seguro en memoria. Si el primario falla, el consumo se registra en el
// seguro en lugar de fallar el request: una caída de Redis degrada el
// throttling a per-proceso, no tumba el login.
type InsuredLimiter struct {
	primary   Limiter
	insurance Limiter
}

func NewInsuredLimiter(primary, insurance Limiter) *InsuredLimiter {
	return &InsuredLimiter{primary: primary, insurance: insurance}
}

func (l *InsuredLimiter) Allow(ctx context.Context, key string, b Budget) (Result, error) {
	res, err := l.primary.Allow(ctx, key, b)
	if err == nil {
		return res, nil
	}
	logger.From(ctx).Named("rate").Warn("primary limiter failed, using insurance",
		logger.Key(key), logger.Err(err))
	return l.insurance.Allow(ctx, key, b)
}

func (l *InsuredLimiter) Reset(ctx context.Context, key string) error {
	// best-effort en ambos: el seguro puede tener consumos propios
	perr := l.primary.Reset(ctx, key)
	if ierr := l.insurance.Reset(ctx, key); ierr != nil && perr == nil {
		perr = ierr
	}
	return perr
}

var _ Limiter = (*InsuredLimiter)(nil)
