// Package audit emite eventos de auditoría fire-and-forget.
// La persistencia/consulta del audit log es un colaborador externo;
// acá solo se publica el evento estructurado.
package audit

import (
	"context"

	"github.com/dropDatabas3/sentinela/internal/observability/logger"
	"go.uber.org/zap"
)

// Event escribe un evento de auditoría. Nunca falla hacia el caller.
func Event(ctx context.Context, event string, fields map[string]any) {
	zf := make([]zap.Field, 0, len(fields)+1)
	zf = append(zf, zap.String("audit_event", event))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	logger.From(ctx).Named("audit").Info("audit", zf...)
}

// AuthFail registra un intento de autenticación fallido.
func AuthFail(ctx context.Context, userName, ip, userAgent, reason string) {
	Event(ctx, "auth.fail", map[string]any{
		"user_name":  userName,
		"ip":         ip,
		"user_agent": userAgent,
		"reason":     reason,
	})
}
