package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar para mantener nombres consistentes entre capas.

// HTTP

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

func DurationMs(v time.Duration) zap.Field {
	return zap.Int64("duration_ms", v.Milliseconds())
}

// Negocio

func UserID(v string) zap.Field   { return zap.String("user_id", v) }
func UserName(v string) zap.Field { return zap.String("user_name", v) }
func RoleID(v string) zap.Field   { return zap.String("role_id", v) }
func JTI(v string) zap.Field      { return zap.String("jti", v) }
func Scope(v string) zap.Field    { return zap.String("scope", v) }
func Rule(v string) zap.Field     { return zap.String("rule", v) }

// Sistema

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }
func Count(v int) zap.Field        { return zap.Int("count", v) }
func Key(v string) zap.Field       { return zap.String("key", v) }

// Genéricos

func String(key, v string) zap.Field { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
