package rate

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
)

// Scope identifica un presupuesto independiente del login.
type Scope string

const (
	ScopeIP        Scope = "ip"
	ScopeUserName  Scope = "uname"
	ScopeUserAgent Scope = "ua"
	ScopeGlobal    Scope = "global"
)

// LoginScopes es el orden de consumo en un intento de sign-in: el primer
// scope agotado corta.
var LoginScopes = []Scope{ScopeIP, ScopeUserName, ScopeUserAgent, ScopeGlobal}

// Scoped reparte un Limiter entre scopes con presupuestos propios.
// ConsumeOrInfo nunca retorna error: un backend caído es fail-open para
// throttling (la autenticación en sí nunca se resuelve acá).
type Scoped struct {
	lim     Limiter
	budgets map[Scope]Budget
	enabled bool
}

func NewScoped(lim Limiter, budgets map[Scope]Budget, enabled bool) *Scoped {
	return &Scoped{lim: lim, budgets: budgets, enabled: enabled}
}

// NormalizeUserName es la normalización canónica para el scope de username.
func NormalizeUserName(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// Budget retorna el presupuesto configurado para un scope.
func (s *Scoped) Budget(scope Scope) Budget {
	return s.budgets[scope]
}

// ConsumeOrInfo consume un punto del scope y retorna el estado.
// Deshabilitado o sin presupuesto válido: siempre permite.
func (s *Scoped) ConsumeOrInfo(ctx context.Context, scope Scope, key string) Result {
	b, ok := s.budgets[scope]
	if !s.enabled || !ok || b.Points <= 0 || b.Window <= 0 {
		return Result{Allowed: true, Remaining: math.MaxInt64}
	}
	res, err := s.lim.Allow(ctx, s.key(scope, key), b)
	if err != nil {
		// fail-open: infraestructura caída no bloquea el login
		return Result{Allowed: true, Remaining: int64(b.Points)}
	}
	return res
}

// ResetKey limpia el consumo de una key (tras un login verificado, para no
// castigar al dueño legítimo por intentos fallidos ajenos).
func (s *Scoped) ResetKey(ctx context.Context, scope Scope, key string) {
	_ = s.lim.Reset(ctx, s.key(scope, key))
}

func (s *Scoped) key(scope Scope, key string) string {
	if scope == ScopeGlobal {
		key = "all"
	}
	return string(scope) + ":" + strings.ReplaceAll(key, " ", "_")
}

// AttachLimitHeaders setea los headers estándar de rate limit; con la key
// bloqueada agrega Retry-After en segundos (redondeado hacia arriba).
func AttachLimitHeaders(w http.ResponseWriter, b Budget, res Result) {
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", b.Points))
	remaining := res.Remaining
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
	if !res.Allowed && res.RetryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", RetryAfterSeconds(res)))
	}
}

// RetryAfterSeconds convierte RetryAfter a segundos enteros (mínimo 1).
func RetryAfterSeconds(res Result) int {
	sec := int(math.Ceil(res.RetryAfter.Seconds()))
	if sec < 1 {
		sec = 1
	}
	return sec
}
