// Package session orquesta sign-in, refresh y sign-out.
package session

import (
	"context"
	"errors"
	"net/http"

	"github.com/dropDatabas3/sentinela/internal/audit"
	ihttp "github.com/dropDatabas3/sentinela/internal/http"
	dto "github.com/dropDatabas3/sentinela/internal/http/dto/session"
	"github.com/dropDatabas3/sentinela/internal/http/middlewares"
	"github.com/dropDatabas3/sentinela/internal/lockout"
	"github.com/dropDatabas3/sentinela/internal/observability/logger"
	"github.com/dropDatabas3/sentinela/internal/rate"
	"github.com/dropDatabas3/sentinela/internal/security/password"
	"github.com/dropDatabas3/sentinela/internal/store/core"
	"github.com/dropDatabas3/sentinela/internal/token"
)

// Deps contiene las dependencias del controller.
type Deps struct {
	Users   core.UserRepository
	Limiter *rate.Scoped
	Lockout *lockout.Policy
	Tokens  *token.Service
	Pepper  string
}

type Controller struct {
	deps Deps
}

func NewController(deps Deps) *Controller {
	return &Controller{deps: deps}
}

// SignIn maneja POST /v1/session/sign-in.
func (c *Controller) SignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SignIn"))

	var in dto.SignInRequest
	if !ihttp.ReadJSON(w, r, &in) {
		ihttp.CountSignIn("error")
		return
	}

	// Paso 0: normalización
	uname := rate.NormalizeUserName(in.UserName)
	if uname == "" || in.Password == "" {
		ihttp.WriteError(w, http.StatusUnprocessableEntity, "validation", "userName y password son requeridos", ihttp.CodeValidation)
		ihttp.CountSignIn("error")
		return
	}
	ip := middlewares.ClientIP(r)
	ua := r.UserAgent()

	// Paso 1: scopes de rate limit en orden; el primero agotado corta
	keys := map[rate.Scope]string{
		rate.ScopeIP:        ip,
		rate.ScopeUserName:  uname,
		rate.ScopeUserAgent: ua,
		rate.ScopeGlobal:    "",
	}
	for _, scope := range rate.LoginScopes {
		res := c.deps.Limiter.ConsumeOrInfo(ctx, scope, keys[scope])
		rate.AttachLimitHeaders(w, c.deps.Limiter.Budget(scope), res)
		if !res.Allowed {
			log.Info("sign-in throttled", logger.Scope(string(scope)), logger.ClientIP(ip))
			ihttp.CountThrottled(string(scope))
			ihttp.CountSignIn("throttled")
			ihttp.WriteThrottled(w, rate.RetryAfterSeconds(res))
			return
		}
	}

	// Paso 2: buscar usuario. Si no existe igual se verifica contra el
	// dummy hash para que el timing no delate la existencia de la cuenta.
	u, err := c.deps.Users.FindByUserName(ctx, uname)
	if err != nil {
		if !core.IsNotFound(err) {
			log.Error("user lookup failed", logger.Err(err))
			ihttp.WriteError(w, http.StatusInternalServerError, "internal_error", "", ihttp.CodeInternal)
			ihttp.CountSignIn("error")
			return
		}
		_ = password.Verify(password.DummyHash, c.deps.Pepper, in.Password)
		c.unauthorized(w, ctx, uname, ip, ua, "unknown_user")
		return
	}

	// Paso 3: gates de estado, antes de verificar el password
	switch c.deps.Lockout.Status(u) {
	case lockout.StateLocked:
		log.Info("sign-in rejected: locked", logger.UserID(u.ID))
		ihttp.CountSignIn("locked")
		ihttp.WriteError(w, http.StatusLocked, "account_locked", "cuenta bloqueada temporalmente", ihttp.CodeLocked)
		return
	case lockout.StateRestricted:
		log.Info("sign-in rejected: restricted", logger.UserID(u.ID))
		ihttp.CountSignIn("restricted")
		ihttp.WriteError(w, http.StatusForbidden, "account_restricted", "cuenta restringida", ihttp.CodeRestricted)
		return
	}

	// Paso 4: verificar password
	if !password.Verify(u.PasswordHash, c.deps.Pepper, in.Password) {
		if _, err := c.deps.Lockout.RegisterFailure(ctx, u); err != nil {
			log.Error("lockout update failed", logger.Err(err))
		}
		c.unauthorized(w, ctx, uname, ip, ua, "bad_password")
		return
	}

	// Paso 5: éxito. Limpiar lockout y los scopes que castigan al dueño
	// legítimo por intentos ajenos previos.
	if err := c.deps.Lockout.ResetAfterSuccess(ctx, u); err != nil {
		log.Error("lockout reset failed", logger.Err(err))
	}
	c.deps.Limiter.ResetKey(ctx, rate.ScopeUserName, uname)
	c.deps.Limiter.ResetKey(ctx, rate.ScopeIP, ip)

	// Paso 6: emitir tokens
	pair, err := c.deps.Tokens.Mint(ctx, u, token.Meta{UserAgent: ua, IP: ip})
	if err != nil {
		// usuario sin rol es corrupción de datos, no un 4xx
		log.Error("mint failed", logger.UserID(u.ID), logger.Err(err))
		ihttp.CountSignIn("error")
		ihttp.WriteError(w, http.StatusInternalServerError, "internal_error", "", ihttp.CodeInternal)
		return
	}

	http.SetCookie(w, c.deps.Tokens.RefreshCookie(pair))
	ihttp.CountSignIn("ok")
	log.Info("sign-in ok", logger.UserID(u.ID), logger.UserName(u.UserName))
	ihttp.WriteJSON(w, http.StatusOK, dto.SignInResponse{
		User:      dto.PublicUser{ID: u.ID, UserName: u.UserName, Role: u.RoleName},
		Token:     pair.AccessToken,
		ExpiresIn: int64(c.deps.Tokens.AccessTTL.Seconds()),
	})
}

// unauthorized responde el 401 genérico de credenciales inválidas y emite
// el evento de auditoría. El motivo real no viaja al cliente.
func (c *Controller) unauthorized(w http.ResponseWriter, ctx context.Context, uname, ip, ua, reason string) {
	audit.AuthFail(ctx, uname, ip, ua, reason)
	ihttp.CountSignIn("invalid")
	ihttp.WriteError(w, http.StatusUnauthorized, "unauthorized", "credenciales inválidas", ihttp.CodeUnauthorized)
}

// Refresh maneja POST /v1/session/refresh. Cualquier falla colapsa al
// mismo 401 opaco: nada distingue expirado, reusado, adulterado o jti
// desconocido.
func (c *Controller) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie(c.deps.Tokens.CookieName)
	if err != nil || cookie.Value == "" {
		ihttp.WriteError(w, http.StatusUnauthorized, "unauthorized", "", ihttp.CodeUnauthorized)
		return
	}

	pair, err := c.deps.Tokens.Rotate(ctx, cookie.Value)
	if err != nil {
		if !errors.Is(err, token.ErrUnauthorized) {
			logger.From(ctx).Warn("refresh rotation failed", logger.Err(err))
		}
		ihttp.WriteError(w, http.StatusUnauthorized, "unauthorized", "", ihttp.CodeUnauthorized)
		return
	}

	http.SetCookie(w, c.deps.Tokens.RefreshCookie(pair))
	ihttp.WriteJSON(w, http.StatusOK, dto.RefreshResponse{
		AccessToken: pair.AccessToken,
		ExpiresIn:   int64(c.deps.Tokens.AccessTTL.Seconds()),
	})
}

// SignOut maneja POST /v1/session/sign-out: revoca la fila del refresh y
// limpia la cookie. Idempotente, siempre 204.
func (c *Controller) SignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(c.deps.Tokens.CookieName); err == nil && cookie.Value != "" {
		c.deps.Tokens.Revoke(r.Context(), cookie.Value)
	}
	http.SetCookie(w, c.deps.Tokens.ClearCookie())
	w.WriteHeader(http.StatusNoContent)
}
