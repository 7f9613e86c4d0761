package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ihttp "github.com/dropDatabas3/sentinela/internal/http"
	"github.com/dropDatabas3/sentinela/internal/lockout"
	"github.com/dropDatabas3/sentinela/internal/rate"
	"github.com/dropDatabas3/sentinela/internal/security/password"
	"github.com/dropDatabas3/sentinela/internal/store/core"
	"github.com/dropDatabas3/sentinela/internal/store/memory"
	"github.com/dropDatabas3/sentinela/internal/token"
	"github.com/stretchr/testify/require"
)

const (
	testPepper   = "test-pepper"
	testPassword = "correct horse"
)

// params chicos: los tests hashean muchas veces
var testParams = password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

type env struct {
	srv     *httptest.Server
	store   *memory.Store
	tokens  *token.Service
	lockout *lockout.Policy
	user    *core.User
}

func newEnv(t *testing.T, unameBudget rate.Budget) *env {
	t.Helper()
	st := memory.New()

	phc, err := password.Hash(testParams, testPepper, testPassword)
	require.NoError(t, err)
	u := &core.User{
		UserName:     "admin",
		PasswordHash: phc,
		RoleID:       "r1",
		RoleName:     "superadmin",
	}
	require.NoError(t, st.Users().Create(context.Background(), u))

	budgets := map[rate.Scope]rate.Budget{
		rate.ScopeIP:        {Points: 1000, Window: time.Minute, Block: time.Minute},
		rate.ScopeUserName:  unameBudget,
		rate.ScopeUserAgent: {Points: 1000, Window: time.Minute, Block: time.Minute},
		rate.ScopeGlobal:    {Points: 1000, Window: time.Minute, Block: time.Minute},
	}
	limiter := rate.NewScoped(rate.NewMemoryLimiter(), budgets, true)

	tokens := &token.Service{
		Issuer:        "sentinela",
		Audience:      "sentinela-admin",
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Users:         st.Users(),
		Tokens:        st.RefreshTokens(),
		CookieName:    "rt",
		CookiePath:    "/v1/session",
	}

	pol := lockout.New(st.Users())

	ctl := NewController(Deps{
		Users:   st.Users(),
		Limiter: limiter,
		Lockout: pol,
		Tokens:  tokens,
		Pepper:  testPepper,
	})
	handler := ihttp.NewRouter(ihttp.RouterConfig{
		Session: ihttp.SessionHandlers{
			SignIn:  ctl.SignIn,
			Refresh: ctl.Refresh,
			SignOut: ctl.SignOut,
		},
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &env{srv: srv, store: st, tokens: tokens, lockout: pol, user: u}
}

func (e *env) signIn(t *testing.T, userName, pwd string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"userName": userName, "password": pwd})
	resp, err := http.Post(e.srv.URL+"/v1/session/sign-in", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *env) postWithCookie(t *testing.T, path string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, nil)
	require.NoError(t, err)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func refreshCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == "rt" {
			return c
		}
	}
	t.Fatal("rt cookie not set")
	return nil
}

func bigBudget() rate.Budget {
	return rate.Budget{Points: 1000, Window: time.Minute, Block: time.Minute}
}

func TestSignIn_OK(t *testing.T) {
	e := newEnv(t, bigBudget())

	resp := e.signIn(t, "  Admin ", testPassword) // se normaliza
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		User struct {
			ID       string `json:"id"`
			UserName string `json:"userName"`
			Role     string `json:"role"`
		} `json:"user"`
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expiresIn"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "admin", out.User.UserName)
	require.Equal(t, "superadmin", out.User.Role)
	require.NotEmpty(t, out.Token)
	require.Equal(t, int64(900), out.ExpiresIn)

	c := refreshCookie(t, resp)
	require.True(t, c.HttpOnly)
	require.Equal(t, "/v1/session", c.Path)

	claims, err := e.tokens.VerifyAccess(out.Token)
	require.NoError(t, err)
	require.Equal(t, "superadmin", claims["role"])
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	e := newEnv(t, bigBudget())

	resp := e.signIn(t, "admin", "nope")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// usuario inexistente: mismo 401 genérico
	resp = e.signIn(t, "ghost", "nope")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignIn_LockoutAfterSevenFailures(t *testing.T) {
	e := newEnv(t, bigBudget())

	for i := 1; i <= 7; i++ {
		resp := e.signIn(t, "admin", "nope")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "attempt %d", i)
	}

	// la octava, aun con el password correcto, rebota 423
	resp := e.signIn(t, "admin", testPassword)
	require.Equal(t, http.StatusLocked, resp.StatusCode)
}

func TestSignIn_Restricted(t *testing.T) {
	e := newEnv(t, bigBudget())
	ctx := context.Background()

	u, err := e.store.Users().FindByID(ctx, e.user.ID)
	require.NoError(t, err)
	u.IsRestricted = true
	u.RestrictionCause = "manual"
	require.NoError(t, e.store.Users().Update(ctx, u))

	resp := e.signIn(t, "admin", testPassword)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSignIn_Throttled(t *testing.T) {
	e := newEnv(t, rate.Budget{Points: 3, Window: time.Minute, Block: 2 * time.Minute})

	for i := 0; i < 3; i++ {
		resp := e.signIn(t, "admin", "nope")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp := e.signIn(t, "admin", "nope")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))

	var out struct {
		RetryAfterSec int `json:"retryAfterSec"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Positive(t, out.RetryAfterSec)
}

func TestSignIn_SuccessResetsUserNameBudget(t *testing.T) {
	e := newEnv(t, rate.Budget{Points: 5, Window: time.Minute, Block: time.Minute})

	// tres atacantes gastan presupuesto del username
	for i := 0; i < 3; i++ {
		e.signIn(t, "admin", "nope")
	}
	// el dueño entra: resetea el scope del username
	resp := e.signIn(t, "admin", testPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// presupuesto restaurado: cinco intentos más antes del bloqueo
	for i := 0; i < 5; i++ {
		resp = e.signIn(t, "admin", "nope")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "attempt %d", i+1)
	}
	resp = e.signIn(t, "admin", "nope")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestSignIn_Validation(t *testing.T) {
	e := newEnv(t, bigBudget())

	resp := e.signIn(t, "", "")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/v1/session/sign-in",
		bytes.NewReader([]byte("not json")))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, raw.StatusCode)
}

func TestRefresh_RotatesAndOldCookieDies(t *testing.T) {
	e := newEnv(t, bigBudget())

	signin := e.signIn(t, "admin", testPassword)
	require.Equal(t, http.StatusOK, signin.StatusCode)
	first := refreshCookie(t, signin)

	resp := e.postWithCookie(t, "/v1/session/refresh", first)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := refreshCookie(t, resp)
	require.NotEqual(t, first.Value, second.Value)

	var out struct {
		AccessToken string `json:"accessToken"`
		ExpiresIn   int64  `json:"expiresIn"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.AccessToken)

	// el refresh ya consumido es single-use: nunca 200
	resp = e.postWithCookie(t, "/v1/session/refresh", first)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// el nuevo sigue vivo
	resp = e.postWithCookie(t, "/v1/session/refresh", second)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRefresh_NoCookie(t *testing.T) {
	e := newEnv(t, bigBudget())

	resp := e.postWithCookie(t, "/v1/session/refresh", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.postWithCookie(t, "/v1/session/refresh", &http.Cookie{Name: "rt", Value: "garbage"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignOut(t *testing.T) {
	e := newEnv(t, bigBudget())

	signin := e.signIn(t, "admin", testPassword)
	c := refreshCookie(t, signin)

	resp := e.postWithCookie(t, "/v1/session/sign-out", c)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	cleared := refreshCookie(t, resp)
	require.Empty(t, cleared.Value)
	require.Equal(t, -1, cleared.MaxAge)

	// la fila fue revocada: el refresh muere
	resp = e.postWithCookie(t, "/v1/session/refresh", c)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// sign-out repetido sigue siendo 204
	resp = e.postWithCookie(t, "/v1/session/sign-out", c)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestMintWithoutRoleIsInternalError(t *testing.T) {
	e := newEnv(t, bigBudget())
	ctx := context.Background()

	phc, err := password.Hash(testParams, testPepper, testPassword)
	require.NoError(t, err)
	require.NoError(t, e.store.Users().Create(ctx, &core.User{
		UserName: "roleless", PasswordHash: phc,
	}))

	resp := e.signIn(t, "roleless", testPassword)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var out struct {
		Error     string `json:"error"`
		ErrorCode int    `json:"error_code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "internal_error", out.Error)
	require.Equal(t, ihttp.CodeInternal, out.ErrorCode)
}
