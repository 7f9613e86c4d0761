package token

import (
	"context"
	"testing"
	"time"

	"github.com/dropDatabas3/sentinela/internal/store/core"
	"github.com/dropDatabas3/sentinela/internal/store/memory"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *core.User, *time.Time) {
	t.Helper()
	st := memory.New()
	u := &core.User{UserName: "admin", PasswordHash: "x", RoleID: "r1", RoleName: "superadmin"}
	require.NoError(t, st.Users().Create(context.Background(), u))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Service{
		Issuer:        "sentinela",
		Audience:      "sentinela-admin",
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Users:         st.Users(),
		Tokens:        st.RefreshTokens(),
		CookieName:    "rt",
		CookiePath:    "/v1/session",
		Now:           func() time.Time { return now },
	}
	return s, u, &now
}

func TestMint_ClaimsAndRow(t *testing.T) {
	s, u, _ := newService(t)
	ctx := context.Background()

	pair, err := s.Mint(ctx, u, Meta{UserAgent: "cli", IP: "10.0.0.1"})
	require.NoError(t, err)

	claims, err := s.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims["sub"])
	require.Equal(t, "admin", claims["uname"])
	require.Equal(t, "superadmin", claims["role"])
	require.Equal(t, "sentinela", claims["iss"])

	// la fila del refresh existe con la metadata del request
	refreshClaims := jwtv5.MapClaims{}
	_, err = jwtv5.ParseWithClaims(pair.RefreshToken, refreshClaims,
		func(*jwtv5.Token) (any, error) { return s.RefreshSecret, nil },
		jwtv5.WithTimeFunc(s.now))
	require.NoError(t, err)
	jti := refreshClaims["jti"].(string)

	row, err := s.Tokens.FindByID(ctx, jti)
	require.NoError(t, err)
	require.Equal(t, u.ID, row.UserID)
	require.Equal(t, "cli", row.UserAgent)
	require.Equal(t, "10.0.0.1", row.IP)
}

func TestMint_UserWithoutRole(t *testing.T) {
	s, u, _ := newService(t)
	u.RoleName = ""

	_, err := s.Mint(context.Background(), u, Meta{})
	require.ErrorIs(t, err, ErrUserWithoutRole)
}

func TestRotate_SingleUse(t *testing.T) {
	s, u, _ := newService(t)
	ctx := context.Background()

	pair, err := s.Mint(ctx, u, Meta{})
	require.NoError(t, err)

	rotated, err := s.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// re-presentar el refresh ya consumido falla siempre
	_, err = s.Rotate(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	// el nuevo sigue siendo usable
	_, err = s.Rotate(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestRotate_ExpiredRefresh(t *testing.T) {
	s, u, now := newService(t)
	ctx := context.Background()

	pair, err := s.Mint(ctx, u, Meta{})
	require.NoError(t, err)

	*now = now.Add(8 * 24 * time.Hour)
	_, err = s.Rotate(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRotate_TamperedAndForeignTokens(t *testing.T) {
	s, u, _ := newService(t)
	ctx := context.Background()

	pair, err := s.Mint(ctx, u, Meta{})
	require.NoError(t, err)

	_, err = s.Rotate(ctx, pair.RefreshToken+"x")
	require.ErrorIs(t, err, ErrUnauthorized)

	// firmado con otro secreto (p.ej. el de access)
	forged := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"iss": s.Issuer, "aud": s.Audience, "sub": u.ID, "jti": "whatever",
		"exp": s.now().Add(time.Hour).Unix(),
	})
	raw, err := forged.SignedString(s.AccessSecret)
	require.NoError(t, err)
	_, err = s.Rotate(ctx, raw)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRevoke_Idempotent(t *testing.T) {
	s, u, _ := newService(t)
	ctx := context.Background()

	pair, err := s.Mint(ctx, u, Meta{})
	require.NoError(t, err)

	s.Revoke(ctx, pair.RefreshToken)
	_, err = s.Rotate(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	// segunda revocación no explota
	s.Revoke(ctx, pair.RefreshToken)
	s.Revoke(ctx, "garbage")
}

func TestRefreshCookie(t *testing.T) {
	s, u, _ := newService(t)
	s.CookieSecure = true

	pair, err := s.Mint(context.Background(), u, Meta{})
	require.NoError(t, err)

	c := s.RefreshCookie(pair)
	require.Equal(t, "rt", c.Name)
	require.Equal(t, "/v1/session", c.Path)
	require.True(t, c.HttpOnly)
	require.True(t, c.Secure)
	require.Positive(t, c.MaxAge)

	clear := s.ClearCookie()
	require.Equal(t, -1, clear.MaxAge)
	require.Empty(t, clear.Value)
}
