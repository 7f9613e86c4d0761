// Package token emite, verifica y rota los pares access/refresh.
//
// Access y refresh se firman HS256 con secretos independientes. El refresh
// lleva un jti persistido como fila RefreshToken: la fila es la identidad de
// la sesión y se consume al rotar (single-use).
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/sentinela/internal/observability/logger"
	"github.com/dropDatabas3/sentinela/internal/store/core"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrUserWithoutRole: precondición fatal en mint, indica datos corruptos.
	// No se emite token ni se escribe nada.
	ErrUserWithoutRole = errors.New("token: user without role")
	// ErrUnauthorized colapsa toda falla de verificación/rotación:
	// firma, issuer, audience, expiry, jti desconocido o ya consumido.
	ErrUnauthorized = errors.New("token: unauthorized")
)

// Meta es el contexto del request que se persiste junto al refresh.
type Meta struct {
	UserAgent string
	IP        string
}

// Pair es el resultado de un mint/rotate.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type Service struct {
	Issuer   string
	Audience string

	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	Users  core.UserRepository
	Tokens core.RefreshTokenRepository

	CookieName   string
	CookiePath   string
	CookieSecure bool

	// Now inyectable para tests; nil = time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Mint emite un par nuevo para el usuario y persiste la fila del refresh.
// Falla con ErrUserWithoutRole antes de cualquier escritura si el usuario
// no tiene rol.
func (s *Service) Mint(ctx context.Context, u *core.User, meta Meta) (*Pair, error) {
	if u.RoleName == "" {
		return nil, ErrUserWithoutRole
	}
	now := s.now()
	jti := uuid.NewString()
	accessExp := now.Add(s.AccessTTL)
	refreshExp := now.Add(s.RefreshTTL)

	row := &core.RefreshToken{
		ID:        jti,
		UserID:    u.ID,
		ExpiresAt: refreshExp,
		UserAgent: meta.UserAgent,
		IP:        meta.IP,
		CreatedAt: now,
	}
	if err := s.Tokens.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("token: persist refresh: %w", err)
	}

	access, err := s.signAccess(u, now, accessExp)
	if err != nil {
		return nil, err
	}
	refresh, err := s.signRefresh(u.ID, jti, now, refreshExp)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Rotate verifica un refresh presentado, emite un par nuevo y consume la
// fila vieja. El orden es persistir-nuevo-luego-borrar-viejo: una falla de
// persistencia durante el mint nunca revoca sin reemplazo. Re-presentar un
// refresh ya rotado falla: la fila ya no existe.
func (s *Service) Rotate(ctx context.Context, raw string) (*Pair, error) {
	claims, err := s.parseRefresh(raw)
	if err != nil {
		return nil, ErrUnauthorized
	}
	jti, _ := claims["jti"].(string)
	sub, _ := claims["sub"].(string)
	if jti == "" || sub == "" {
		return nil, ErrUnauthorized
	}

	now := s.now()
	row, err := s.Tokens.FindByID(ctx, jti)
	if err != nil || row.UserID != sub || now.After(row.ExpiresAt) {
		return nil, ErrUnauthorized
	}

	u, err := s.Users.FindByID(ctx, row.UserID)
	if err != nil {
		return nil, ErrUnauthorized
	}

	pair, err := s.Mint(ctx, u, Meta{UserAgent: row.UserAgent, IP: row.IP})
	if err != nil {
		return nil, err
	}
	if err := s.Tokens.Destroy(ctx, jti); err != nil && !core.IsNotFound(err) {
		logger.From(ctx).Named("token").Warn("old refresh row not destroyed",
			logger.JTI(jti), logger.Err(err))
	}
	return pair, nil
}

// Revoke consume la fila del refresh presentado (sign-out).
// Un token inválido o ya consumido no es error: el sign-out es idempotente.
func (s *Service) Revoke(ctx context.Context, raw string) {
	claims, err := s.parseRefresh(raw)
	if err != nil {
		return
	}
	if jti, _ := claims["jti"].(string); jti != "" {
		_ = s.Tokens.Destroy(ctx, jti)
	}
}

// VerifyAccess valida un access token y retorna sus claims.
func (s *Service) VerifyAccess(raw string) (jwtv5.MapClaims, error) {
	return s.parse(raw, s.AccessSecret)
}

func (s *Service) signAccess(u *core.User, now, exp time.Time) (string, error) {
	claims := jwtv5.MapClaims{
		"iss":   s.Issuer,
		"aud":   s.Audience,
		"sub":   u.ID,
		"uname": u.UserName,
		"role":  u.RoleName,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	return s.sign(claims, s.AccessSecret)
}

func (s *Service) signRefresh(sub, jti string, now, exp time.Time) (string, error) {
	claims := jwtv5.MapClaims{
		"iss": s.Issuer,
		"aud": s.Audience,
		"sub": sub,
		"jti": jti,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	return s.sign(claims, s.RefreshSecret)
}

func (s *Service) sign(claims jwtv5.MapClaims, secret []byte) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

func (s *Service) parseRefresh(raw string) (jwtv5.MapClaims, error) {
	return s.parse(raw, s.RefreshSecret)
}

func (s *Service) parse(raw string, secret []byte) (jwtv5.MapClaims, error) {
	claims := jwtv5.MapClaims{}
	_, err := jwtv5.ParseWithClaims(raw, claims,
		func(t *jwtv5.Token) (any, error) { return secret, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithIssuer(s.Issuer),
		jwtv5.WithAudience(s.Audience),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
