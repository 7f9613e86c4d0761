// Package pg implementa core.Store sobre Postgres (pgxpool).
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/sentinela/internal/store/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct{ pool *pgxpool.Pool }

func New(ctx context.Context, dsn string) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 10
	}
	pcfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Pool expone el pool interno (locker, métricas).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Users() core.UserRepository                     { return &userRepo{pool: s.pool} }
func (s *Store) RefreshTokens() core.RefreshTokenRepository     { return &tokenRepo{pool: s.pool} }
func (s *Store) Roles() core.RoleRepository                     { return &roleRepo{pool: s.pool} }
func (s *Store) RolePermissions() core.RolePermissionRepository { return &permRepo{pool: s.pool} }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// mapErr traduce errores de pgx a los sentinels de core.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return core.ErrConflict
	}
	return err
}
