package pg

import "context"

// DDL mínimo del core. Idempotente; se ejecuta al boot cuando serve corre
// con --migrate.
const schema = `
CREATE TABLE IF NOT EXISTS roles (
	id   UUID PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS users (
	id                 UUID PRIMARY KEY,
	user_name          TEXT NOT NULL UNIQUE,
	password_hash      TEXT NOT NULL,
	role_id            UUID REFERENCES roles(id),
	failed_login_count INT  NOT NULL DEFAULT 0,
	locked_until       TIMESTAMPTZ,
	brute_window_start TIMESTAMPTZ,
	brute_strikes      INT  NOT NULL DEFAULT 0,
	is_restricted      BOOLEAN NOT NULL DEFAULT FALSE,
	restriction_cause  TEXT NOT NULL DEFAULT '',
	restricted_at      TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	expires_at TIMESTAMPTZ NOT NULL,
	user_agent TEXT NOT NULL DEFAULT '',
	ip         TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS role_permissions (
	id        UUID PRIMARY KEY,
	role_id   UUID NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
	operation TEXT NOT NULL,
	access    BOOLEAN NOT NULL DEFAULT FALSE,
	disabled  BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (role_id, operation)
);
`

// EnsureSchema crea las tablas si no existen.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}
