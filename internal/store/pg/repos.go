package pg

import (
	"context"

	"github.com/dropDatabas3/sentinela/internal/store/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// --- users ---

type userRepo struct{ pool *pgxpool.Pool }

const userCols = `u.id, u.user_name, u.password_hash, COALESCE(u.role_id::text,''), COALESCE(r.name,''),
	u.failed_login_count, u.locked_until, u.brute_window_start, u.brute_strikes,
	u.is_restricted, u.restriction_cause, u.restricted_at`

func (r *userRepo) scanUser(row interface{ Scan(dest ...any) error }) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.UserName, &u.PasswordHash, &u.RoleID, &u.RoleName,
		&u.FailedLoginCount, &u.LockedUntil, &u.BruteWindowStart, &u.BruteStrikes,
		&u.IsRestricted, &u.RestrictionCause, &u.RestrictedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*core.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users u LEFT JOIN roles r ON r.id = u.role_id WHERE u.id = $1`, id))
}

func (r *userRepo) FindByUserName(ctx context.Context, userName string) (*core.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users u LEFT JOIN roles r ON r.id = u.role_id WHERE u.user_name = $1`, userName))
}

func (r *userRepo) Create(ctx context.Context, u *core.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, user_name, password_hash, role_id, failed_login_count, locked_until,
			brute_window_start, brute_strikes, is_restricted, restriction_cause, restricted_at)
		 VALUES ($1,$2,$3,NULLIF($4,'')::uuid,$5,$6,$7,$8,$9,$10,$11)`,
		u.ID, u.UserName, u.PasswordHash, u.RoleID, u.FailedLoginCount, u.LockedUntil,
		u.BruteWindowStart, u.BruteStrikes, u.IsRestricted, u.RestrictionCause, u.RestrictedAt)
	return mapErr(err)
}

func (r *userRepo) Update(ctx context.Context, u *core.User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET failed_login_count=$2, locked_until=$3, brute_window_start=$4,
			brute_strikes=$5, is_restricted=$6, restriction_cause=$7, restricted_at=$8
		 WHERE id=$1`,
		u.ID, u.FailedLoginCount, u.LockedUntil, u.BruteWindowStart,
		u.BruteStrikes, u.IsRestricted, u.RestrictionCause, u.RestrictedAt)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- refresh tokens ---

type tokenRepo struct{ pool *pgxpool.Pool }

func (r *tokenRepo) FindByID(ctx context.Context, id string) (*core.RefreshToken, error) {
	var t core.RefreshToken
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, expires_at, user_agent, ip, created_at FROM refresh_tokens WHERE id = $1`, id).
		Scan(&t.ID, &t.UserID, &t.ExpiresAt, &t.UserAgent, &t.IP, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r *tokenRepo) Create(ctx context.Context, t *core.RefreshToken) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, expires_at, user_agent, ip) VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.UserID, t.ExpiresAt, t.UserAgent, t.IP)
	return mapErr(err)
}

func (r *tokenRepo) Destroy(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- roles ---

type roleRepo struct{ pool *pgxpool.Pool }

func (r *roleRepo) FindByID(ctx context.Context, id string) (*core.Role, error) {
	var role core.Role
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name)
	if err != nil {
		return nil, mapErr(err)
	}
	return &role, nil
}

func (r *roleRepo) FindAll(ctx context.Context) ([]core.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM roles ORDER BY name`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []core.Role
	for rows.Next() {
		var role core.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// --- role permissions ---

type permRepo struct{ pool *pgxpool.Pool }

func (r *permRepo) FindByRole(ctx context.Context, roleID string) ([]core.RolePermission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, role_id, operation, access, disabled FROM role_permissions WHERE role_id = $1 ORDER BY operation`,
		roleID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []core.RolePermission
	for rows.Next() {
		var p core.RolePermission
		if err := rows.Scan(&p.ID, &p.RoleID, &p.Operation, &p.Access, &p.Disabled); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *permRepo) Create(ctx context.Context, p *core.RolePermission) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_permissions (id, role_id, operation, access, disabled) VALUES ($1,$2,$3,$4,$5)`,
		p.ID, p.RoleID, p.Operation, p.Access, p.Disabled)
	return mapErr(err)
}

func (r *permRepo) Update(ctx context.Context, p *core.RolePermission) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE role_permissions SET access=$2, disabled=$3 WHERE id=$1`,
		p.ID, p.Access, p.Disabled)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *permRepo) Destroy(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM role_permissions WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
