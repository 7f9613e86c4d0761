// Package core define los contratos de persistencia del dominio.
// Cualquier backend (Postgres, fake en memoria) los satisface; los services
// dependen solo de estas interfaces.
package core

import "context"

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUserName(ctx context.Context, userName string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
}

type RefreshTokenRepository interface {
	FindByID(ctx context.Context, id string) (*RefreshToken, error)
	Create(ctx context.Context, t *RefreshToken) error
	Destroy(ctx context.Context, id string) error
}

type RoleRepository interface {
	FindByID(ctx context.Context, id string) (*Role, error)
	FindAll(ctx context.Context) ([]Role, error)
}

type RolePermissionRepository interface {
	FindByRole(ctx context.Context, roleID string) ([]RolePermission, error)
	Create(ctx context.Context, p *RolePermission) error
	Update(ctx context.Context, p *RolePermission) error
	Destroy(ctx context.Context, id string) error
}

// Store agrupa los repositorios de un backend más su ciclo de vida.
type Store interface {
	Users() UserRepository
	RefreshTokens() RefreshTokenRepository
	Roles() RoleRepository
	RolePermissions() RolePermissionRepository

	Ping(ctx context.Context) error
	Close()
}
