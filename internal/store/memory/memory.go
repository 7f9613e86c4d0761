// Package memory implementa core.Store en memoria.
// Se usa en dev (storage.driver=memory) y como fake en tests.
// Todas las operaciones devuelven copias: el caller nunca ve los punteros
// internos del store.
package memory

import (
	"context"
	"sync"

	"github.com/dropDatabas3/sentinela/internal/store/core"
	"github.com/google/uuid"
)

type Store struct {
	mu     sync.RWMutex
	users  map[string]*core.User         // por ID
	byName map[string]string             // userName -> ID
	tokens map[string]*core.RefreshToken // por jti
	roles  map[string]*core.Role
	perms  map[string]*core.RolePermission // por ID
}

func New() *Store {
	return &Store{
		users:  map[string]*core.User{},
		byName: map[string]string{},
		tokens: map[string]*core.RefreshToken{},
		roles:  map[string]*core.Role{},
		perms:  map[string]*core.RolePermission{},
	}
}

func (s *Store) Users() core.UserRepository                     { return (*userRepo)(s) }
func (s *Store) RefreshTokens() core.RefreshTokenRepository     { return (*tokenRepo)(s) }
func (s *Store) Roles() core.RoleRepository                     { return (*roleRepo)(s) }
func (s *Store) RolePermissions() core.RolePermissionRepository { return (*permRepo)(s) }

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close()                         {}

// SeedRole registra un rol (helper para dev/tests).
func (s *Store) SeedRole(r core.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	s.roles[r.ID] = &r
}

// --- users ---

type userRepo Store

func (r *userRepo) FindByID(_ context.Context, id string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) FindByUserName(_ context.Context, userName string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[userName]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *r.users[id]
	return &cp, nil
}

func (r *userRepo) Create(_ context.Context, u *core.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, dup := r.byName[u.UserName]; dup {
		return core.ErrConflict
	}
	cp := *u
	r.users[u.ID] = &cp
	r.byName[u.UserName] = u.ID
	return nil
}

func (r *userRepo) Update(_ context.Context, u *core.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return core.ErrNotFound
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

// --- refresh tokens ---

type tokenRepo Store

func (r *tokenRepo) FindByID(_ context.Context, id string) (*core.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *tokenRepo) Create(_ context.Context, t *core.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tokens[t.ID]; dup {
		return core.ErrConflict
	}
	cp := *t
	r.tokens[t.ID] = &cp
	return nil
}

func (r *tokenRepo) Destroy(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[id]; !ok {
		return core.ErrNotFound
	}
	delete(r.tokens, id)
	return nil
}

// --- roles ---

type roleRepo Store

func (r *roleRepo) FindByID(_ context.Context, id string) (*core.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *role
	return &cp, nil
}

func (r *roleRepo) FindAll(_ context.Context) ([]core.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, *role)
	}
	return out, nil
}

// --- role permissions ---

type permRepo Store

func (r *permRepo) FindByRole(_ context.Context, roleID string) ([]core.RolePermission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.RolePermission
	for _, p := range r.perms {
		if p.RoleID == roleID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *permRepo) Create(_ context.Context, p *core.RolePermission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// unicidad (roleID, operation), como el índice único en SQL
	for _, ex := range r.perms {
		if ex.RoleID == p.RoleID && ex.Operation == p.Operation {
			return core.ErrConflict
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	r.perms[p.ID] = &cp
	return nil
}

func (r *permRepo) Update(_ context.Context, p *core.RolePermission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.perms[p.ID]; !ok {
		return core.ErrNotFound
	}
	cp := *p
	r.perms[p.ID] = &cp
	return nil
}

func (r *permRepo) Destroy(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.perms[id]; !ok {
		return core.ErrNotFound
	}
	delete(r.perms, id)
	return nil
}
