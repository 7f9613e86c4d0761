package core

import "errors"

var (
	// ErrNotFound: la entidad no existe. Los services lo traducen a su
	// propio error de dominio (p.ej. credenciales inválidas).
	ErrNotFound = errors.New("store: not found")
	// ErrConflict: violación de unicidad (userName, jti, (role, operation)).
	ErrConflict = errors.New("store: conflict")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
