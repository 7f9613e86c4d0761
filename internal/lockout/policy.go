// Package lockout implementa la máquina de estados de fallas de login:
//
//	Active → Locked (temporal) → Restricted (sticky, solo intervención manual)
//
// El lock se dispara a las MaxFailed fallas consecutivas y dura LockDuration.
// Cada lock cuenta como strike dentro de una ventana rodante de StrikeWindow;
// al llegar a MaxStrikes la cuenta pasa a Restricted y no se auto-limpia.
package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/sentinela/internal/observability/logger"
	"github.com/dropDatabas3/sentinela/internal/store/core"
)

type State int

const (
	StateActive State = iota
	StateLocked
	StateRestricted
)

func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateRestricted:
		return "restricted"
	default:
		return "active"
	}
}

type Policy struct {
	MaxFailed    int           // fallas consecutivas que disparan el lock
	LockDuration time.Duration // duración del lock temporal
	StrikeWindow time.Duration // ventana rodante de strikes
	MaxStrikes   int           // locks dentro de la ventana que restringen

	Users core.UserRepository

	// Now es inyectable para tests; nil = time.Now.
	Now func() time.Time
}

func New(users core.UserRepository) *Policy {
	return &Policy{
		MaxFailed:    7,
		LockDuration: 15 * time.Minute,
		StrikeWindow: 24 * time.Hour,
		MaxStrikes:   3,
		Users:        users,
	}
}

func (p *Policy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

// Status evalúa el estado actual del usuario.
// Restricted domina: un usuario restringido queda restringido aunque el
// lock temporal haya vencido.
func (p *Policy) Status(u *core.User) State {
	if u.IsRestricted {
		return StateRestricted
	}
	if u.LockedUntil != nil && p.now().Before(*u.LockedUntil) {
		return StateLocked
	}
	return StateActive
}

// RegisterFailure registra una falla de login y persiste las transiciones.
// Retorna el estado resultante.
func (p *Policy) RegisterFailure(ctx context.Context, u *core.User) (State, error) {
	now := p.now()
	u.FailedLoginCount++

	state := StateActive
	if u.FailedLoginCount >= p.MaxFailed {
		// Dispara el lock: el contador vuelve a cero y arranca el castigo
		u.FailedLoginCount = 0
		until := now.Add(p.LockDuration)
		u.LockedUntil = &until
		state = StateLocked

		// Ventana rodante de strikes: ventana cerrada o vencida abre una
		// nueva con strike 1; abierta y vigente, incrementa
		if u.BruteWindowStart == nil || now.Sub(*u.BruteWindowStart) > p.StrikeWindow {
			u.BruteWindowStart = &now
			u.BruteStrikes = 1
		} else {
			u.BruteStrikes++
		}

		if u.BruteStrikes >= p.MaxStrikes {
			u.IsRestricted = true
			u.RestrictionCause = fmt.Sprintf("%d lockouts within %s", u.BruteStrikes, p.StrikeWindow)
			u.RestrictedAt = &now
			state = StateRestricted
			logger.From(ctx).Named("lockout").Warn("user restricted",
				logger.UserID(u.ID), logger.Count(u.BruteStrikes))
		} else {
			logger.From(ctx).Named("lockout").Info("user locked",
				logger.UserID(u.ID), logger.Count(u.BruteStrikes))
		}
	}

	if err := p.Users.Update(ctx, u); err != nil {
		return state, err
	}
	return state, nil
}

// ResetAfterSuccess limpia contador y lock tras un login verificado.
// No toca la ventana de strikes ni la restricción: la detección de ataque
// sostenido debe sobrevivir a un éxito intermedio.
func (p *Policy) ResetAfterSuccess(ctx context.Context, u *core.User) error {
	if u.FailedLoginCount == 0 && u.LockedUntil == nil {
		return nil
	}
	u.FailedLoginCount = 0
	u.LockedUntil = nil
	return p.Users.Update(ctx, u)
}
