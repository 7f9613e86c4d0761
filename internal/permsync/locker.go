package permsync

import (
	"context"
	"sync"
)

// Locker serializa el sync de permisos en todo el sistema. La adquisición
// es bloqueante (no polling); el lock se sostiene solo durante la fase
// read-reconcile-write-cleanup, nunca durante el rule engine.
//
// Implementaciones: pg.AdvisoryLocker (pg_advisory_lock, multi-proceso) y
// MutexLocker (per-proceso, para el store en memoria).
type Locker interface {
	// Lock bloquea hasta adquirir y retorna la función de unlock.
	Lock(ctx context.Context) (func(), error)
}

// MutexLocker: exclusión mutua per-proceso. sync.Mutex entra en modo
// starvation ante waiters demorados, lo que da la adquisición justa que
// el sync necesita.
type MutexLocker struct {
	mu sync.Mutex
}

func (l *MutexLocker) Lock(ctx context.Context) (func(), error) {
	l.mu.Lock()
	return l.mu.Unlock, nil
}
