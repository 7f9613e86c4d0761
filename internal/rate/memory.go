package rate

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter: fixed window in-process. go-cache maneja la expiración de
// ventanas y bloqueos; el contador por ventana es atómico.
type MemoryLimiter struct {
	c *gocache.Cache
}

type window struct {
	count int64 // atomic; la expiración de la ventana la maneja go-cache
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, b Budget) (Result, error) {
	now := time.Now()

	// 1. ¿Key bloqueada?
	if v, ok := m.c.Get("b:" + key); ok {
		until := v.(time.Time)
		if ra := until.Sub(now); ra > 0 {
			return Result{Allowed: false, Remaining: 0, RetryAfter: ra}, nil
		}
	}

	// 2. Ventana actual (crear si no existe; Add pierde la carrera ante
	// un creador concurrente y en ese caso releemos)
	var w *window
	if v, ok := m.c.Get("w:" + key); ok {
		w = v.(*window)
	} else {
		cand := &window{}
		if err := m.c.Add("w:"+key, cand, b.Window); err == nil {
			w = cand
		} else if v, ok := m.c.Get("w:" + key); ok {
			w = v.(*window)
		} else {
			w = cand
		}
	}

	hits := atomic.AddInt64(&w.count, 1)
	if hits > int64(b.Points) {
		until := now.Add(b.Block)
		m.c.Set("b:"+key, until, b.Block)
		return Result{Allowed: false, Remaining: 0, RetryAfter: b.Block}, nil
	}

	return Result{Allowed: true, Remaining: int64(b.Points) - hits}, nil
}

func (m *MemoryLimiter) Reset(_ context.Context, key string) error {
	m.c.Delete("w:" + key)
	m.c.Delete("b:" + key)
	return nil
}
