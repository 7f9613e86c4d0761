package rate

import (
	"context"

	rdb "github.com/redis/go-redis/v9"
)

// RedisLimiter: fixed window distribuido (INCR + EXPIRE) con key de bloqueo.
// El incremento es atómico en el store; vale para múltiples instancias.
type RedisLimiter struct {
	client *rdb.Client
	prefix string
}

func NewRedisLimiter(client *rdb.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{client: client, prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, b Budget) (Result, error) {
	blockKey := l.prefix + "b:" + key
	winKey := l.prefix + "w:" + key

	// 1. ¿Bloqueada?
	ttl, err := l.client.TTL(ctx, blockKey).Result()
	if err != nil {
		return Result{}, err
	}
	if ttl > 0 {
		return Result{Allowed: false, Remaining: 0, RetryAfter: ttl}, nil
	}

	// 2. Consumir ventana
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, winKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}
	hits := incr.Val()
	if hits == 1 {
		// primera visita de la ventana
		_ = l.client.Expire(ctx, winKey, b.Window).Err()
	}

	if hits > int64(b.Points) {
		if err := l.client.Set(ctx, blockKey, "1", b.Block).Err(); err != nil {
			return Result{}, err
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: b.Block}, nil
	}

	return Result{Allowed: true, Remaining: int64(b.Points) - hits}, nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+"w:"+key, l.prefix+"b:"+key).Err()
}

var _ Limiter = (*RedisLimiter)(nil)
var _ Limiter = (*MemoryLimiter)(nil)
