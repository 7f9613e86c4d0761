package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// permSyncLockID es la clave global de pg_advisory_lock que serializa el
// permission sync en todo el sistema (todas las instancias del proceso).
const permSyncLockID int64 = 0x53454E54494E454C // "SENTINEL"

// AdvisoryLocker implementa permsync.Locker con pg_advisory_lock.
// La adquisición es bloqueante y FIFO (Postgres encola los waiters);
// lock y unlock deben ejecutarse sobre la misma conexión, por eso se
// retiene una conexión del pool mientras el lock está tomado.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
}

func NewAdvisoryLocker(pool *pgxpool.Pool) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool}
}

func (l *AdvisoryLocker) Lock(ctx context.Context) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("advisory lock: acquire conn: %w", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, permSyncLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("advisory lock: %w", err)
	}
	unlock := func() {
		// unlock con Background: el release del lock no debe depender de
		// que el ctx del request siga vivo
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, permSyncLockID)
		conn.Release()
	}
	return unlock, nil
}
