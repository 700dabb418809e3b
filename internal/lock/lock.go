// Package lock provides a database-backed advisory lock with a TTL, used to
// serialize operations that span several statements, such as reference code
// allocation.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrLockHeld is returned when another holder owns at least one of the
// requested keys and its lease has not expired.
var ErrLockHeld = errors.New("lock is held by another owner")

const schema = `
CREATE TABLE IF NOT EXISTS advisory_locks (
    key        TEXT PRIMARY KEY,
    owner      TEXT NOT NULL,
    expires_at BIGINT NOT NULL
);`

// Locker grants and releases leases over named keys. Expired leases are
// reclaimed on the next acquisition attempt, so a crashed holder never wedges
// the key permanently.
type Locker struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

func New(db *sql.DB, logger *zap.Logger) *Locker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locker{db: db, logger: logger, now: time.Now}
}

// EnsureSchema creates the lock table if it does not exist.
func (l *Locker) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create advisory_locks table: %w", err)
	}
	return nil
}

// Lease is a granted lock over one or more keys.
type Lease struct {
	Owner     string
	Keys      []string
	ExpiresAt time.Time
}

// Acquire takes all keys atomically or none of them. Keys are claimed in
// sorted order so two callers contending over overlapping key sets cannot
// deadlock on ordering.
func (l *Locker) Acquire(ctx context.Context, keys []string, ttl time.Duration) (*Lease, error) {
	if len(keys) == 0 {
		return nil, errors.New("at least one lock key is required")
	}

	owner := uuid.NewString()
	expires := l.now().Add(ttl)

	sorted := append([]string{}, keys...)
	sort.Strings(sorted)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin lock transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, key := range sorted {
		// Reclaim an expired lease first so the insert below only collides
		// with a live holder.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM advisory_locks WHERE key = $1 AND expires_at < $2`,
			key, l.now().UnixMilli()); err != nil {
			return nil, fmt.Errorf("failed to reap expired lock %q: %w", key, err)
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO advisory_locks (key, owner, expires_at) VALUES ($1, $2, $3)`,
			key, owner, expires.UnixMilli())
		if err != nil {
			l.logger.Debug("lock contention",
				zap.String("key", key),
				zap.Error(err))
			return nil, fmt.Errorf("%w: %s", ErrLockHeld, key)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit lock acquisition: %w", err)
	}

	return &Lease{Owner: owner, Keys: sorted, ExpiresAt: expires}, nil
}

// Release frees the lease's keys. Only rows still owned by the lease are
// deleted, so releasing after expiry cannot free a key someone else has since
// acquired.
func (l *Locker) Release(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	for _, key := range lease.Keys {
		if _, err := l.db.ExecContext(ctx,
			`DELETE FROM advisory_locks WHERE key = $1 AND owner = $2`,
			key, lease.Owner); err != nil {
			return fmt.Errorf("failed to release lock %q: %w", key, err)
		}
	}
	return nil
}
