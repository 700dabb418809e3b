// Package refcode allocates human-readable reference codes such as
// "LEAD-00042". Codes are sequential per tenant and prefix, and allocation is
// serialized through an advisory lock so concurrent generators never hand out
// the same code twice.
package refcode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pullstream/schemaguard/internal/lock"
)

const counterSchema = `
CREATE TABLE IF NOT EXISTS ref_counters (
    tenant  TEXT NOT NULL,
    prefix  TEXT NOT NULL,
    value   BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (tenant, prefix)
);`

// lockTTL bounds how long a crashed allocator can block a counter.
const lockTTL = 30 * time.Second

// Allocator hands out reference codes backed by a per-tenant counter row.
type Allocator struct {
	db     *sql.DB
	locks  *lock.Locker
	logger *zap.Logger
}

func New(db *sql.DB, locks *lock.Locker, logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{db: db, locks: locks, logger: logger}
}

// EnsureSchema creates the counter table if it does not exist.
func (a *Allocator) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, counterSchema); err != nil {
		return fmt.Errorf("failed to create ref_counters table: %w", err)
	}
	return nil
}

// Next allocates the next code for the tenant and prefix, formatted as
// PREFIX-00042. The prefix is uppercased; width grows past five digits rather
// than wrapping.
func (a *Allocator) Next(ctx context.Context, tenant, prefix string) (string, error) {
	if tenant == "" || prefix == "" {
		return "", errors.New("tenant and prefix are required")
	}
	prefix = strings.ToUpper(prefix)

	lease, err := a.locks.Acquire(ctx, []string{lockKey(tenant, prefix)}, lockTTL)
	if err != nil {
		return "", fmt.Errorf("failed to lock counter %s/%s: %w", tenant, prefix, err)
	}
	defer func() {
		if err := a.locks.Release(ctx, lease); err != nil {
			a.logger.Warn("failed to release counter lock",
				zap.String("tenant", tenant),
				zap.String("prefix", prefix),
				zap.Error(err))
		}
	}()

	next, err := a.increment(ctx, tenant, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%05d", prefix, next), nil
}

func (a *Allocator) increment(ctx context.Context, tenant, prefix string) (int64, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin counter transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ref_counters (tenant, prefix, value) VALUES ($1, $2, 0)
		 ON CONFLICT (tenant, prefix) DO NOTHING`,
		tenant, prefix); err != nil {
		return 0, fmt.Errorf("failed to seed counter row: %w", err)
	}

	var next int64
	if err := tx.QueryRowContext(ctx,
		`UPDATE ref_counters SET value = value + 1
		 WHERE tenant = $1 AND prefix = $2
		 RETURNING value`,
		tenant, prefix).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit counter increment: %w", err)
	}
	return next, nil
}

func lockKey(tenant, prefix string) string {
	return "refcode:" + tenant + ":" + prefix
}
