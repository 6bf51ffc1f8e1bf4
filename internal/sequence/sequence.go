// Package sequence issues strictly increasing integers per scope key.
package sequence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdg-garage/medislot-api/internal/database"
	"gorm.io/gorm"
)

const upsertSQL = `INSERT INTO sequence_counters (scope, value, created_at, updated_at)
VALUES (?, 1, ?, ?)
ON CONFLICT (scope) DO UPDATE SET value = sequence_counters.value + 1, updated_at = excluded.updated_at
RETURNING value`

// ScopeKey joins parts into a counter key, e.g. "center-1:2026-03-01".
func ScopeKey(parts ...string) string {
	return strings.Join(parts, ":")
}

type Counter struct {
	db     *gorm.DB
	policy database.RetryPolicy
	now    func() time.Time
}

func NewCounter(db *gorm.DB, policy database.RetryPolicy) *Counter {
	return &Counter{db: db, policy: policy, now: time.Now}
}

// NextTx increments the counter for scope inside tx and returns the new
// value. The row is created on first use. If tx rolls back, so does the
// increment.
func (c *Counter) NextTx(tx *gorm.DB, scope string) (int64, error) {
	if scope == "" {
		return 0, fmt.Errorf("sequence: empty scope")
	}
	now := c.now().UTC()

	var value int64
	res := tx.Raw(upsertSQL, scope, now, now).Scan(&value)
	if res.Error != nil {
		return 0, fmt.Errorf("sequence %q: %w", scope, res.Error)
	}
	if value < 1 {
		return 0, fmt.Errorf("sequence %q: %w", scope, database.ErrConflict)
	}
	return value, nil
}

// Next issues a value in its own transaction, retrying transient conflicts.
func (c *Counter) Next(ctx context.Context, scope string) (int64, error) {
	var value int64
	err := database.Retry(ctx, c.policy, func() error {
		v, err := c.NextTx(c.db.WithContext(ctx), scope)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	return value, err
}

// Current returns the last issued value, or 0 if scope was never used.
func (c *Counter) Current(ctx context.Context, scope string) (int64, error) {
	var values []int64
	err := c.db.WithContext(ctx).Table("sequence_counters").
		Where("scope = ?", scope).Pluck("value", &values).Error
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}
	return values[0], nil
}
