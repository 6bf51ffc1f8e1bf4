package database

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/gdg-garage/medislot-api/internal/apperr"
	"gorm.io/gorm"
)

type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 5, Backoff: 20 * time.Millisecond}
}

// Retry runs fn until it succeeds, fails with a non-transient error, or the
// policy is exhausted. Exhaustion surfaces as resource_temporarily_unavailable.
func Retry(ctx context.Context, p RetryPolicy, fn func() error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt >= p.Attempts {
			return apperr.Wrap(apperr.KindResourceTemporarilyUnavailable, err,
				"resource busy, gave up after %d attempts", attempt)
		}

		wait := p.Backoff << (attempt - 1)
		if wait > 0 {
			wait += rand.N(wait/2 + 1)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// TxRunner executes units of work in a single transaction with retry.
// fn may run more than once, so it must not leak state between attempts.
type TxRunner struct {
	db     *gorm.DB
	policy RetryPolicy
}

func NewTxRunner(db *gorm.DB, policy RetryPolicy) *TxRunner {
	return &TxRunner{db: db, policy: policy}
}

func (r *TxRunner) DB() *gorm.DB { return r.db }

func (r *TxRunner) Run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return Retry(ctx, r.policy, func() error {
		return r.db.WithContext(ctx).Transaction(fn)
	})
}
