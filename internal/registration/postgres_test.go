//go:build postgres

package registration

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/gdg-garage/medislot-api/internal/database"
	"github.com/gdg-garage/medislot-api/internal/models"
	"github.com/gdg-garage/medislot-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: MEDISLOT_TEST_PG_DSN=... go test -tags postgres ./internal/...
func TestPostgresConcurrentRegisterAndCancel(t *testing.T) {
	const n, capacity = 40, 8
	f := newFixtureOn(t, testutil.NewPostgresDB(t), capacity)
	f.svc.runner = database.NewTxRunner(f.db, database.DefaultRetryPolicy())
	ctx := context.Background()

	regs := make([]*models.Registration, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg, err := f.svc.Register(ctx, input(fmt.Sprintf("P%02d", i)))
			if assert.NoError(t, err) {
				regs[i] = reg
			}
		}()
	}
	wg.Wait()
	f.assertLedger(t, capacity)

	// Cancelling racing with promotion must keep the ledger exact.
	for i := range n / 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if regs[i] != nil {
				_, err := f.svc.Cancel(ctx, regs[i].ID)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	confirmed, err := f.svc.List(ctx, Filter{EventID: "ev-1", Status: models.StatusConfirmed})
	require.NoError(t, err)
	waiting, err := f.svc.List(ctx, Filter{EventID: "ev-1", Status: models.StatusWaitlist})
	require.NoError(t, err)
	assert.Len(t, confirmed, capacity)
	assert.Len(t, waiting, n/2-capacity)
	f.assertLedger(t, capacity)
	for i, reg := range waiting {
		require.NotNil(t, reg.WaitlistPosition)
		assert.Equal(t, i+1, *reg.WaitlistPosition)
	}
}
