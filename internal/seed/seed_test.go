package seed

import (
	"testing"

	"github.com/gdg-garage/medislot-api/internal/apperr"
	"github.com/gdg-garage/medislot-api/internal/database"
	"github.com/gdg-garage/medislot-api/internal/models"
	"github.com/gdg-garage/medislot-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestApplyIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	runner := testutil.NewTxRunner(db)

	doc, err := Load("testdata/sample.yaml")
	require.NoError(t, err)

	n, err := Apply(t.Context(), runner, doc)
	require.NoError(t, err)
	assert.Equal(t, Counts{Centers: 3, Tests: 2, CenterServices: 2, Events: 2}, n)
	assert.False(t, doc.Centers[2].IsActive, "document must not be modified by Apply")

	// A filled seat survives a reseed.
	require.NoError(t, db.Model(&models.Event{}).Where("id = ?", "ev-dental").Update("slots_filled", 1).Error)

	_, err = Apply(t.Context(), runner, doc)
	require.NoError(t, err)

	var centers, services int64
	db.Model(&models.HealthCenter{}).Count(&centers)
	db.Model(&models.CenterService{}).Count(&services)
	assert.Equal(t, int64(3), centers)
	assert.Equal(t, int64(2), services)

	var closed models.HealthCenter
	require.NoError(t, db.First(&closed, "id = ?", "hc-closed").Error)
	assert.False(t, closed.IsActive)

	var cs models.CenterService
	require.NoError(t, db.First(&cs, "id = ?", "cs-galle-fbc").Error)
	require.NotNil(t, cs.PriceOverride)
	assert.Equal(t, int64(1400), *cs.PriceOverride)

	var ev models.Event
	require.NoError(t, db.First(&ev, "id = ?", "ev-dental").Error)
	assert.Equal(t, 1, ev.SlotsFilled)
	assert.Equal(t, 2, ev.SlotsTotal)
}

func TestApplySurvivesRetriedAttempt(t *testing.T) {
	db := testutil.NewDB(t)
	runner := testutil.NewTxRunner(db)

	// Fail the first health center insert so the whole transaction reruns.
	failed := false
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("seed_test:fail_once", func(tx *gorm.DB) {
		if !failed && tx.Statement.Table == "health_centers" {
			failed = true
			tx.AddError(database.ErrConflict)
		}
	}))

	doc, err := Load("testdata/sample.yaml")
	require.NoError(t, err)
	n, err := Apply(t.Context(), runner, doc)
	require.NoError(t, err)
	require.True(t, failed)
	assert.Equal(t, 3, n.Centers)

	var closed models.HealthCenter
	require.NoError(t, db.First(&closed, "id = ?", "hc-closed").Error)
	assert.False(t, closed.IsActive)

	var open models.HealthCenter
	require.NoError(t, db.First(&open, "id = ?", "hc-galle").Error)
	assert.True(t, open.IsActive)
}

func TestApplyRejectsShrinkBelowFilled(t *testing.T) {
	db := testutil.NewDB(t)
	runner := testutil.NewTxRunner(db)

	doc, err := Parse([]byte(`
events:
  - id: ev-1
    name: Camp
    date: "2030-01-01"
    time: "09:00"
    location: Hall
    slots_total: 2
`))
	require.NoError(t, err)
	_, err = Apply(t.Context(), runner, doc)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Event{}).Where("id = ?", "ev-1").Update("slots_filled", 2).Error)

	doc.Events[0].SlotsTotal = 1
	_, err = Apply(t.Context(), runner, doc)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "centres: []"},
		{"bad date", "events: [{id: e, name: n, date: 01/02/2030, time: \"09:00\", location: x, slots_total: 1}]"},
		{"bad time", "events: [{id: e, name: n, date: \"2030-01-02\", time: \"9am\", location: x, slots_total: 1}]"},
		{"center without id", "centers: [{name: Lab}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
