// Package ledger owns Event.SlotsFilled. No other code path writes it.
package ledger

import (
	"fmt"

	"github.com/gdg-garage/medislot-api/internal/apperr"
	"github.com/gdg-garage/medislot-api/internal/database"
	"github.com/gdg-garage/medislot-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Delta returns the change in occupied seats caused by moving a
// registration from one status to another. An empty status means the
// record does not exist (before creation or after deletion).
func Delta(from, to models.RegistrationStatus) int {
	switch {
	case !from.Occupies() && to.Occupies():
		return 1
	case from.Occupies() && !to.Occupies():
		return -1
	default:
		return 0
	}
}

// Lock reads the event row, taking a row lock where the dialect supports it.
func Lock(tx *gorm.DB, eventID string) (*models.Event, error) {
	var ev models.Event
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&ev, "id = ?", eventID).Error
	if database.IsNotFound(err) {
		return nil, apperr.NotFound("event %s not found", eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("lock event %s: %w", eventID, err)
	}
	return &ev, nil
}

// Adjust atomically adds delta (+1 or -1) to slots_filled and re-reads the
// row. If the result leaves [0, slots_total] the inverse delta is applied
// and invalid_capacity_state is returned.
func Adjust(tx *gorm.DB, eventID string, delta int) (*models.Event, error) {
	if delta != 1 && delta != -1 {
		return nil, apperr.InvalidInput("capacity delta must be +1 or -1, got %d", delta)
	}

	res := tx.Model(&models.Event{}).Where("id = ?", eventID).
		UpdateColumn("slots_filled", gorm.Expr("slots_filled + ?", delta))
	if res.Error != nil {
		return nil, fmt.Errorf("adjust event %s: %w", eventID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("event %s not found", eventID)
	}

	var ev models.Event
	if err := tx.First(&ev, "id = ?", eventID).Error; err != nil {
		return nil, fmt.Errorf("re-read event %s: %w", eventID, err)
	}
	if ev.SlotsFilled >= 0 && ev.SlotsFilled <= ev.SlotsTotal {
		return &ev, nil
	}

	err := tx.Model(&models.Event{}).Where("id = ?", eventID).
		UpdateColumn("slots_filled", gorm.Expr("slots_filled - ?", delta)).Error
	if err != nil {
		return nil, fmt.Errorf("compensate event %s: %w", eventID, err)
	}
	return nil, apperr.New(apperr.KindInvalidCapacityState,
		"event %s would have %d of %d slots filled", eventID, ev.SlotsFilled, ev.SlotsTotal)
}

// Apply adjusts the ledger for a status change. It returns nil, nil when the
// change does not touch occupancy.
func Apply(tx *gorm.DB, eventID string, from, to models.RegistrationStatus) (*models.Event, error) {
	d := Delta(from, to)
	if d == 0 {
		return nil, nil
	}
	return Adjust(tx, eventID, d)
}

// Occupied counts the registrations holding a seat. It always equals
// slots_filled outside a transaction.
func Occupied(tx *gorm.DB, eventID string) (int64, error) {
	var n int64
	err := tx.Model(&models.Registration{}).
		Where("event_id = ? AND status IN ?", eventID,
			[]models.RegistrationStatus{models.StatusConfirmed, models.StatusAttended}).
		Count(&n).Error
	return n, err
}
