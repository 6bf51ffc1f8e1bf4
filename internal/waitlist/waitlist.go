// Package waitlist promotes waitlisted registrations into freed seats.
//
// Waitlist order is (registered_at, id) ascending. Promotion and position
// numbers both use it, so a position of 1 is always the next registration
// to be promoted.
package waitlist

import (
	"context"
	"fmt"
	"time"

	"github.com/gdg-garage/medislot-api/internal/database"
	"github.com/gdg-garage/medislot-api/internal/history"
	"github.com/gdg-garage/medislot-api/internal/ledger"
	"github.com/gdg-garage/medislot-api/internal/models"
	"gorm.io/gorm"
)

// PromoteIfCapacity confirms the oldest waitlisted registration of the event
// if a seat is free. It returns nil when nothing was promoted. Registrations
// listed in exclude are skipped.
func PromoteIfCapacity(tx *gorm.DB, eventID string, at time.Time, exclude ...string) (*models.Registration, error) {
	ev, err := ledger.Lock(tx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.Remaining() <= 0 {
		return nil, nil
	}

	q := tx.Where("event_id = ? AND status = ?", eventID, models.StatusWaitlist)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	var next []models.Registration
	if err := q.Order("registered_at ASC, id ASC").Limit(1).Find(&next).Error; err != nil {
		return nil, fmt.Errorf("select waitlist head: %w", err)
	}
	if len(next) == 0 {
		return nil, nil
	}
	reg := next[0]

	res := tx.Model(&models.Registration{}).
		Where("id = ? AND status = ?", reg.ID, models.StatusWaitlist).
		Updates(map[string]any{"status": models.StatusConfirmed, "updated_at": at})
	if res.Error != nil {
		return nil, fmt.Errorf("promote %s: %w", reg.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Promoted by someone else between select and update.
		return nil, database.ErrConflict
	}
	if _, err := ledger.Adjust(tx, eventID, 1); err != nil {
		return nil, err
	}
	if err := history.Record(tx, &reg, models.StatusWaitlist, models.StatusConfirmed, models.ReasonPromotion, at); err != nil {
		return nil, err
	}

	reg.Status = models.StatusConfirmed
	reg.UpdatedAt = at
	return &reg, nil
}

// PromoteAll fills every free seat from the waitlist.
func PromoteAll(tx *gorm.DB, eventID string, at time.Time, exclude ...string) ([]models.Registration, error) {
	var promoted []models.Registration
	for {
		reg, err := PromoteIfCapacity(tx, eventID, at, exclude...)
		if err != nil {
			return nil, err
		}
		if reg == nil {
			return promoted, nil
		}
		promoted = append(promoted, *reg)
	}
}

// Position returns the 1-based waitlist position of reg, or nil if reg is
// not waitlisted.
func Position(tx *gorm.DB, reg *models.Registration) (*int, error) {
	if reg.Status != models.StatusWaitlist {
		return nil, nil
	}
	var ahead int64
	err := tx.Model(&models.Registration{}).
		Where("event_id = ? AND status = ?", reg.EventID, models.StatusWaitlist).
		Where("registered_at < ? OR (registered_at = ? AND id < ?)", reg.RegisteredAt, reg.RegisteredAt, reg.ID).
		Count(&ahead).Error
	if err != nil {
		return nil, fmt.Errorf("waitlist position of %s: %w", reg.ID, err)
	}
	pos := int(ahead) + 1
	return &pos, nil
}

// Annotate fills WaitlistPosition on each waitlisted registration.
func Annotate(ctx context.Context, db *gorm.DB, regs []models.Registration) error {
	db = db.WithContext(ctx)
	for i := range regs {
		pos, err := Position(db, &regs[i])
		if err != nil {
			return err
		}
		regs[i].WaitlistPosition = pos
	}
	return nil
}
