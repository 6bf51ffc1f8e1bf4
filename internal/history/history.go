package history

import (
	"context"
	"time"

	"github.com/gdg-garage/medislot-api/internal/models"
	"gorm.io/gorm"
)

// Record appends a transition row. Call it inside the transaction that
// performs the transition.
func Record(tx *gorm.DB, reg *models.Registration, from, to models.RegistrationStatus, reason models.TransitionReason, at time.Time) error {
	return tx.Create(&models.RegistrationHistory{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		From:           from,
		To:             to,
		Reason:         reason,
		CreatedAt:      at,
	}).Error
}

// List returns all transitions of a registration, oldest first.
func List(ctx context.Context, db *gorm.DB, registrationID string) ([]models.RegistrationHistory, error) {
	var rows []models.RegistrationHistory
	err := db.WithContext(ctx).
		Where("registration_id = ?", registrationID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
