// Package catalog reads health centers and the tests they offer. It never
// writes; catalog data is maintained elsewhere and seeded for development.
package catalog

import (
	"fmt"

	"github.com/gdg-garage/medislot-api/internal/apperr"
	"github.com/gdg-garage/medislot-api/internal/database"
	"github.com/gdg-garage/medislot-api/internal/models"
	"gorm.io/gorm"
)

// Center returns an active health center.
func Center(tx *gorm.DB, id string) (*models.HealthCenter, error) {
	var c models.HealthCenter
	err := tx.First(&c, "id = ?", id).Error
	if database.IsNotFound(err) {
		return nil, apperr.NotFound("health center %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load center %s: %w", id, err)
	}
	if !c.IsActive {
		return nil, apperr.InvalidInput("health center %s is not accepting bookings", id)
	}
	return &c, nil
}

// Offering is a center service resolved to the name and price that apply
// right now.
type Offering struct {
	CenterServiceID string `json:"center_service_id"`
	TestID          string `json:"test_id"`
	Name            string `json:"name"`
	Price           int64  `json:"price"`
}

func offeringOf(cs models.CenterService) Offering {
	price := cs.Test.Price
	if cs.PriceOverride != nil {
		price = *cs.PriceOverride
	}
	return Offering{
		CenterServiceID: cs.ID,
		TestID:          cs.TestID,
		Name:            cs.Test.Name,
		Price:           price,
	}
}

// Resolve maps each ref to an active offering at centerID. A ref is tried
// as a center service id first and then as a lab test id. Unresolved refs
// are reported in the error details. The result keeps the order of refs.
func Resolve(tx *gorm.DB, centerID string, refs []string) ([]Offering, error) {
	if len(refs) == 0 {
		return nil, apperr.InvalidInput("no tests provided")
	}

	var byID []models.CenterService
	err := tx.Preload("Test").
		Where("health_center_id = ? AND is_active = ? AND id IN ?", centerID, true, refs).
		Find(&byID).Error
	if err != nil {
		return nil, fmt.Errorf("resolve center services: %w", err)
	}
	found := make(map[string]models.CenterService, len(refs))
	for _, cs := range byID {
		found[cs.ID] = cs
	}

	var rest []string
	for _, ref := range refs {
		if _, ok := found[ref]; !ok {
			rest = append(rest, ref)
		}
	}
	if len(rest) > 0 {
		var byTest []models.CenterService
		err := tx.Preload("Test").
			Where("health_center_id = ? AND is_active = ? AND test_id IN ?", centerID, true, rest).
			Find(&byTest).Error
		if err != nil {
			return nil, fmt.Errorf("resolve tests: %w", err)
		}
		for _, cs := range byTest {
			found[cs.TestID] = cs
		}
	}

	out := make([]Offering, 0, len(refs))
	var missing []string
	for _, ref := range refs {
		cs, ok := found[ref]
		if !ok {
			missing = append(missing, ref)
			continue
		}
		out = append(out, offeringOf(cs))
	}
	if len(missing) > 0 {
		return nil, apperr.InvalidInput("invalid test ids").WithDetails(missing...)
	}
	return out, nil
}

// Services lists the active offerings of a center.
func Services(tx *gorm.DB, centerID string) ([]Offering, error) {
	var rows []models.CenterService
	err := tx.Preload("Test").
		Where("health_center_id = ? AND is_active = ?", centerID, true).
		Order("id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Offering, 0, len(rows))
	for _, cs := range rows {
		out = append(out, offeringOf(cs))
	}
	return out, nil
}

// Centers lists active health centers by name.
func Centers(tx *gorm.DB) ([]models.HealthCenter, error) {
	var centers []models.HealthCenter
	err := tx.Where("is_active = ?", true).Order("name").Find(&centers).Error
	return centers, err
}
