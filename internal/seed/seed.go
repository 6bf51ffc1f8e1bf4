// Package seed loads catalog and event fixtures from YAML. Applying the same
// document twice leaves the database unchanged.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/gdg-garage/medislot-api/internal/apperr"
	"github.com/gdg-garage/medislot-api/internal/database"
	"github.com/gdg-garage/medislot-api/internal/models"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Event struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Date        string `yaml:"date"`
	Time        string `yaml:"time"`
	Location    string `yaml:"location"`
	SlotsTotal  int    `yaml:"slots_total"`
}

type Document struct {
	Centers        []models.HealthCenter  `yaml:"centers"`
	Tests          []models.LabTest       `yaml:"tests"`
	CenterServices []models.CenterService `yaml:"center_services"`
	Events         []Event                `yaml:"events"`
}

// Counts reports how many rows of each kind were written.
type Counts struct {
	Centers, Tests, CenterServices, Events int
}

func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) validate() error {
	for _, c := range d.Centers {
		if c.ID == "" || c.Name == "" {
			return apperr.InvalidInput("center needs id and name")
		}
	}
	for _, t := range d.Tests {
		if t.ID == "" || t.Name == "" || t.Price < 0 {
			return apperr.InvalidInput("test %q needs id, name and a price", t.ID)
		}
	}
	for _, cs := range d.CenterServices {
		if cs.ID == "" || cs.HealthCenterID == "" || cs.TestID == "" {
			return apperr.InvalidInput("center service %q needs id, health_center_id and test_id", cs.ID)
		}
	}
	for _, e := range d.Events {
		if e.ID == "" || e.Name == "" {
			return apperr.InvalidInput("event needs id and name")
		}
		if _, ok := models.ParseDate(e.Date); !ok {
			return apperr.InvalidInput("event %s: date must be YYYY-MM-DD", e.ID)
		}
		if !models.IsClockTime(e.Time) {
			return apperr.InvalidInput("event %s: time must be HH:mm", e.ID)
		}
		if e.SlotsTotal < 0 {
			return apperr.InvalidInput("event %s: slots_total must not be negative", e.ID)
		}
	}
	return nil
}

// upsert writes rows keyed by id. is_active has a column default, so
// inactive rows are switched off explicitly after the insert. rows is
// copied first because gorm writes column defaults back into the slice.
func upsert[T any](tx *gorm.DB, rows []T, inactive []string) error {
	if len(rows) == 0 {
		return nil
	}
	rows = slices.Clone(rows)
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&rows).Error; err != nil {
		return err
	}
	if len(inactive) == 0 {
		return nil
	}
	var model T
	return tx.Model(&model).Where("id IN ?", inactive).Update("is_active", false).Error
}

// Apply writes the document in one transaction. Events keep their
// slots_filled; slots_total is never lowered below it. doc is not modified.
func Apply(ctx context.Context, runner *database.TxRunner, doc *Document) (Counts, error) {
	var offCenters, offServices []string
	for _, c := range doc.Centers {
		if !c.IsActive {
			offCenters = append(offCenters, c.ID)
		}
	}
	for _, cs := range doc.CenterServices {
		if !cs.IsActive {
			offServices = append(offServices, cs.ID)
		}
	}

	var n Counts
	err := runner.Run(ctx, func(tx *gorm.DB) error {
		n = Counts{}

		if err := upsert(tx, doc.Centers, offCenters); err != nil {
			return fmt.Errorf("seed centers: %w", err)
		}
		if err := upsert(tx, doc.Tests, nil); err != nil {
			return fmt.Errorf("seed tests: %w", err)
		}
		if err := upsert(tx, doc.CenterServices, offServices); err != nil {
			return fmt.Errorf("seed center services: %w", err)
		}

		for _, e := range doc.Events {
			if err := seedEvent(tx, e); err != nil {
				return fmt.Errorf("seed event %s: %w", e.ID, err)
			}
		}
		n = Counts{
			Centers:        len(doc.Centers),
			Tests:          len(doc.Tests),
			CenterServices: len(doc.CenterServices),
			Events:         len(doc.Events),
		}
		return nil
	})
	return n, err
}

func seedEvent(tx *gorm.DB, e Event) error {
	day, _ := models.ParseDate(e.Date)
	ev := models.Event{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Date:        day,
		Time:        e.Time,
		Location:    e.Location,
		SlotsTotal:  e.SlotsTotal,
	}

	var existing models.Event
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&existing, "id = ?", e.ID).Error
	if database.IsNotFound(err) {
		return tx.Create(&ev).Error
	}
	if err != nil {
		return err
	}
	if ev.SlotsTotal < existing.SlotsFilled {
		return apperr.InvalidInput("slots_total %d below %d filled seats", ev.SlotsTotal, existing.SlotsFilled)
	}
	return tx.Model(&existing).Updates(map[string]any{
		"name":        ev.Name,
		"description": ev.Description,
		"date":        ev.Date,
		"time":        ev.Time,
		"location":    ev.Location,
		"slots_total": ev.SlotsTotal,
	}).Error
}
