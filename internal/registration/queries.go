package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/gdg-garage/medislot-api/internal/apperr"
	"github.com/gdg-garage/medislot-api/internal/database"
	"github.com/gdg-garage/medislot-api/internal/history"
	"github.com/gdg-garage/medislot-api/internal/models"
	"github.com/gdg-garage/medislot-api/internal/qr"
	"github.com/gdg-garage/medislot-api/internal/waitlist"
	"gorm.io/gorm"
)

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.runner.DB().WithContext(ctx)
}

func (s *Service) load(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	err := s.db(ctx).First(&reg, "id = ?", id).Error
	if database.IsNotFound(err) {
		return nil, apperr.NotFound("registration %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load registration %s: %w", id, err)
	}
	return &reg, nil
}

func (s *Service) loadEvent(ctx context.Context, id string) (*models.Event, error) {
	var ev models.Event
	err := s.db(ctx).First(&ev, "id = ?", id).Error
	if database.IsNotFound(err) {
		return nil, apperr.NotFound("event %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load event %s: %w", id, err)
	}
	return &ev, nil
}

// Get returns a registration with its waitlist position when waitlisted.
func (s *Service) Get(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.WaitlistPosition, err = waitlist.Position(s.db(ctx), reg); err != nil {
		return nil, err
	}
	return reg, nil
}

type Filter struct {
	EventID   string
	PatientID string
	Status    models.RegistrationStatus
}

// List returns registrations in waitlist order.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Registration, error) {
	q := s.db(ctx).Model(&models.Registration{})
	if f.EventID != "" {
		q = q.Where("event_id = ?", f.EventID)
	}
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	regs := []models.Registration{}
	if err := q.Order("registered_at ASC, id ASC").Find(&regs).Error; err != nil {
		return nil, err
	}
	if err := waitlist.Annotate(ctx, s.db(ctx), regs); err != nil {
		return nil, err
	}
	return regs, nil
}

func (s *Service) History(ctx context.Context, id string) ([]models.RegistrationHistory, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	return history.List(ctx, s.runner.DB(), id)
}

type When string

const (
	WhenAll      When = "all"
	WhenUpcoming When = "upcoming"
	WhenPast     When = "past"
)

type PatientQuery struct {
	Status models.RegistrationStatus
	When   When
	// Sort is "event.date" (default) or "registered_at".
	Sort  string
	Asc   bool
	Page  int
	Limit int
}

func (q *PatientQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.When == "" {
		q.When = WhenAll
	}
}

type PatientEvent struct {
	RegistrationID     string                    `json:"registration_id"`
	RegistrationStatus models.RegistrationStatus `json:"registration_status"`
	RegisteredAt       time.Time                 `json:"registered_at"`
	EventID            string                    `json:"event_id"`
	EventName          string                    `json:"event_name"`
	EventDate          time.Time                 `json:"event_date"`
	EventTime          string                    `json:"event_time"`
	EventLocation      string                    `json:"event_location"`
	SlotsTotal         int                       `json:"slots_total"`
	SlotsFilled        int                       `json:"slots_filled"`
	SlotsRemaining     int                       `json:"slots_remaining" gorm:"-"`
	WaitlistPosition   *int                      `json:"waitlist_position,omitempty" gorm:"-"`
}

type PatientEventPage struct {
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Total int64          `json:"total"`
	Pages int64          `json:"pages"`
	Items []PatientEvent `json:"items"`
}

// ListForPatient pages through the events a patient registered for.
func (s *Service) ListForPatient(ctx context.Context, patientID string, q PatientQuery) (*PatientEventPage, error) {
	if patientID == "" {
		return nil, apperr.InvalidInput("invalid user id")
	}
	if q.Status != "" && !q.Status.Valid() {
		q.Status = ""
	}
	q.normalize()

	base := s.db(ctx).Table("registrations AS r").
		Joins("JOIN events AS e ON e.id = r.event_id").
		Where("r.patient_id = ?", patientID)
	if q.Status != "" {
		base = base.Where("r.status = ?", q.Status)
	}
	now := s.clock()
	switch q.When {
	case WhenUpcoming:
		base = base.Where("e.date >= ?", now)
	case WhenPast:
		base = base.Where("e.date < ?", now)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count patient events: %w", err)
	}

	order := "e.date"
	if q.Sort == "registered_at" {
		order = "r.registered_at"
	}
	if q.Asc {
		order += " ASC"
	} else {
		order += " DESC"
	}

	items := []PatientEvent{}
	err := base.Session(&gorm.Session{}).
		Select(`r.id AS registration_id, r.status AS registration_status, r.registered_at,
			e.id AS event_id, e.name AS event_name, e.date AS event_date, e.time AS event_time,
			e.location AS event_location, e.slots_total, e.slots_filled`).
		Order(order).Order("r.id ASC").
		Offset((q.Page - 1) * q.Limit).Limit(q.Limit).
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list patient events: %w", err)
	}

	for i := range items {
		it := &items[i]
		it.SlotsRemaining = max(it.SlotsTotal-it.SlotsFilled, 0)
		reg := &models.Registration{
			ID: it.RegistrationID, EventID: it.EventID,
			Status: it.RegistrationStatus, RegisteredAt: it.RegisteredAt,
		}
		if it.WaitlistPosition, err = waitlist.Position(s.db(ctx), reg); err != nil {
			return nil, err
		}
	}

	limit := int64(q.Limit)
	return &PatientEventPage{
		Page:  q.Page,
		Limit: q.Limit,
		Total: total,
		Pages: (total + limit - 1) / limit,
		Items: items,
	}, nil
}

type ScanResult struct {
	RegistrationID   string                    `json:"registration_id"`
	EventID          string                    `json:"event_id"`
	EventName        string                    `json:"event_name"`
	EventDate        time.Time                 `json:"event_date"`
	EventTime        string                    `json:"event_time"`
	PatientName      string                    `json:"patient_name"`
	NIC              string                    `json:"nic"`
	Gender           string                    `json:"gender,omitempty"`
	Age              int                       `json:"age"`
	Address          string                    `json:"address,omitempty"`
	ContactNumber    string                    `json:"contact_number"`
	Email            string                    `json:"email,omitempty"`
	Status           models.RegistrationStatus `json:"status"`
	WaitlistPosition *int                      `json:"waitlist_position"`
}

// Scan resolves a door scan to the current registration record.
func (s *Service) Scan(ctx context.Context, qrText, registrationID string) (*ScanResult, error) {
	id, err := qr.ParseScan(qrText, registrationID)
	if err != nil {
		return nil, err
	}
	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ev, err := s.loadEvent(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	return &ScanResult{
		RegistrationID:   reg.ID,
		EventID:          ev.ID,
		EventName:        ev.Name,
		EventDate:        ev.Date,
		EventTime:        ev.Time,
		PatientName:      reg.Name,
		NIC:              reg.NIC,
		Gender:           reg.Gender,
		Age:              reg.Age,
		Address:          reg.Address,
		ContactNumber:    reg.Contact,
		Email:            reg.Email,
		Status:           reg.Status,
		WaitlistPosition: reg.WaitlistPosition,
	}, nil
}

// QRCode renders the registration pass as a PNG.
func (s *Service) QRCode(ctx context.Context, id string) ([]byte, error) {
	reg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ev, err := s.loadEvent(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	return qr.NewPayload(reg, ev, s.clock()).PNG(qr.DefaultSize)
}
