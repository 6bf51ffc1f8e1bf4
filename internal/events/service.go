// Package events is the administrative surface for events. Capacity
// accounting stays in the ledger; this package only changes slots_total.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gdg-garage/medislot-api/internal/apperr"
	"github.com/gdg-garage/medislot-api/internal/database"
	"github.com/gdg-garage/medislot-api/internal/ledger"
	"github.com/gdg-garage/medislot-api/internal/models"
	"github.com/gdg-garage/medislot-api/internal/notifier"
	"github.com/gdg-garage/medislot-api/internal/obs"
	"github.com/gdg-garage/medislot-api/internal/waitlist"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type Service struct {
	runner   *database.TxRunner
	dispatch notifier.Dispatcher
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewService(runner *database.TxRunner, dispatch notifier.Dispatcher, logger *slog.Logger) *Service {
	if dispatch == nil {
		dispatch = notifier.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runner: runner, dispatch: dispatch, logger: logger, now: time.Now, newID: uuid.NewString}
}

// View is an event with its derived free seat count.
type View struct {
	models.Event
	SlotsRemaining int `json:"slots_remaining"`
}

func viewOf(ev models.Event) View {
	return View{Event: ev, SlotsRemaining: ev.Remaining()}
}

type Input struct {
	Name        string
	Description string
	Date        time.Time
	Time        string
	Location    string
	SlotsTotal  int
}

func (in Input) validate() error {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if in.Date.IsZero() {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(in.Location) == "" {
		missing = append(missing, "location")
	}
	if len(missing) > 0 {
		return apperr.InvalidInput("missing required fields").WithDetails(missing...)
	}
	if !models.IsClockTime(in.Time) {
		return apperr.InvalidInput("invalid time %q, expected HH:mm", in.Time)
	}
	if in.SlotsTotal < 0 {
		return apperr.InvalidInput("slots_total must not be negative")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in Input) (*View, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ev := models.Event{
		ID:          s.newID(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Date:        in.Date.UTC(),
		Time:        in.Time,
		Location:    strings.TrimSpace(in.Location),
		SlotsTotal:  in.SlotsTotal,
	}
	if err := s.runner.DB().WithContext(ctx).Create(&ev).Error; err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.logger.Info("event created", "event_id", ev.ID, "slots_total", ev.SlotsTotal)
	v := viewOf(ev)
	return &v, nil
}

func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	var ev models.Event
	err := s.runner.DB().WithContext(ctx).First(&ev, "id = ?", id).Error
	if database.IsNotFound(err) {
		return nil, apperr.NotFound("event %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	v := viewOf(ev)
	return &v, nil
}

type ListQuery struct {
	From, To time.Time
	// Q matches name, location or description.
	Q    string
	Sort string
	Desc bool
}

var sortColumns = map[string]string{
	"date":       "date",
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]View, error) {
	tx := s.runner.DB().WithContext(ctx).Model(&models.Event{})
	if !q.From.IsZero() {
		tx = tx.Where("date >= ?", q.From.UTC())
	}
	if !q.To.IsZero() {
		tx = tx.Where("date <= ?", q.To.UTC())
	}
	if term := strings.TrimSpace(q.Q); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(location) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}
	col, ok := sortColumns[q.Sort]
	if !ok {
		col = "date"
	}
	dir := " ASC"
	if q.Desc {
		dir = " DESC"
	}

	var evs []models.Event
	if err := tx.Order(col + dir).Order("id ASC").Find(&evs).Error; err != nil {
		return nil, err
	}
	out := make([]View, 0, len(evs))
	for _, ev := range evs {
		out = append(out, viewOf(ev))
	}
	return out, nil
}

// Upcoming lists events in the next days days, soonest first.
func (s *Service) Upcoming(ctx context.Context, days int) ([]View, error) {
	if days < 1 {
		days = 30
	}
	now := s.now().UTC()
	return s.List(ctx, ListQuery{From: now, To: now.AddDate(0, 0, days), Sort: "date"})
}

type Patch struct {
	Name        *string
	Description *string
	Date        *time.Time
	Time        *string
	Location    *string
	SlotsTotal  *int
}

// Update applies a partial change. Raising slots_total promotes waitlisted
// registrations into the new seats in the same transaction.
func (s *Service) Update(ctx context.Context, id string, p Patch) (view *View, err error) {
	ctx, span := obs.Start(ctx, "events.Update", attribute.String("event.id", id))
	defer func() { obs.End(span, err) }()

	if p.Time != nil && !models.IsClockTime(*p.Time) {
		return nil, apperr.InvalidInput("invalid time %q, expected HH:mm", *p.Time)
	}
	if p.SlotsTotal != nil && *p.SlotsTotal < 0 {
		return nil, apperr.InvalidInput("slots_total must not be negative")
	}

	var promoted []models.Registration
	err = s.runner.Run(ctx, func(tx *gorm.DB) error {
		promoted = nil

		ev, err := ledger.Lock(tx, id)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if p.Name != nil {
			updates["name"] = strings.TrimSpace(*p.Name)
		}
		if p.Description != nil {
			updates["description"] = *p.Description
		}
		if p.Date != nil {
			updates["date"] = p.Date.UTC()
		}
		if p.Time != nil {
			updates["time"] = *p.Time
		}
		if p.Location != nil {
			updates["location"] = strings.TrimSpace(*p.Location)
		}
		if p.SlotsTotal != nil {
			if *p.SlotsTotal < ev.SlotsFilled {
				return apperr.InvalidInput("slots_total %d is below the %d seats already filled", *p.SlotsTotal, ev.SlotsFilled)
			}
			updates["slots_total"] = *p.SlotsTotal
		}
		if len(updates) > 0 {
			updates["updated_at"] = s.now().UTC()
			if err := tx.Model(&models.Event{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("update event %s: %w", id, err)
			}
		}

		if p.SlotsTotal != nil && *p.SlotsTotal > ev.SlotsTotal {
			if promoted, err = waitlist.PromoteAll(tx, id, s.now().UTC()); err != nil {
				return err
			}
		}

		var fresh models.Event
		if err := tx.First(&fresh, "id = ?", id).Error; err != nil {
			return err
		}
		v := viewOf(fresh)
		view = &v
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range promoted {
		reg := &promoted[i]
		s.logger.Info("waitlist promoted", "event_id", id, "registration_id", reg.ID)
		s.dispatch.Dispatch(ctx, notifier.RegistrantOf(reg), notifier.WaitlistPromoted(reg, &view.Event))
	}
	return view, nil
}

// Delete removes an event that has no active registrations.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.runner.Run(ctx, func(tx *gorm.DB) error {
		if _, err := ledger.Lock(tx, id); err != nil {
			return err
		}
		var active int64
		err := tx.Model(&models.Registration{}).
			Where("event_id = ? AND status <> ?", id, models.StatusCancelled).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return apperr.InvalidInput("event has %d active registrations", active)
		}
		if err := tx.Where("event_id = ?", id).Delete(&models.Registration{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Event{}, "id = ?", id).Error
	})
}
