// Package registration implements the event registration state machine.
//
// Every mutation runs in one transaction covering the registration row, the
// capacity ledger, the transition history and any waitlist promotion.
// Notifications go out only after commit.
package registration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gdg-garage/medislot-api/internal/apperr"
	"github.com/gdg-garage/medislot-api/internal/database"
	"github.com/gdg-garage/medislot-api/internal/history"
	"github.com/gdg-garage/medislot-api/internal/ledger"
	"github.com/gdg-garage/medislot-api/internal/models"
	"github.com/gdg-garage/medislot-api/internal/notifier"
	"github.com/gdg-garage/medislot-api/internal/obs"
	"github.com/gdg-garage/medislot-api/internal/waitlist"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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
	return &Service{
		runner:   runner,
		dispatch: dispatch,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

type RegisterInput struct {
	EventID   string
	PatientID string
	Details   models.RegistrantDetails
	// Status forces the initial status. Only administrators set it.
	Status models.RegistrationStatus
}

func (in RegisterInput) validate() error {
	var missing []string
	if strings.TrimSpace(in.EventID) == "" {
		missing = append(missing, "event_id")
	}
	if strings.TrimSpace(in.PatientID) == "" {
		missing = append(missing, "patient_id")
	}
	if strings.TrimSpace(in.Details.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(in.Details.NIC) == "" {
		missing = append(missing, "nic")
	}
	if strings.TrimSpace(in.Details.Contact) == "" {
		missing = append(missing, "contact")
	}
	if len(missing) > 0 {
		return apperr.InvalidInput("name, nic, age, contact are required").WithDetails(missing...)
	}
	if in.Details.Age < 0 || in.Details.Age > 150 {
		return apperr.InvalidInput("age %d out of range", in.Details.Age)
	}
	switch in.Status {
	case "", models.StatusConfirmed, models.StatusWaitlist:
	default:
		return apperr.InvalidInput("initial status must be confirmed or waitlist, got %q", in.Status)
	}
	return nil
}

// outbox collects messages to send once the transaction has committed.
type outbox []func(ctx context.Context)

func (o *outbox) add(d notifier.Dispatcher, to notifier.Recipient, msg notifier.Message) {
	*o = append(*o, func(ctx context.Context) { d.Dispatch(ctx, to, msg) })
}

func (o outbox) flush(ctx context.Context) {
	for _, send := range o {
		send(ctx)
	}
}

func (s *Service) promotedMessages(out *outbox, ev *models.Event, promoted ...models.Registration) {
	for i := range promoted {
		reg := &promoted[i]
		s.logger.Info("waitlist promoted", "event_id", reg.EventID, "registration_id", reg.ID)
		out.add(s.dispatch, notifier.RegistrantOf(reg), notifier.WaitlistPromoted(reg, ev))
	}
}

// Register creates a registration. The initial status is decided from the
// ledger inside the same transaction as the insert.
func (s *Service) Register(ctx context.Context, in RegisterInput) (reg *models.Registration, err error) {
	ctx, span := obs.Start(ctx, "registration.Register", attribute.String("event.id", in.EventID))
	defer func() { obs.End(span, err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}

	var out outbox
	err = s.runner.Run(ctx, func(tx *gorm.DB) error {
		out = nil

		ev, err := ledger.Lock(tx, in.EventID)
		if err != nil {
			return err
		}

		var active int64
		err = tx.Model(&models.Registration{}).
			Where("event_id = ? AND patient_id = ? AND status <> ?", in.EventID, in.PatientID, models.StatusCancelled).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return apperr.New(apperr.KindDuplicateRegistration, "already registered for this event")
		}

		status := in.Status
		if status == "" {
			status = models.StatusWaitlist
			if ev.Remaining() > 0 {
				status = models.StatusConfirmed
			}
		}

		now := s.clock()
		r := &models.Registration{
			ID:                s.newID(),
			EventID:           in.EventID,
			PatientID:         in.PatientID,
			RegistrantDetails: in.Details,
			Status:            status,
			RegisteredAt:      now,
		}
		if err := tx.Create(r).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Wrap(apperr.KindDuplicateRegistration, err, "already registered for this event")
			}
			return fmt.Errorf("create registration: %w", err)
		}
		if _, err := ledger.Apply(tx, in.EventID, "", status); err != nil {
			return err
		}
		if err := history.Record(tx, r, "", status, models.ReasonRegister, now); err != nil {
			return err
		}

		if r.WaitlistPosition, err = waitlist.Position(tx, r); err != nil {
			return err
		}
		if status == models.StatusConfirmed {
			out.add(s.dispatch, notifier.RegistrantOf(r), notifier.RegistrationConfirmed(r, ev))
		} else {
			out.add(s.dispatch, notifier.RegistrantOf(r), notifier.RegistrationWaitlisted(r, ev, *r.WaitlistPosition))
		}
		reg = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("registration created",
		"registration_id", reg.ID, "event_id", reg.EventID, "status", reg.Status)
	out.flush(ctx)
	return reg, nil
}

// checkTransition enforces the state machine. Same-status updates never
// reach here.
func checkTransition(from, to models.RegistrationStatus) error {
	if from == models.StatusCancelled {
		return apperr.InvalidTransition("registration is cancelled")
	}
	if from == models.StatusWaitlist && to == models.StatusAttended {
		return apperr.InvalidTransition("a waitlisted registration must be confirmed before attending")
	}
	return nil
}

func (s *Service) lockRegistration(tx *gorm.DB, id string) (*models.Registration, error) {
	var reg models.Registration
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&reg, "id = ?", id).Error
	if database.IsNotFound(err) {
		return nil, apperr.NotFound("registration %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load registration %s: %w", id, err)
	}
	return &reg, nil
}

// UpdateStatus moves a registration to status `to`. If a seat is freed the
// oldest waitlisted registration is promoted in the same transaction.
func (s *Service) UpdateStatus(ctx context.Context, id string, to models.RegistrationStatus) (*models.Registration, error) {
	if !to.Valid() {
		return nil, apperr.InvalidInput("invalid status %q", to)
	}
	reason := models.ReasonUpdate
	if to == models.StatusCancelled {
		reason = models.ReasonCancel
	}
	return s.transition(ctx, id, to, reason)
}

// Cancel cancels a registration. Cancelling twice is a no-op.
func (s *Service) Cancel(ctx context.Context, id string) (*models.Registration, error) {
	return s.transition(ctx, id, models.StatusCancelled, models.ReasonCancel)
}

func (s *Service) transition(ctx context.Context, id string, to models.RegistrationStatus, reason models.TransitionReason) (reg *models.Registration, err error) {
	ctx, span := obs.Start(ctx, "registration.Transition",
		attribute.String("registration.id", id), attribute.String("registration.to", string(to)))
	defer func() { obs.End(span, err) }()

	var out outbox
	err = s.runner.Run(ctx, func(tx *gorm.DB) error {
		out = nil

		r, err := s.lockRegistration(tx, id)
		if err != nil {
			return err
		}
		from := r.Status
		if from == to {
			reg = r
			r.WaitlistPosition, err = waitlist.Position(tx, r)
			return err
		}
		if err := checkTransition(from, to); err != nil {
			return err
		}

		ev, err := ledger.Lock(tx, r.EventID)
		if err != nil {
			return err
		}

		now := s.clock()
		res := tx.Model(&models.Registration{}).
			Where("id = ? AND status = ?", r.ID, from).
			Updates(map[string]any{"status": to, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("update registration %s: %w", r.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return database.ErrConflict
		}
		r.Status, r.UpdatedAt = to, now

		updated, err := ledger.Apply(tx, r.EventID, from, to)
		if err != nil {
			return err
		}
		if updated != nil {
			ev = updated
		}
		if err := history.Record(tx, r, from, to, reason, now); err != nil {
			return err
		}

		if ledger.Delta(from, to) < 0 {
			// A registration demoted to the waitlist may not take back
			// the seat it just freed.
			promoted, err := waitlist.PromoteIfCapacity(tx, r.EventID, now, r.ID)
			if err != nil {
				return err
			}
			if promoted != nil {
				s.promotedMessages(&out, ev, *promoted)
			}
		}
		if from == models.StatusWaitlist && to == models.StatusConfirmed {
			out.add(s.dispatch, notifier.RegistrantOf(r), notifier.RegistrationConfirmed(r, ev))
		}

		if r.WaitlistPosition, err = waitlist.Position(tx, r); err != nil {
			return err
		}
		reg = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.flush(ctx)
	return reg, nil
}

// Delete removes a registration permanently, freeing its seat if it held one.
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, span := obs.Start(ctx, "registration.Delete", attribute.String("registration.id", id))
	defer func() { obs.End(span, err) }()

	var out outbox
	err = s.runner.Run(ctx, func(tx *gorm.DB) error {
		out = nil

		r, err := s.lockRegistration(tx, id)
		if err != nil {
			return err
		}
		ev, err := ledger.Lock(tx, r.EventID)
		if err != nil {
			return err
		}

		res := tx.Where("id = ? AND status = ?", r.ID, r.Status).Delete(&models.Registration{})
		if res.Error != nil {
			return fmt.Errorf("delete registration %s: %w", r.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return database.ErrConflict
		}

		now := s.clock()
		if _, err := ledger.Apply(tx, r.EventID, r.Status, ""); err != nil {
			return err
		}
		if err := history.Record(tx, r, r.Status, "", models.ReasonDelete, now); err != nil {
			return err
		}
		if ledger.Delta(r.Status, "") < 0 {
			promoted, err := waitlist.PromoteIfCapacity(tx, r.EventID, now)
			if err != nil {
				return err
			}
			if promoted != nil {
				s.promotedMessages(&out, ev, *promoted)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("registration deleted", "registration_id", id)
	out.flush(ctx)
	return nil
}
