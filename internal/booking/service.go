// Package booking allocates lab appointments. Each booking receives a
// per-center, per-day appointment number issued in the same transaction
// that stores the booking.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gdg-garage/medislot-api/internal/apperr"
	"github.com/gdg-garage/medislot-api/internal/catalog"
	"github.com/gdg-garage/medislot-api/internal/database"
	"github.com/gdg-garage/medislot-api/internal/models"
	"github.com/gdg-garage/medislot-api/internal/notifier"
	"github.com/gdg-garage/medislot-api/internal/obs"
	"github.com/gdg-garage/medislot-api/internal/sequence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type Service struct {
	runner   *database.TxRunner
	counter  *sequence.Counter
	dispatch notifier.Dispatcher
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewService(runner *database.TxRunner, counter *sequence.Counter, dispatch notifier.Dispatcher, logger *slog.Logger) *Service {
	if dispatch == nil {
		dispatch = notifier.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		runner:   runner,
		counter:  counter,
		dispatch: dispatch,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type PaymentIntent struct {
	Method      models.PaymentMethod
	Status      models.PaymentStatus
	Provider    string
	ProviderRef string
}

type CreateInput struct {
	UserID        string
	CenterID      string
	Date          string
	Time          string
	Services      []string
	PatientName   string
	ContactNumber string
	Email         string
	Payment       PaymentIntent
	// Price overrides the sum of item prices when set.
	Price *int64
}

func (in *CreateInput) validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return apperr.InvalidInput("requester is required")
	}
	if strings.TrimSpace(in.CenterID) == "" {
		return apperr.InvalidInput("healthCenter is required/invalid")
	}
	if _, ok := models.ParseDate(in.Date); !ok {
		return apperr.InvalidInput("scheduledDate must be YYYY-MM-DD")
	}
	if !models.IsClockTime(in.Time) {
		return apperr.InvalidInput("scheduledTime must be HH:mm")
	}
	if strings.TrimSpace(in.PatientName) == "" || strings.TrimSpace(in.ContactNumber) == "" {
		return apperr.InvalidInput("patientName and contactNumber are required")
	}
	if in.Price != nil && *in.Price < 0 {
		return apperr.InvalidInput("price must not be negative")
	}

	seen := make(map[string]bool, len(in.Services))
	refs := in.Services[:0:0]
	for _, ref := range in.Services {
		ref = strings.TrimSpace(ref)
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	if len(refs) == 0 {
		return apperr.InvalidInput("no tests provided")
	}
	in.Services = refs
	return nil
}

func (p PaymentIntent) normalize(amount int64) models.Payment {
	pay := models.Payment{
		Method:      models.PayAtCenter,
		Status:      models.PaymentUnpaid,
		Amount:      amount,
		Provider:    p.Provider,
		ProviderRef: p.ProviderRef,
	}
	if p.Method == models.PayOnline {
		pay.Method = models.PayOnline
	}
	if p.Status == models.PaymentPaid {
		pay.Status = models.PaymentPaid
	}
	return pay
}

// Create validates the request, snapshots item prices and stores the
// booking with the next appointment number for (center, date).
func (s *Service) Create(ctx context.Context, in CreateInput) (b *models.Booking, err error) {
	ctx, span := obs.Start(ctx, "booking.Create",
		attribute.String("center.id", in.CenterID), attribute.String("booking.date", in.Date))
	defer func() { obs.End(span, err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}

	var center *models.HealthCenter
	err = s.runner.Run(ctx, func(tx *gorm.DB) error {
		b = nil

		c, err := catalog.Center(tx, in.CenterID)
		if err != nil {
			return err
		}
		offerings, err := catalog.Resolve(tx, in.CenterID, in.Services)
		if err != nil {
			return err
		}

		items := make([]models.BookingItem, 0, len(offerings))
		seen := make(map[string]bool, len(offerings))
		var total int64
		for _, o := range offerings {
			if seen[o.CenterServiceID] {
				return apperr.InvalidInput("service %s listed twice", o.CenterServiceID)
			}
			seen[o.CenterServiceID] = true
			items = append(items, models.BookingItem{
				CenterServiceID: o.CenterServiceID,
				TestID:          o.TestID,
				Name:            o.Name,
				Price:           o.Price,
			})
			total += o.Price
		}
		if in.Price != nil {
			total = *in.Price
		}

		no, err := s.counter.NextTx(tx, sequence.ScopeKey(in.CenterID, in.Date))
		if err != nil {
			return err
		}

		pay := in.Payment.normalize(total)
		status := models.BookingConfirmed
		if pay.Status == models.PaymentPaid {
			status = models.BookingPaid
		}
		booking := &models.Booking{
			ID:             s.newID(),
			UserID:         in.UserID,
			HealthCenterID: in.CenterID,
			PatientName:    strings.TrimSpace(in.PatientName),
			ContactNumber:  strings.TrimSpace(in.ContactNumber),
			Email:          in.Email,
			ScheduledDate:  in.Date,
			ScheduledTime:  in.Time,
			AppointmentNo:  no,
			Items:          items,
			Payment:        pay,
			Price:          total,
			Status:         status,
		}
		if err := tx.Create(booking).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Wrap(apperr.KindDuplicateAppointmentNumber, err,
					"appointment number %d already taken for %s on %s", no, in.CenterID, in.Date)
			}
			return fmt.Errorf("create booking: %w", err)
		}
		b, center = booking, c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		"booking_id", b.ID, "center_id", b.HealthCenterID, "date", b.ScheduledDate, "appointment_no", b.AppointmentNo)
	s.dispatch.Dispatch(ctx, notifier.CustomerOf(b), notifier.BookingConfirmed(b, center.Name))
	return b, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	err := s.runner.DB().WithContext(ctx).Preload("Items").First(&b, "id = ?", id).Error
	if database.IsNotFound(err) {
		return nil, apperr.NotFound("booking %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

type Scope string

const (
	ScopeUpcoming Scope = "upcoming"
	ScopePast     Scope = "past"
	ScopeAll      Scope = "all"
)

// ListMine returns a user's bookings, latest date first. Dates are compared
// with today's date in UTC.
func (s *Service) ListMine(ctx context.Context, userID string, scope Scope) ([]models.Booking, error) {
	q := s.runner.DB().WithContext(ctx).Preload("Items").Where("user_id = ?", userID)
	today := s.now().UTC().Format(models.DateLayout)
	switch scope {
	case ScopePast:
		q = q.Where("scheduled_date < ?", today)
	case ScopeAll:
	default:
		q = q.Where("scheduled_date >= ?", today)
	}

	bookings := []models.Booking{}
	err := q.Order("scheduled_date DESC").Order("scheduled_time DESC").Order("appointment_no DESC").
		Find(&bookings).Error
	return bookings, err
}

// LabRow is one line of a lab's booking dashboard.
type LabRow struct {
	ID            string               `json:"id"`
	AppointmentNo int64                `json:"appointment_no"`
	Date          string               `json:"date"`
	Time          string               `json:"time"`
	PatientName   string               `json:"patient_name"`
	TestName      string               `json:"test_name"`
	Price         int64                `json:"price"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Status        models.BookingStatus `json:"status"`
}

func (s *Service) ListForCenter(ctx context.Context, centerID string) ([]LabRow, error) {
	if centerID == "" {
		return nil, apperr.InvalidInput("center id missing in token")
	}
	var bookings []models.Booking
	err := s.runner.DB().WithContext(ctx).Preload("Items").
		Where("health_center_id = ?", centerID).
		Order("created_at DESC").Order("appointment_no DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}

	rows := make([]LabRow, 0, len(bookings))
	for _, b := range bookings {
		names := make([]string, 0, len(b.Items))
		for _, it := range b.Items {
			names = append(names, it.Name)
		}
		rows = append(rows, LabRow{
			ID:            b.ID,
			AppointmentNo: b.AppointmentNo,
			Date:          b.ScheduledDate,
			Time:          b.ScheduledTime,
			PatientName:   b.PatientName,
			TestName:      strings.Join(names, ", "),
			Price:         b.Price,
			PaymentMethod: b.Payment.Method,
			PaymentStatus: b.Payment.Status,
			Status:        b.Status,
		})
	}
	return rows, nil
}

// MarkPaid records a successful payment from the payment provider. Calling
// it again for a paid booking changes nothing.
func (s *Service) MarkPaid(ctx context.Context, id, provider, providerRef string) (*models.Booking, error) {
	err := s.runner.Run(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status <> ?", id, models.BookingPaid).
			Updates(map[string]any{
				"status":               models.BookingPaid,
				"payment_status":       models.PaymentPaid,
				"payment_method":       models.PayOnline,
				"payment_provider":     provider,
				"payment_provider_ref": providerRef,
				"updated_at":           s.now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		var n int64
		if err := tx.Model(&models.Booking{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("booking %s not found", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// UpdateStatus is the lab's status change for a booking at centerID. Staff
// can mark a pay-at-center booking paid at the counter; paid bookings stay
// paid. An empty centerID skips the center check.
func (s *Service) UpdateStatus(ctx context.Context, id, centerID string, status models.BookingStatus) (*models.Booking, error) {
	if status != models.BookingConfirmed && status != models.BookingPaid {
		return nil, apperr.InvalidInput("status must be %q or %q", models.BookingConfirmed, models.BookingPaid)
	}
	err := s.runner.Run(ctx, func(tx *gorm.DB) error {
		var b models.Booking
		err := tx.Select("id", "health_center_id", "status").First(&b, "id = ?", id).Error
		if database.IsNotFound(err) {
			return apperr.NotFound("booking %s not found", id)
		}
		if err != nil {
			return err
		}
		if centerID != "" && b.HealthCenterID != centerID {
			return apperr.NotFound("booking %s not found", id)
		}
		switch {
		case b.Status == status:
			return nil
		case b.Status == models.BookingPaid:
			return apperr.InvalidTransition("booking %s is already paid", id)
		}
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", id, b.Status).
			Updates(map[string]any{
				"status":         status,
				"payment_status": models.PaymentPaid,
				"updated_at":     s.now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return database.ErrConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking status updated", "booking_id", id, "status", status)
	return s.Get(ctx, id)
}

func (s *Service) Cancel(context.Context, string) error {
	return apperr.New(apperr.KindUnsupported, "cancel not enabled")
}

func (s *Service) Reschedule(context.Context, string, string, string) error {
	return apperr.New(apperr.KindUnsupported, "reschedule not enabled")
}
