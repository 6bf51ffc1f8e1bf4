package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/medislot-api/internal/auth"
	"github.com/gdg-garage/medislot-api/internal/booking"
	"github.com/gdg-garage/medislot-api/internal/models"
)

type BookingHandler struct {
	svc *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{svc: svc}
}

type PaymentBody struct {
	Method      string `json:"method,omitempty" enum:"pay_at_center,online" default:"pay_at_center"`
	Status      string `json:"status,omitempty" enum:"unpaid,paid" default:"unpaid"`
	Provider    string `json:"provider,omitempty"`
	ProviderRef string `json:"provider_ref,omitempty"`
}

type CreateBookingRequest struct {
	Body struct {
		HealthCenter  string       `json:"health_center" doc:"Health center id"`
		ScheduledDate string       `json:"scheduled_date" doc:"YYYY-MM-DD" example:"2026-11-02"`
		ScheduledTime string       `json:"scheduled_time" doc:"HH:mm" example:"08:30"`
		Services      []string     `json:"services" doc:"Center service ids or lab test ids"`
		PatientName   string       `json:"patient_name"`
		ContactNumber string       `json:"contact_number"`
		Email         string       `json:"email,omitempty"`
		Payment       *PaymentBody `json:"payment,omitempty"`
		Price         *int64       `json:"price,omitempty" doc:"Overrides the sum of item prices"`
	}
}

type BookingResponse struct {
	Body *models.Booking
}

type BookingsResponse struct {
	Body []models.Booking
}

func (h *BookingHandler) HandleCreate(ctx context.Context, input *CreateBookingRequest) (*BookingResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	b := input.Body
	in := booking.CreateInput{
		UserID:        who.Subject,
		CenterID:      b.HealthCenter,
		Date:          b.ScheduledDate,
		Time:          b.ScheduledTime,
		Services:      b.Services,
		PatientName:   b.PatientName,
		ContactNumber: b.ContactNumber,
		Email:         b.Email,
		Price:         b.Price,
	}
	if b.Payment != nil {
		in.Payment = booking.PaymentIntent{
			Method:      models.PaymentMethod(b.Payment.Method),
			Status:      models.PaymentStatus(b.Payment.Status),
			Provider:    b.Payment.Provider,
			ProviderRef: b.Payment.ProviderRef,
		}
	}
	created, err := h.svc.Create(ctx, in)
	if err != nil {
		return nil, problem(err)
	}
	return &BookingResponse{Body: created}, nil
}

type MyBookingsRequest struct {
	Scope string `query:"scope" enum:"upcoming,past,all" default:"upcoming"`
}

func (h *BookingHandler) HandleMine(ctx context.Context, input *MyBookingsRequest) (*BookingsResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := h.svc.ListMine(ctx, who.Subject, booking.Scope(input.Scope))
	if err != nil {
		return nil, problem(err)
	}
	return &BookingsResponse{Body: list}, nil
}

type LabBookingsRequest struct {
	Center string `query:"center" doc:"Center id, admins only"`
}

type LabBookingsResponse struct {
	Body []booking.LabRow
}

func (h *BookingHandler) HandleLab(ctx context.Context, input *LabBookingsRequest) (*LabBookingsResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	center := who.CenterID
	if who.IsAdmin() && input.Center != "" {
		center = input.Center
	}
	if center == "" {
		return nil, huma.Error400BadRequest("No health center linked to this account")
	}
	rows, err := h.svc.ListForCenter(ctx, center)
	if err != nil {
		return nil, problem(err)
	}
	return &LabBookingsResponse{Body: rows}, nil
}

type BookingIDRequest struct {
	ID string `path:"id"`
}

// visible loads a booking owned by the caller, staffed by the caller's
// center, or any booking for admins.
func (h *BookingHandler) visible(ctx context.Context, id string) (*models.Booking, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	b, err := h.svc.Get(ctx, id)
	if err != nil {
		return nil, problem(err)
	}
	switch {
	case who.IsAdmin(), b.UserID == who.Subject:
	case who.Is(auth.RoleLab, auth.RoleLabAdmin) && who.CenterID == b.HealthCenterID:
	default:
		return nil, forbidden()
	}
	return b, nil
}

func (h *BookingHandler) HandleGet(ctx context.Context, input *BookingIDRequest) (*BookingResponse, error) {
	b, err := h.visible(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookingResponse{Body: b}, nil
}

type PaymentCallbackRequest struct {
	ID   string `path:"id"`
	Body struct {
		Provider    string `json:"provider"`
		ProviderRef string `json:"provider_ref"`
	}
}

// HandlePayment is called by the payment provider integration once a charge
// has succeeded.
func (h *BookingHandler) HandlePayment(ctx context.Context, input *PaymentCallbackRequest) (*BookingResponse, error) {
	b, err := h.svc.MarkPaid(ctx, input.ID, input.Body.Provider, input.Body.ProviderRef)
	if err != nil {
		return nil, problem(err)
	}
	return &BookingResponse{Body: b}, nil
}

type LabStatusRequest struct {
	ID   string `path:"id"`
	Body struct {
		Status string `json:"status" enum:"confirmed,paid"`
	}
}

// HandleLabStatus lets lab staff update bookings at their own center. Admins
// may update any booking.
func (h *BookingHandler) HandleLabStatus(ctx context.Context, input *LabStatusRequest) (*BookingResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	center := who.CenterID
	if who.IsAdmin() {
		center = ""
	} else if center == "" {
		return nil, huma.Error400BadRequest("No health center linked to this account")
	}
	b, err := h.svc.UpdateStatus(ctx, input.ID, center, models.BookingStatus(input.Body.Status))
	if err != nil {
		return nil, problem(err)
	}
	return &BookingResponse{Body: b}, nil
}

func (h *BookingHandler) HandleCancel(ctx context.Context, input *BookingIDRequest) (*struct{}, error) {
	if _, err := h.visible(ctx, input.ID); err != nil {
		return nil, err
	}
	if err := h.svc.Cancel(ctx, input.ID); err != nil {
		return nil, problem(err)
	}
	return &struct{}{}, nil
}

type RescheduleRequest struct {
	ID   string `path:"id"`
	Body struct {
		ScheduledDate string `json:"scheduled_date"`
		ScheduledTime string `json:"scheduled_time"`
	}
}

func (h *BookingHandler) HandleReschedule(ctx context.Context, input *RescheduleRequest) (*struct{}, error) {
	if _, err := h.visible(ctx, input.ID); err != nil {
		return nil, err
	}
	if err := h.svc.Reschedule(ctx, input.ID, input.Body.ScheduledDate, input.Body.ScheduledTime); err != nil {
		return nil, problem(err)
	}
	return &struct{}{}, nil
}

func (h *BookingHandler) register(api huma.API) {
	user := auth.Protected()
	tags := tagged("Bookings")

	huma.Register(api, operation(huma.Operation{
		OperationID:   "create-booking",
		Method:        http.MethodPost,
		Path:          "/bookings",
		Summary:       "Book lab tests at a health center",
		DefaultStatus: http.StatusCreated,
	}, user, tags), h.HandleCreate)
	huma.Get(api, "/bookings/my", h.HandleMine, user, tags)
	staff := auth.Protected(auth.RoleLab, auth.RoleLabAdmin, auth.RoleAdmin)
	huma.Get(api, "/bookings/lab", h.HandleLab, staff, tags)
	huma.Patch(api, "/bookings/lab/{id}/status", h.HandleLabStatus, staff, tags)
	huma.Get(api, "/bookings/{id}", h.HandleGet, user, tags)
	huma.Post(api, "/bookings/{id}/payment", h.HandlePayment, auth.Protected(auth.RoleAdmin), tags)
	huma.Patch(api, "/bookings/{id}/cancel", h.HandleCancel, user, tags)
	huma.Patch(api, "/bookings/{id}/reschedule", h.HandleReschedule, user, tags)
}
