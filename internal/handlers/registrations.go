package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/medislot-api/internal/auth"
	"github.com/gdg-garage/medislot-api/internal/models"
	"github.com/gdg-garage/medislot-api/internal/registration"
)

type RegistrationHandler struct {
	svc *registration.Service
}

func NewRegistrationHandler(svc *registration.Service) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

type RegistrantBody struct {
	Name    string `json:"name" doc:"Full name"`
	NIC     string `json:"nic" doc:"National identity card number"`
	Gender  string `json:"gender,omitempty"`
	Age     int    `json:"age"`
	Contact string `json:"contact" doc:"Contact phone number"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

func (b RegistrantBody) details() models.RegistrantDetails {
	return models.RegistrantDetails{
		Name:    b.Name,
		NIC:     b.NIC,
		Gender:  b.Gender,
		Age:     b.Age,
		Contact: b.Contact,
		Email:   b.Email,
		Address: b.Address,
	}
}

type RegisterRequest struct {
	EventID string `path:"eventId"`
	Body    RegistrantBody
}

type RegisterOnBehalfRequest struct {
	EventID   string `path:"eventId"`
	PatientID string `path:"patientId"`
	Body      struct {
		RegistrantBody
		Status string `json:"status,omitempty" enum:"confirmed,waitlist" doc:"Force the initial status"`
	}
}

type RegistrationResponse struct {
	Body *models.Registration
}

type RegistrationsResponse struct {
	Body []models.Registration
}

func (h *RegistrationHandler) HandleRegister(ctx context.Context, input *RegisterRequest) (*RegistrationResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := h.svc.Register(ctx, registration.RegisterInput{
		EventID:   input.EventID,
		PatientID: who.Subject,
		Details:   input.Body.details(),
	})
	if err != nil {
		return nil, problem(err)
	}
	return &RegistrationResponse{Body: reg}, nil
}

func (h *RegistrationHandler) HandleRegisterOnBehalf(ctx context.Context, input *RegisterOnBehalfRequest) (*RegistrationResponse, error) {
	reg, err := h.svc.Register(ctx, registration.RegisterInput{
		EventID:   input.EventID,
		PatientID: input.PatientID,
		Details:   input.Body.details(),
		Status:    models.RegistrationStatus(input.Body.Status),
	})
	if err != nil {
		return nil, problem(err)
	}
	return &RegistrationResponse{Body: reg}, nil
}

type ListRegistrationsRequest struct {
	EventID   string `query:"event_id"`
	PatientID string `query:"patient_id"`
	Status    string `query:"status" enum:"confirmed,waitlist,cancelled,attended"`
}

func (h *RegistrationHandler) HandleList(ctx context.Context, input *ListRegistrationsRequest) (*RegistrationsResponse, error) {
	regs, err := h.svc.List(ctx, registration.Filter{
		EventID:   input.EventID,
		PatientID: input.PatientID,
		Status:    models.RegistrationStatus(input.Status),
	})
	if err != nil {
		return nil, problem(err)
	}
	return &RegistrationsResponse{Body: regs}, nil
}

type PatientEventsQuery struct {
	Status string `query:"status" enum:"confirmed,waitlist,cancelled,attended"`
	When   string `query:"when" enum:"all,upcoming,past" default:"all"`
	Sort   string `query:"sort" enum:"event.date,registered_at" default:"event.date"`
	Order  string `query:"order" enum:"asc,desc" default:"desc"`
	Page   int    `query:"page" default:"1" minimum:"1"`
	Limit  int    `query:"limit" default:"10" minimum:"1" maximum:"100"`
}

func (q PatientEventsQuery) query() registration.PatientQuery {
	return registration.PatientQuery{
		Status: models.RegistrationStatus(q.Status),
		When:   registration.When(q.When),
		Sort:   q.Sort,
		Asc:    q.Order == "asc",
		Page:   q.Page,
		Limit:  q.Limit,
	}
}

type MyEventsRequest struct {
	PatientEventsQuery
}

type UserEventsRequest struct {
	UserID string `path:"userId"`
	PatientEventsQuery
}

type PatientEventsResponse struct {
	Body *registration.PatientEventPage
}

func (h *RegistrationHandler) HandleMyEvents(ctx context.Context, input *MyEventsRequest) (*PatientEventsResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	page, err := h.svc.ListForPatient(ctx, who.Subject, input.query())
	if err != nil {
		return nil, problem(err)
	}
	return &PatientEventsResponse{Body: page}, nil
}

func (h *RegistrationHandler) HandleUserEvents(ctx context.Context, input *UserEventsRequest) (*PatientEventsResponse, error) {
	page, err := h.svc.ListForPatient(ctx, input.UserID, input.query())
	if err != nil {
		return nil, problem(err)
	}
	return &PatientEventsResponse{Body: page}, nil
}

type ScanRequest struct {
	Body struct {
		QRText         string `json:"qr_text,omitempty" doc:"Raw text read from the pass"`
		RegistrationID string `json:"registration_id,omitempty"`
	}
}

type ScanResponse struct {
	Body *registration.ScanResult
}

func (h *RegistrationHandler) HandleScan(ctx context.Context, input *ScanRequest) (*ScanResponse, error) {
	res, err := h.svc.Scan(ctx, input.Body.QRText, input.Body.RegistrationID)
	if err != nil {
		return nil, problem(err)
	}
	return &ScanResponse{Body: res}, nil
}

type RegistrationIDRequest struct {
	ID string `path:"id"`
}

// owned loads a registration the caller may act on: their own, or any when
// the caller has one of roles.
func (h *RegistrationHandler) owned(ctx context.Context, id string, roles ...auth.Role) (*models.Registration, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := h.svc.Get(ctx, id)
	if err != nil {
		return nil, problem(err)
	}
	if reg.PatientID != who.Subject && !who.Is(roles...) {
		return nil, forbidden()
	}
	return reg, nil
}

func (h *RegistrationHandler) HandleGet(ctx context.Context, input *RegistrationIDRequest) (*RegistrationResponse, error) {
	reg, err := h.owned(ctx, input.ID, auth.RoleAdmin, auth.RoleLab, auth.RoleLabAdmin)
	if err != nil {
		return nil, err
	}
	return &RegistrationResponse{Body: reg}, nil
}

type HistoryResponse struct {
	Body []models.RegistrationHistory
}

func (h *RegistrationHandler) HandleHistory(ctx context.Context, input *RegistrationIDRequest) (*HistoryResponse, error) {
	if _, err := h.owned(ctx, input.ID, auth.RoleAdmin); err != nil {
		return nil, err
	}
	rows, err := h.svc.History(ctx, input.ID)
	if err != nil {
		return nil, problem(err)
	}
	return &HistoryResponse{Body: rows}, nil
}

type QRResponse struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

func (h *RegistrationHandler) HandleQR(ctx context.Context, input *RegistrationIDRequest) (*QRResponse, error) {
	if _, err := h.owned(ctx, input.ID, auth.RoleAdmin); err != nil {
		return nil, err
	}
	png, err := h.svc.QRCode(ctx, input.ID)
	if err != nil {
		return nil, problem(err)
	}
	return &QRResponse{ContentType: "image/png", CacheControl: "no-store", Body: png}, nil
}

type UpdateStatusRequest struct {
	ID   string `path:"id"`
	Body struct {
		Status string `json:"status" enum:"confirmed,waitlist,cancelled,attended"`
	}
}

func (h *RegistrationHandler) HandleUpdateStatus(ctx context.Context, input *UpdateStatusRequest) (*RegistrationResponse, error) {
	reg, err := h.svc.UpdateStatus(ctx, input.ID, models.RegistrationStatus(input.Body.Status))
	if err != nil {
		return nil, problem(err)
	}
	return &RegistrationResponse{Body: reg}, nil
}

func (h *RegistrationHandler) HandleCancel(ctx context.Context, input *RegistrationIDRequest) (*RegistrationResponse, error) {
	if _, err := h.owned(ctx, input.ID, auth.RoleAdmin); err != nil {
		return nil, err
	}
	reg, err := h.svc.Cancel(ctx, input.ID)
	if err != nil {
		return nil, problem(err)
	}
	return &RegistrationResponse{Body: reg}, nil
}

func (h *RegistrationHandler) HandleDelete(ctx context.Context, input *RegistrationIDRequest) (*struct{}, error) {
	if err := h.svc.Delete(ctx, input.ID); err != nil {
		return nil, problem(err)
	}
	return &struct{}{}, nil
}

func (h *RegistrationHandler) register(api huma.API) {
	user := auth.Protected()
	admin := auth.Protected(auth.RoleAdmin)
	staff := auth.Protected(auth.RoleAdmin, auth.RoleLab, auth.RoleLabAdmin)
	tags := tagged("Registrations")

	huma.Register(api, operation(huma.Operation{
		OperationID:   "register-for-event",
		Method:        http.MethodPost,
		Path:          "/events/{eventId}/register",
		Summary:       "Register the caller for an event",
		DefaultStatus: http.StatusCreated,
	}, user, tags), h.HandleRegister)
	huma.Register(api, operation(huma.Operation{
		OperationID:   "register-patient-for-event",
		Method:        http.MethodPost,
		Path:          "/events/{eventId}/register/{patientId}",
		Summary:       "Register a patient on their behalf",
		DefaultStatus: http.StatusCreated,
	}, admin, tags), h.HandleRegisterOnBehalf)

	huma.Get(api, "/registrations", h.HandleList, staff, tags)
	huma.Get(api, "/registrations/me/events", h.HandleMyEvents, user, tags)
	huma.Get(api, "/registrations/users/{userId}/events", h.HandleUserEvents, admin, tags)
	huma.Post(api, "/registrations/scan", h.HandleScan, staff, tags)
	huma.Get(api, "/registrations/{id}", h.HandleGet, user, tags)
	huma.Get(api, "/registrations/{id}/history", h.HandleHistory, user, tags)
	huma.Get(api, "/registrations/{id}/qr", h.HandleQR, user, tags, func(o *huma.Operation) {
		o.Responses = map[string]*huma.Response{
			"200": {
				Description: "Registration pass",
				Content:     map[string]*huma.MediaType{"image/png": {}},
			},
		}
	})
	huma.Patch(api, "/registrations/{id}/status", h.HandleUpdateStatus, admin, tags)
	huma.Patch(api, "/registrations/{id}/cancel", h.HandleCancel, user, tags)
	huma.Delete(api, "/registrations/{id}", h.HandleDelete, admin, tags)
}
