package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/medislot-api/internal/apperr"
	"github.com/gdg-garage/medislot-api/internal/auth"
)

const errorTypePrefix = "urn:medislot:error:"

var statusByKind = map[apperr.Kind]int{
	apperr.KindNotFound:                       http.StatusNotFound,
	apperr.KindInvalidInput:                   http.StatusBadRequest,
	apperr.KindDuplicateRegistration:          http.StatusConflict,
	apperr.KindDuplicateAppointmentNumber:     http.StatusConflict,
	apperr.KindInvalidCapacityState:           http.StatusConflict,
	apperr.KindInvalidTransition:              http.StatusConflict,
	apperr.KindResourceTemporarilyUnavailable: http.StatusServiceUnavailable,
	apperr.KindDownstreamUnavailable:          http.StatusBadGateway,
	apperr.KindUnsupported:                    http.StatusMethodNotAllowed,
}

// problem converts a service error into a huma error response.
func problem(err error) error {
	var se huma.StatusError
	if errors.As(err, &se) {
		return err
	}
	var e *apperr.Error
	if !errors.As(err, &e) {
		slog.Error("request failed", "error", err)
		return huma.Error500InternalServerError("Internal server error")
	}
	status, ok := statusByKind[e.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	model := &huma.ErrorModel{
		Type:   errorTypePrefix + string(e.Kind),
		Title:  http.StatusText(status),
		Status: status,
		Detail: e.Error(),
	}
	for _, d := range e.Details {
		model.Errors = append(model.Errors, &huma.ErrorDetail{Message: string(e.Kind), Value: d})
	}
	return model
}

func caller(ctx context.Context) (auth.Identity, error) {
	id, ok := auth.IdentityFrom(ctx)
	if !ok {
		return auth.Identity{}, huma.Error401Unauthorized("Unauthorized")
	}
	return id, nil
}

func forbidden() error {
	return huma.Error403Forbidden("Forbidden")
}
