package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/medislot-api/internal/auth"
	"github.com/gdg-garage/medislot-api/internal/models"
	"github.com/gdg-garage/medislot-api/internal/notifier"
)

type NotificationHandler struct {
	inbox *notifier.InApp
}

func NewNotificationHandler(inbox *notifier.InApp) *NotificationHandler {
	return &NotificationHandler{inbox: inbox}
}

type InboxRequest struct {
	Unread bool `query:"unread" doc:"Only unread notifications"`
}

type InboxResponse struct {
	Body []models.UserNotification
}

func (h *NotificationHandler) HandleInbox(ctx context.Context, input *InboxRequest) (*InboxResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := h.inbox.Inbox(ctx, who.Subject, input.Unread)
	if err != nil {
		return nil, problem(err)
	}
	return &InboxResponse{Body: rows}, nil
}

type MarkReadRequest struct {
	ID uint `path:"id"`
}

func (h *NotificationHandler) HandleMarkRead(ctx context.Context, input *MarkReadRequest) (*struct{}, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	ok, err := h.inbox.MarkRead(ctx, who.Subject, input.ID)
	if err != nil {
		return nil, problem(err)
	}
	if !ok {
		return nil, huma.Error404NotFound("Notification not found")
	}
	return &struct{}{}, nil
}

func (h *NotificationHandler) register(api huma.API) {
	user := auth.Protected()
	huma.Get(api, "/notifications/me", h.HandleInbox, user, tagged("Notifications"))
	huma.Patch(api, "/notifications/{id}/read", h.HandleMarkRead, user, tagged("Notifications"))
}
