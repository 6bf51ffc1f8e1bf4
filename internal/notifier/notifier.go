// Package notifier delivers best-effort messages to registrants, customers
// and staff. Nothing here may fail a booking or registration.
package notifier

import (
	"context"
	"errors"
	"log/slog"
)

type Kind string

const (
	KindBookingConfirmed       Kind = "booking.confirmed"
	KindRegistrationConfirmed  Kind = "registration.confirmed"
	KindRegistrationWaitlisted Kind = "registration.waitlisted"
	KindWaitlistPromoted       Kind = "registration.promoted"
)

type Recipient struct {
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`
}

type Message struct {
	Kind      Kind   `json:"kind"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Reference string `json:"reference,omitempty"`
}

// Notifier delivers one message synchronously.
type Notifier interface {
	Notify(ctx context.Context, to Recipient, msg Message) error
}

// Dispatcher hands a message off without waiting for delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, to Recipient, msg Message)
}

type NotifierFunc func(ctx context.Context, to Recipient, msg Message) error

func (f NotifierFunc) Notify(ctx context.Context, to Recipient, msg Message) error {
	return f(ctx, to, msg)
}

// Multi sends to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, to Recipient, msg Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, to, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes messages to the structured log. It stands in for the SMS and
// email gateways.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(ctx context.Context, to Recipient, msg Message) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification",
		"kind", msg.Kind,
		"user_id", to.UserID,
		"phone", to.Phone,
		"email", to.Email,
		"reference", msg.Reference,
		"title", msg.Title,
	)
	return nil
}
