// Package qr renders registration passes and reads them back at the door.
// The payload is informational only; scanning always reloads the record.
package qr

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gdg-garage/medislot-api/internal/apperr"
	"github.com/gdg-garage/medislot-api/internal/models"
	"github.com/skip2/go-qrcode"
)

const (
	PayloadType = "event.registration"
	DefaultSize = 320
)

type EventInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Date     time.Time `json:"date"`
	Time     string    `json:"time"`
	Location string    `json:"location"`
}

type PatientInfo struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	NIC     string  `json:"nic"`
	Gender  string  `json:"gender,omitempty"`
	Age     int     `json:"age"`
	Address string  `json:"address,omitempty"`
	Contact string  `json:"contact"`
	Email   *string `json:"email"`
}

type Payload struct {
	Type           string                    `json:"type"`
	RegistrationID string                    `json:"registration_id"`
	Event          EventInfo                 `json:"event"`
	Patient        PatientInfo               `json:"patient"`
	Status         models.RegistrationStatus `json:"status"`
	IssuedAt       time.Time                 `json:"issued_at"`
}

func NewPayload(reg *models.Registration, ev *models.Event, issuedAt time.Time) Payload {
	var email *string
	if reg.Email != "" {
		email = &reg.Email
	}
	return Payload{
		Type:           PayloadType,
		RegistrationID: reg.ID,
		Event: EventInfo{
			ID:       ev.ID,
			Name:     ev.Name,
			Date:     ev.Date,
			Time:     ev.Time,
			Location: ev.Location,
		},
		Patient: PatientInfo{
			ID:      reg.PatientID,
			Name:    reg.Name,
			NIC:     reg.NIC,
			Gender:  reg.Gender,
			Age:     reg.Age,
			Address: reg.Address,
			Contact: reg.Contact,
			Email:   email,
		},
		Status:   reg.Status,
		IssuedAt: issuedAt.UTC(),
	}
}

// PNG encodes the payload as JSON inside a QR code image.
func (p Payload) PNG(size int) ([]byte, error) {
	text, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return Render(string(text), size)
}

func Render(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}

// ParseScan extracts a registration id from a scan request. An explicit
// registrationID wins; otherwise qrText may be a payload, a JSON string or a
// bare id.
func ParseScan(qrText, registrationID string) (string, error) {
	if id := strings.TrimSpace(registrationID); id != "" {
		return id, nil
	}
	text := strings.TrimSpace(qrText)
	if text == "" {
		return "", apperr.InvalidInput("missing or invalid registration_id")
	}

	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return text, nil
	}
	switch v := raw.(type) {
	case string:
		if v = strings.TrimSpace(v); v != "" {
			return v, nil
		}
	case map[string]any:
		id, _ := v["registration_id"].(string)
		if v["type"] == PayloadType && id != "" {
			return id, nil
		}
	}
	return "", apperr.InvalidInput("missing or invalid registration_id")
}
