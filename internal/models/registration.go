package models

import (
	"time"
)

type RegistrationStatus string

const (
	StatusConfirmed RegistrationStatus = "confirmed"
	StatusWaitlist  RegistrationStatus = "waitlist"
	StatusCancelled RegistrationStatus = "cancelled"
	StatusAttended  RegistrationStatus = "attended"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusWaitlist, StatusCancelled, StatusAttended:
		return true
	}
	return false
}

// Occupies reports whether a registration in this status holds a seat.
func (s RegistrationStatus) Occupies() bool {
	return s == StatusConfirmed || s == StatusAttended
}

// RegistrantDetails is captured at registration time and never refreshed
// from the registrant's profile.
type RegistrantDetails struct {
	Name    string `gorm:"not null" json:"name"`
	NIC     string `gorm:"column:nic;index;not null" json:"nic"`
	Gender  string `gorm:"size:8" json:"gender,omitempty"`
	Age     int    `gorm:"not null" json:"age"`
	Contact string `gorm:"not null" json:"contact"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

type Registration struct {
	ID                string             `gorm:"primaryKey;size:36" json:"id"`
	EventID           string             `gorm:"size:36;not null;index:idx_event_status_order,priority:1;uniqueIndex:uniq_active_event_patient,where:status <> 'cancelled'" json:"event_id"`
	PatientID         string             `gorm:"size:64;not null;index;uniqueIndex:uniq_active_event_patient,where:status <> 'cancelled'" json:"patient_id"`
	RegistrantDetails `gorm:"embedded"`
	Status            RegistrationStatus `gorm:"size:16;not null;index:idx_event_status_order,priority:2" json:"status"`
	RegisteredAt      time.Time          `gorm:"not null;index:idx_event_status_order,priority:3" json:"registered_at"`
	UpdatedAt         time.Time          `json:"updated_at"`

	// WaitlistPosition is derived on read, never stored.
	WaitlistPosition *int `gorm:"-" json:"waitlist_position,omitempty"`
}
