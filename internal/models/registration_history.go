package models

import (
	"time"
)

type TransitionReason string

const (
	ReasonRegister  TransitionReason = "register"
	ReasonUpdate    TransitionReason = "update"
	ReasonCancel    TransitionReason = "cancel"
	ReasonDelete    TransitionReason = "delete"
	ReasonPromotion TransitionReason = "promotion"
)

// RegistrationHistory is an append-only log of status transitions.
// From is empty for the initial status, To is empty for a deletion.
type RegistrationHistory struct {
	ID             uint               `gorm:"primaryKey" json:"id"`
	RegistrationID string             `gorm:"size:36;index;not null" json:"registration_id"`
	EventID        string             `gorm:"size:36;index;not null" json:"event_id"`
	From           RegistrationStatus `gorm:"column:from_status;size:16" json:"from"`
	To             RegistrationStatus `gorm:"column:to_status;size:16" json:"to"`
	Reason         TransitionReason   `gorm:"size:16;not null" json:"reason"`
	CreatedAt      time.Time          `json:"created_at"`
}
