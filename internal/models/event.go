package models

import (
	"time"
)

// Event is a community health event with a bounded number of seats.
// SlotsFilled is owned by the capacity ledger.
type Event struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	Date        time.Time `gorm:"index;not null" json:"date"`
	Time        string    `gorm:"size:5;not null" json:"time"`
	Location    string    `gorm:"not null" json:"location"`
	SlotsTotal  int       `gorm:"not null" json:"slots_total"`
	SlotsFilled int       `gorm:"not null;default:0" json:"slots_filled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (e Event) Remaining() int {
	if r := e.SlotsTotal - e.SlotsFilled; r > 0 {
		return r
	}
	return 0
}
