package models

import "time"

// UserNotification is an in-app inbox entry.
type UserNotification struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        string    `gorm:"size:64;index" json:"user_id"`
	ContactNumber string    `gorm:"index" json:"contact_number,omitempty"`
	Title         string    `gorm:"not null" json:"title"`
	Message       string    `gorm:"not null" json:"message"`
	Type          string    `gorm:"size:16;not null" json:"type"`
	Reference     string    `gorm:"size:36;index" json:"reference,omitempty"`
	IsRead        bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt     time.Time `json:"created_at"`
}
