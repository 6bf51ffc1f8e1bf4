package models

import (
	"time"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingPaid      BookingStatus = "paid"
)

type PaymentMethod string

const (
	PayAtCenter PaymentMethod = "pay_at_center"
	PayOnline   PaymentMethod = "online"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

type Payment struct {
	Method      PaymentMethod `gorm:"size:16;not null" json:"method"`
	Status      PaymentStatus `gorm:"size:16;not null" json:"status"`
	Amount      int64         `gorm:"not null" json:"amount"`
	Provider    string        `json:"provider,omitempty"`
	ProviderRef string        `json:"provider_ref,omitempty"`
}

// BookingItem snapshots the name and price of one service at booking time.
type BookingItem struct {
	ID              uint   `gorm:"primaryKey" json:"-"`
	BookingID       string `gorm:"size:36;not null;uniqueIndex:uniq_booking_item" json:"-"`
	CenterServiceID string `gorm:"size:36;not null;uniqueIndex:uniq_booking_item" json:"center_service_id"`
	TestID          string `gorm:"size:36" json:"test_id"`
	Name            string `gorm:"not null" json:"name"`
	Price           int64  `gorm:"not null" json:"price"`
}

type Booking struct {
	ID             string        `gorm:"primaryKey;size:36" json:"id"`
	UserID         string        `gorm:"size:64;not null;index" json:"user_id"`
	HealthCenterID string        `gorm:"size:36;not null;uniqueIndex:uniq_appt_no_per_center_day,priority:1;index:idx_slot,priority:1" json:"health_center_id"`
	PatientName    string        `gorm:"not null" json:"patient_name"`
	ContactNumber  string        `gorm:"not null" json:"contact_number"`
	Email          string        `json:"email,omitempty"`
	ScheduledDate  string        `gorm:"size:10;not null;uniqueIndex:uniq_appt_no_per_center_day,priority:2;index:idx_slot,priority:2" json:"scheduled_date"`
	ScheduledTime  string        `gorm:"size:5;not null;index:idx_slot,priority:3" json:"scheduled_time"`
	AppointmentNo  int64         `gorm:"not null;uniqueIndex:uniq_appt_no_per_center_day,priority:3" json:"appointment_no"`
	Items          []BookingItem `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"items"`
	Payment        Payment       `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`
	Price          int64         `gorm:"not null" json:"price"`
	Status         BookingStatus `gorm:"size:16;not null;index" json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
