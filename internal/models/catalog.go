package models

import "time"

type HealthCenter struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	Name        string    `gorm:"not null" json:"name" yaml:"name"`
	City        string    `json:"city,omitempty" yaml:"city"`
	Phone       string    `json:"phone,omitempty" yaml:"phone"`
	Email       string    `json:"email,omitempty" yaml:"email"`
	OpeningTime string    `gorm:"size:5" json:"opening_time,omitempty" yaml:"opening_time"`
	ClosingTime string    `gorm:"size:5" json:"closing_time,omitempty" yaml:"closing_time"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active" yaml:"is_active"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

type LabTest struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	Name      string    `gorm:"not null" json:"name" yaml:"name"`
	Category  string    `gorm:"index" json:"category,omitempty" yaml:"category"`
	Price     int64     `gorm:"not null" json:"price" yaml:"price"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// CenterService maps a lab test onto a health center.
type CenterService struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	HealthCenterID string    `gorm:"size:36;not null;uniqueIndex:uniq_center_test" json:"health_center_id" yaml:"health_center_id"`
	TestID         string    `gorm:"size:36;not null;uniqueIndex:uniq_center_test" json:"test_id" yaml:"test_id"`
	Test           LabTest   `gorm:"foreignKey:TestID" json:"test" yaml:"-"`
	PriceOverride  *int64    `json:"price_override,omitempty" yaml:"price_override"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active" yaml:"is_active"`
	CreatedAt      time.Time `json:"created_at" yaml:"-"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"-"`
}
