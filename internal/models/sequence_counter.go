package models

import "time"

// SequenceCounter stores the last issued value for a scope key.
type SequenceCounter struct {
	Scope     string    `gorm:"primaryKey;size:128" json:"scope"`
	Value     int64     `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SequenceCounter) TableName() string { return "sequence_counters" }
