package model

import (
	"time"

	"github.com/google/uuid"
)

// Space represents a reservable physical space. Catalog management lives in an
// external subsystem; this service only reads spaces to price and gate
// reservations.
type Space struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `gorm:"size:256;not null" json:"name"`
	Building   string    `gorm:"size:256" json:"building"`
	Capacity   int       `json:"capacity"`
	DailyPrice int64     `gorm:"not null" json:"dailyPrice"`
	CreatedAt  time.Time `gorm:"not null" json:"-"`
	UpdatedAt  time.Time `gorm:"not null" json:"-"`
}
