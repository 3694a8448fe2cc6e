package models

import (
	"time"

	"github.com/google/uuid"
)

// Defaults applied when the bootstrap payload does not declare a type or
// country for the business profile.
const (
	DefaultBusinessType    = "Other"
	DefaultBusinessCountry = "US"
)

type BusinessProfile struct {
	ID        string    `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	Type      string    `json:"type" db:"type"`
	Country   string    `json:"country" db:"country"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
