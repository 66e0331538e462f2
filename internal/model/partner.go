package model

import (
	"database/sql"
	"time"
)

// PartnerStatus tracks the review state of a business account. New signups
// start pending until approved out-of-band.
type PartnerStatus string

const (
	PartnerPending   PartnerStatus = "pending"
	PartnerActive    PartnerStatus = "active"
	PartnerInactive  PartnerStatus = "inactive"
	PartnerSuspended PartnerStatus = "suspended"
)

// Partner mirrors the 'partners' table. Unlike users, partners always have
// a password and a phone number; the business registration number is unique
// across non-revoked rows.
type Partner struct {
	ID                         string
	Email                      string
	PasswordHash               string
	Phone                      string
	Name                       string
	BusinessRegistrationNumber string
	Status                     PartnerStatus
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
	RevokedAt                  sql.NullTime
}
