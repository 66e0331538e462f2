// Package queue defines the auth events published to the message broker
// and the background consumer that feeds the notification log.
package queue

// Queue name shared by publisher and consumer.
const AuthEventsQueue = "auth.events"

// Event types.
const (
	EventUserRegistered         = "user.registered"
	EventPartnerRegistered      = "partner.registered"
	EventPasswordResetRequested = "password.reset.requested"
)

// AuthEvent is published on signup and on password-reset requests. It
// carries enough for downstream consumers (push notifications, the mailer)
// without querying the primary database. ResetToken is set only on
// password-reset events; the mailer embeds it in the reset link.
type AuthEvent struct {
	Type        string `json:"type"`
	PrincipalID string `json:"principal_id"`
	Kind        string `json:"kind"` // "user" | "partner"
	Email       string `json:"email"`
	ResetToken  string `json:"reset_token,omitempty"`
	OccurredAt  string `json:"occurred_at"` // RFC3339 UTC
}
