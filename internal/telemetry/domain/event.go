package domain

import "time"

// Auth event types.
const (
	EventOTPIssued        = "otp_issued"
	EventOTPVerified      = "otp_verified"
	EventOTPVerifyFailed  = "otp_verify_failed"
	EventIdentityResolved = "identity_resolved"
	EventSessionRevoked   = "session_revoked"
)

// Event is an authentication event published best-effort to the configured sinks.
// Phone is always masked; codes, hashes and tokens are never carried.
type Event struct {
	Type      string    `json:"type"`
	AccountID string    `json:"account_id,omitempty"`
	Method    string    `json:"method,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
