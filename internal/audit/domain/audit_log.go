package domain

import "time"

// AuditLog is one persisted authentication event. PhoneMasked never holds a full number.
type AuditLog struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id,omitempty"`
	Action      string    `json:"action"`
	Method      string    `json:"method,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	PhoneMasked string    `json:"phone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
