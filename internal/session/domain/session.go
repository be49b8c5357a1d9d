package domain

import "time"

// Session is an authenticated principal, carried by a signed token.
// ID is the token's jti and the key used for revocation.
type Session struct {
	ID        string
	AccountID string
	Method    string
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Authentication methods recorded in the token's amr claim.
const (
	MethodOTP = "otp"
)
