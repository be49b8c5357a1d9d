package domain

import "time"

// MaxAttempts is the number of verification attempts a challenge accepts.
const MaxAttempts = 5

// Challenge is the single live OTP challenge for a phone (otp_challenges table).
// ID identifies one issuance so conditional updates never touch a newer challenge.
type Challenge struct {
	ID        string
	Phone     string
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether now is strictly past ExpiresAt.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Exhausted reports whether the attempt budget is spent.
func (c *Challenge) Exhausted() bool {
	return c.Attempts >= MaxAttempts
}
