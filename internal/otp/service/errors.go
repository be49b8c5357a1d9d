package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for the challenge service; handlers map them to HTTP statuses.
var (
	ErrChallengeNotFound = errors.New("otp challenge not found")
	ErrChallengeExpired  = errors.New("otp challenge expired")
	ErrTooManyAttempts   = errors.New("too many otp attempts")
	ErrInvalidCode       = errors.New("invalid otp code")
	ErrDeliveryFailed    = errors.New("otp delivery failed")
)

// ValidationError reports malformed input. It is returned before any state changes.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
