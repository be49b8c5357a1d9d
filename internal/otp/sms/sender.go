// Package sms delivers OTP codes to phones.
package sms

import "context"

// Sender delivers a plaintext code to a phone. Implementations must not log the code at info level.
type Sender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

var (
	_ Sender = (*SMSLocalClient)(nil)
	_ Sender = (*SNSSender)(nil)
	_ Sender = (*LogSender)(nil)
)
