package sms

import (
	"context"
	"log/slog"

	"identity-gateway/backend/internal/otp"
)

// LogSender records deliveries in the logger instead of sending SMS. For local runs;
// the code is never logged, read it from GET /dev/otp with OTP_RETURN_TO_CLIENT on.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a LogSender writing to logger.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendOTP(ctx context.Context, phone, _ string) error {
	s.logger.InfoContext(ctx, "otp delivery (log-only)", slog.String("phone", otp.MaskPhone(phone)))
	return nil
}
