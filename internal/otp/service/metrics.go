package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "identity-gateway/otp"

var tracer = otel.Tracer(instrumentationName)

// Verify outcomes, used as the "outcome" attribute and in auth events.
const (
	outcomeSuccess         = "success"
	outcomeNotFound        = "not_found"
	outcomeExpired         = "expired"
	outcomeTooManyAttempts = "too_many_attempts"
	outcomeInvalid         = "invalid"
	outcomeError           = "error"
)

type metrics struct {
	issued   metric.Int64Counter
	verified metric.Int64Counter
	accounts metric.Int64Counter
}

func newMetrics() *metrics {
	m, err := buildMetrics(otel.Meter(instrumentationName))
	if err != nil {
		m, _ = buildMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	}
	return m
}

func buildMetrics(meter metric.Meter) (*metrics, error) {
	issued, err := meter.Int64Counter("otp.issued",
		metric.WithDescription("OTP challenges issued"))
	if err != nil {
		return nil, err
	}
	verified, err := meter.Int64Counter("otp.verify",
		metric.WithDescription("OTP verification attempts by outcome"))
	if err != nil {
		return nil, err
	}
	accounts, err := meter.Int64Counter("otp.accounts_created",
		metric.WithDescription("Accounts created on first phone verification"))
	if err != nil {
		return nil, err
	}
	return &metrics{issued: issued, verified: verified, accounts: accounts}, nil
}

func (m *metrics) recordVerify(ctx context.Context, outcome string) {
	m.verified.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
