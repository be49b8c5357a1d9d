package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew_AddsServiceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "json", ServiceName: "identity-gateway", Environment: "test"}, &buf)

	logger.Info("hello")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "identity-gateway", entry["service"])
	assert.Equal(t, "test", entry["environment"])
	assert.Equal(t, "hello", entry["msg"])
}

func TestNew_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json"}, &buf)

	logger.Info("event",
		slog.String("password_hash", "$2a$..."),
		slog.String("session_token", "eyJ..."),
		slog.String("dev_code", "123456"),
		slog.String("Authorization", "Bearer x"),
		slog.String("phone", "****0001"),
	)

	entry := decodeLine(t, &buf)
	assert.Equal(t, redacted, entry["password_hash"])
	assert.Equal(t, redacted, entry["session_token"])
	assert.Equal(t, redacted, entry["dev_code"])
	assert.Equal(t, redacted, entry["Authorization"])
	assert.Equal(t, "****0001", entry["phone"])
}

func TestNew_RedactsOTPKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "debug", Format: "json"}, &buf)

	logger.Debug("delivery",
		slog.String("otp", "987654"),
		slog.String("Code", "987654"),
		slog.String("otp_code", "987654"),
		slog.Int("status_code", 200),
	)

	entry := decodeLine(t, &buf)
	assert.Equal(t, redacted, entry["otp"])
	assert.Equal(t, redacted, entry["Code"])
	assert.Equal(t, redacted, entry["otp_code"])
	assert.EqualValues(t, 200, entry["status_code"])
	assert.NotContains(t, buf.String(), "987654")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn"}, &buf)

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestNew_TraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{}, &buf)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoContext(ctx, "traced")

	entry := decodeLine(t, &buf)
	assert.Equal(t, sc.TraceID().String(), entry["trace_id"])
	assert.Equal(t, sc.SpanID().String(), entry["span_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, logger, FromContext(WithLogger(context.Background(), logger)))
}
