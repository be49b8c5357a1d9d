package sms

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snsPublisherStub records the last publish and returns err.
type snsPublisherStub struct {
	err  error
	last *sns.PublishInput
}

func (s *snsPublisherStub) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	s.last = in
	if s.err != nil {
		return nil, s.err
	}
	return &sns.PublishOutput{}, nil
}

func TestSNSSender_SendOTP_Success(t *testing.T) {
	// Arrange
	stub := &snsPublisherStub{}
	sender := NewSNSSender(stub)

	// Act
	err := sender.SendOTP(context.Background(), "+15551234567", "123456")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, stub.last)
	assert.Equal(t, "+15551234567", *stub.last.PhoneNumber)
	assert.Contains(t, *stub.last.Message, "123456")
	assert.Equal(t, "Transactional", *stub.last.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue)
}

func TestSNSSender_SendOTP_Error(t *testing.T) {
	// Arrange
	publishErr := errors.New("sns throttled")
	sender := NewSNSSender(&snsPublisherStub{err: publishErr})

	// Act
	err := sender.SendOTP(context.Background(), "+15551234567", "123456")

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, publishErr)
	assert.Contains(t, err.Error(), "sns sms: send otp")
	assert.NotContains(t, err.Error(), "123456")
}

func TestLogSender_SendOTP(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sender := NewLogSender(logger)

	// Act
	err := sender.SendOTP(context.Background(), "+15551234567", "987654")

	// Assert
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "otp delivery (log-only)")
	assert.Contains(t, output, "4567")
	assert.NotContains(t, output, "+15551234567")
	assert.NotContains(t, output, "987654", "code must not appear at info level")
}

func TestLogSender_SendOTP_DebugOmitsCode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	require.NoError(t, NewLogSender(logger).SendOTP(context.Background(), "+15551234567", "987654"))

	assert.NotContains(t, buf.String(), "987654")
}
