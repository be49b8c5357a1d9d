package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identity-gateway/backend/internal/telemetry/domain"
)

type fakeWriter struct {
	msgs     []kafka.Message
	err      error
	closed   int
	deadline bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	_, w.deadline = ctx.Deadline()
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed++
	return nil
}

type fakeConn struct {
	subjects []string
	payloads [][]byte
	drained  bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func (c *fakeConn) Drain() error {
	c.drained = true
	return nil
}

func testEvent() *domain.Event {
	return &domain.Event{
		Type:      domain.EventOTPVerified,
		AccountID: "acc-1",
		Method:    "otp",
		Phone:     "****0001",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestNewKafkaProducer_Validation(t *testing.T) {
	_, err := NewKafkaProducer(nil, "auth-events")
	assert.Error(t, err)
	_, err = NewKafkaProducer([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	p, err := NewKafkaProducer([]string{"localhost:9092"}, "auth-events")
	require.NoError(t, err)
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
}

func TestKafkaProducer_Emit(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, topic: "auth-events"}

	require.NoError(t, p.Emit(context.Background(), testEvent()))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "acc-1", string(msg.Key))
	assert.True(t, w.deadline, "write should carry a timeout")
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, domain.EventOTPVerified, string(msg.Headers[0].Value))

	var got domain.Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "****0001", got.Phone)
	assert.Equal(t, "otp", got.Method)
}

func TestKafkaProducer_EmitErrorAndNil(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := &KafkaProducer{writer: w}
	assert.Error(t, p.Emit(context.Background(), testEvent()))
	assert.NoError(t, p.Emit(context.Background(), nil))

	var nilProducer *KafkaProducer
	assert.NoError(t, nilProducer.Emit(context.Background(), testEvent()))
	assert.NoError(t, nilProducer.Close())
}

func TestNewNATSProducer_Validation(t *testing.T) {
	_, err := NewNATSProducer("", "auth.events")
	assert.Error(t, err)
	_, err = NewNATSProducer("nats://127.0.0.1:4222", "")
	assert.Error(t, err)
}

func TestNATSProducer_Emit(t *testing.T) {
	conn := &fakeConn{}
	p := &NATSProducer{conn: conn, subject: "auth.events"}

	require.NoError(t, p.Emit(context.Background(), testEvent()))
	assert.Equal(t, []string{"auth.events.otp_verified"}, conn.subjects)

	var got domain.Event
	require.NoError(t, json.Unmarshal(conn.payloads[0], &got))
	assert.Equal(t, "acc-1", got.AccountID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Emit(ctx, testEvent()), context.Canceled)

	require.NoError(t, p.Close())
	assert.True(t, conn.drained)
	assert.NoError(t, p.Close())
}
