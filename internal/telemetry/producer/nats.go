package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"identity-gateway/backend/internal/telemetry/domain"
)

type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSProducer publishes each event on <subject>.<event type>.
type NATSProducer struct {
	conn    natsConn
	subject string
}

// NewNATSProducer connects to url and returns a producer publishing under subject.
func NewNATSProducer(url, subject string) (*NATSProducer, error) {
	if url == "" {
		return nil, errors.New("nats producer: empty url")
	}
	if subject == "" {
		return nil, errors.New("nats producer: empty subject")
	}
	conn, err := nats.Connect(url,
		nats.Name("identity-gateway"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSProducer{conn: conn, subject: subject}, nil
}

func (p *NATSProducer) Emit(ctx context.Context, event *domain.Event) error {
	if p == nil || p.conn == nil || event == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.conn.Publish(p.subject+"."+event.Type, payload)
}

// Close drains pending publishes and closes the connection.
func (p *NATSProducer) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	err := p.conn.Drain()
	p.conn = nil
	return err
}

var _ Producer = (*NATSProducer)(nil)
