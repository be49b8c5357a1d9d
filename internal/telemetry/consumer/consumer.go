// Package consumer reads auth events back off Kafka and forwards them to an emitter,
// so broker-published events also land in the OTel log pipeline.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"identity-gateway/backend/internal/telemetry"
	"identity-gateway/backend/internal/telemetry/domain"
)

const forwardTimeout = 10 * time.Second

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Config describes the topic and consumer group to read.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Consumer forwards every decodable event on the topic to sink.
type Consumer struct {
	reader messageReader
	sink   telemetry.EventEmitter
	logger *slog.Logger
}

// New returns a consumer reading cfg.Topic as cfg.GroupID.
func New(cfg Config, sink telemetry.EventEmitter, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("consumer: no brokers")
	}
	if cfg.Topic == "" || cfg.GroupID == "" {
		return nil, errors.New("consumer: topic and group id are required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
	return newConsumer(reader, sink, logger), nil
}

func newConsumer(reader messageReader, sink telemetry.EventEmitter, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = telemetry.Nop{}
	}
	return &Consumer{reader: reader, sink: sink, logger: logger}
}

// Run reads until ctx is cancelled. Undecodable messages and sink failures are
// logged and skipped. Returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.WarnContext(ctx, "kafka read failed", slog.Any("error", err))
			continue
		}
		c.forward(ctx, msg)
	}
}

func (c *Consumer) forward(ctx context.Context, msg kafka.Message) {
	var event domain.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil || event.Type == "" {
		c.logger.WarnContext(ctx, "skipping malformed auth event",
			slog.Int("partition", msg.Partition), slog.Int64("offset", msg.Offset))
		return
	}
	fwdCtx, cancel := context.WithTimeout(ctx, forwardTimeout)
	defer cancel()
	if err := c.sink.Emit(fwdCtx, &event); err != nil {
		c.logger.WarnContext(ctx, "forwarding auth event failed",
			slog.String("event_type", event.Type), slog.Any("error", err))
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
