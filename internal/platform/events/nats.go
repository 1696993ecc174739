// Package events publishes interview lifecycle events to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/interview"
)

const (
	StreamName    = "TELEHEALTH"
	SubjectPrefix = "telehealth.interview."
)

// streamPublisher is the part of jetstream.JetStream the publisher uses.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// drainer is the part of *nats.Conn Close needs.
type drainer interface {
	Drain() error
}

// Publisher implements interview.Publisher on a JetStream stream.
type Publisher struct {
	nc drainer
	js streamPublisher
}

// Connect dials NATS and makes sure the stream exists. A failure to create
// the stream is logged and tolerated so a pre-provisioned stream still works.
func Connect(ctx context.Context, url string, logger zerolog.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("telehealth"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(sctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectPrefix + ">"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
	})
	if err != nil {
		logger.Warn().Err(err).Str("stream", StreamName).Msg("failed to ensure stream")
	}

	return &Publisher{nc: nc, js: js}, nil
}

// Publish sends the event as JSON on telehealth.interview.<type>. The message
// id deduplicates retried publishes of the same event.
func (p *Publisher) Publish(ctx context.Context, e interview.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := Subject(e.Type)
	msgID := fmt.Sprintf("%s:%s:%d", e.CaseID, e.Type, e.OccurredAt.UnixNano())
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID)); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

func Subject(eventType string) string {
	return SubjectPrefix + eventType
}

// Close drains pending publishes and closes the connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}
