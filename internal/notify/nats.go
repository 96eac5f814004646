package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventBus publishes normalized build events to a NATS JetStream subject so
// other consumers can follow build progress without polling the status
// endpoint.
type EventBus struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewEventBus connects to NATS and prepares the JetStream context.
func NewEventBus(url, subject string) (*EventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("Event bus connected", "url", url, "subject", subject)
	return &EventBus{conn: conn, js: js, subject: subject}, nil
}

// Publish sends one build event payload.
func (b *EventBus) Publish(payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := b.js.Publish(ctx, b.subject, payload)
	return err
}

// Close closes the NATS connection.
func (b *EventBus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}
