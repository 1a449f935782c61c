package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/travel-booking/internal/config"
)

// Publisher sends persistent JSON messages to the durable queues.  Each
// publish dials the broker, so a broker outage never leaves a broken
// connection behind.  Errors are logged and returned; callers treat
// publishing as best effort.
type Publisher struct {
	url     string
	enabled bool
	logger  *slog.Logger
}

// NewPublisher builds a Publisher from cfg.  A disabled publisher drops
// every message.
func NewPublisher(cfg config.QueueConfig, logger *slog.Logger) *Publisher {
	return &Publisher{url: cfg.URL, enabled: cfg.Enabled, logger: logger.With("component", "publisher")}
}

// PublishReservation sends ev to the reservation events queue.
func (p *Publisher) PublishReservation(ctx context.Context, ev ReservationEvent) error {
	return p.publish(ctx, ReservationQueue, ev)
}

// PublishVerification sends msg to the verification email queue.
func (p *Publisher) PublishVerification(ctx context.Context, msg VerificationEmail) error {
	return p.publish(ctx, VerificationQueue, msg)
}

func (p *Publisher) publish(ctx context.Context, queue string, v any) error {
	if !p.enabled {
		return nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Warn("dial failed", "queue", queue, "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warn("channel open failed", "queue", queue, "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// idempotent; durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.logger.Warn("queue declare failed", "queue", queue, "error", err)
		return err
	}

	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.logger.Warn("publish failed", "queue", queue, "error", err)
		return err
	}
	return nil
}
