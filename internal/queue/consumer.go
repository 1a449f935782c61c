package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/travel-booking/internal/config"
)

// Log files written by the consumer, relative to the configured LogDir.
const (
	ReservationLogFile = "reservations.log"
	OutboxLogFile      = "outbox.log"
)

// Consumer drains both queues and appends one line per message to the log
// directory.  The verification log stands in for an outgoing mail relay.
type Consumer struct {
	url    string
	dir    string
	logger *slog.Logger
	mu     sync.Mutex // serializes file appends across queues
}

func NewConsumer(cfg config.QueueConfig, logger *slog.Logger) *Consumer {
	return &Consumer{url: cfg.URL, dir: cfg.LogDir, logger: logger.With("component", "consumer")}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Dial
// failures back off exponentially up to 30s; a dropped connection is
// re-dialled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("dial failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warn("set QoS failed", "error", err)
	}
	res, err := c.subscribe(ch, ReservationQueue)
	if err != nil {
		return err
	}
	mail, err := c.subscribe(ch, VerificationQueue)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-res:
			if !ok {
				return errors.New("reservation deliveries closed")
			}
			c.settle(d, c.HandleReservation(d.Body))
		case d, ok := <-mail:
			if !ok {
				return errors.New("verification deliveries closed")
			}
			c.settle(d, c.HandleVerification(d.Body))
		}
	}
}

func (c *Consumer) subscribe(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", queue, err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", queue, err)
	}
	return msgs, nil
}

func (c *Consumer) settle(d amqp.Delivery, err error) {
	if err != nil {
		c.logger.Warn("handle message failed", "queue", d.RoutingKey, "error", err)
		_ = d.Nack(false, false) // do not requeue a poison message
		return
	}
	_ = d.Ack(false)
}

// HandleReservation appends a reservation event to reservations.log.
func (c *Consumer) HandleReservation(body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] %s | reservation_id=%s | user_id=%s | package_id=%s | package=%q | travelers=%d | total=%d cents | status=%s | payment=%s\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.ReservationID, ev.UserID, ev.PackageID,
		ev.PackageTitle, ev.NumTravelers, ev.TotalPriceCents, ev.Status, ev.PaymentStatus)
	return c.appendLine(ReservationLogFile, line)
}

// HandleVerification appends a verification email to outbox.log.
func (c *Consumer) HandleVerification(body []byte) error {
	var msg VerificationEmail
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if msg.Email == "" || msg.Link == "" {
		return errors.New("verification message without email or link")
	}
	line := fmt.Sprintf("[%s] verify-email | to=%s | user_id=%s | link=%s | expires=%s\n",
		time.Now().UTC().Format(time.RFC3339), msg.Email, msg.UserID, msg.Link, msg.ExpiresAt.UTC().Format(time.RFC3339))
	return c.appendLine(OutboxLogFile, line)
}

func (c *Consumer) appendLine(name, line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// sleep waits for d or until ctx is done; it reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
