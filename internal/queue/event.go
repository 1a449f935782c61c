// Package queue defines the messages exchanged over RabbitMQ, the
// publisher the services use to emit them, and the background consumer
// that records them.
package queue

import "time"

// Queue names.  Both queues are durable.
const (
	ReservationQueue  = "reservation.events"
	VerificationQueue = "email.verification"
)

// Reservation event types.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationUpdated   = "reservation.updated"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationStatus    = "reservation.status_changed"
	EventReservationPayment   = "reservation.payment_changed"
	EventReservationDeleted   = "reservation.deleted"
	EventReviewCreated        = "review.created"
)

// ReservationEvent is published after a reservation (or its review) has
// been written.  It carries enough for downstream consumers to log, notify
// or feed analytics without querying the primary database.
type ReservationEvent struct {
	Type            string    `json:"type"`
	ReservationID   string    `json:"reservation_id"`
	UserID          string    `json:"user_id"`
	PackageID       string    `json:"package_id,omitempty"`
	PackageTitle    string    `json:"package_title,omitempty"`
	NumTravelers    int       `json:"num_travelers,omitempty"`
	TotalPriceCents int64     `json:"total_price_cents,omitempty"`
	Status          string    `json:"status,omitempty"`
	PaymentStatus   string    `json:"payment_status,omitempty"`
	ActorID         string    `json:"actor_id,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// VerificationEmail asks the mailer to send a confirmation link.
type VerificationEmail struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}
