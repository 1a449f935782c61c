package model

import "time"

// Review is a traveler's rating of a completed reservation.  At most one
// review references a reservation.  Reviews are immutable once created;
// only administrators may delete them.
type Review struct {
	ID            string    `db:"id" json:"id"`
	ReservationID string    `db:"reservation_id" json:"reservation_id"`
	UserID        string    `db:"user_id" json:"user_id"`
	HotelRating   *int      `db:"hotel_rating" json:"hotel_rating,omitempty"`
	AirlineRating *int      `db:"airline_rating" json:"airline_rating,omitempty"`
	Comments      *string   `db:"comments" json:"comments,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`

	User        *Profile     `db:"-" json:"user,omitempty"`
	Reservation *Reservation `db:"-" json:"reservation,omitempty"`
}
