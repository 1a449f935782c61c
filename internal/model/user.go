package model

import "time"

// User mirrors the `users` table which holds credentials.  It is only used
// by the repository and session layers; handlers never serialize it.
type User struct {
	ID              string     `db:"id"`
	Email           string     `db:"email"`
	PasswordHash    string     `db:"password_hash"`
	EmailVerifiedAt *time.Time `db:"email_verified_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// Verified reports whether the user confirmed their email address.
func (u User) Verified() bool { return u.EmailVerifiedAt != nil }

// Profile is the public face of a user.  Its ID equals the user ID.  The
// IsAdmin flag gates the administrative views.
type Profile struct {
	ID        string    `db:"id" json:"id"`
	FirstName *string   `db:"first_name" json:"first_name,omitempty"`
	LastName  *string   `db:"last_name" json:"last_name,omitempty"`
	IsAdmin   bool      `db:"is_admin" json:"is_admin"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Stats summarises the catalog and bookings for the admin dashboard.
type Stats struct {
	Packages         int            `json:"packages"`
	Users            int            `json:"users"`
	Reviews          int            `json:"reviews"`
	Reservations     int            `json:"reservations"`
	ByStatus         map[Status]int `json:"reservations_by_status"`
	PaidRevenueCents int64          `json:"paid_revenue_cents"`
}
