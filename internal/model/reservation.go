package model

import "time"

// Status is the fulfilment state of a reservation.
type Status string

// PaymentStatus is the payment state of a reservation.  It moves
// independently of Status and is only changed by administrators.
type PaymentStatus string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

const (
	PaymentUnpaid     PaymentStatus = "unpaid"
	PaymentProcessing PaymentStatus = "processing"
	PaymentPaid       PaymentStatus = "paid"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Valid reports whether s is one of the known reservation statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Active reports whether the reservation still holds package slots.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Valid reports whether p is one of the known payment statuses.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentUnpaid, PaymentProcessing, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// Reservation is a user's booking against a package.  TotalPriceCents is
// always PriceCents × NumTravelers of the package at the time of the last
// successful create or traveler update.
//
// Fields:
//
//	ID              – reservations.id (uuid)
//	UserID          – owning user (profiles.id)
//	PackageID       – booked package
//	NumTravelers    – positive traveler count
//	TotalPriceCents – price snapshot in cents
//	Status          – fulfilment status
//	PaymentStatus   – payment status
//	BookingDate     – defaults to creation time
type Reservation struct {
	ID              string        `db:"id" json:"id"`
	UserID          string        `db:"user_id" json:"user_id"`
	PackageID       string        `db:"package_id" json:"package_id"`
	NumTravelers    int           `db:"num_travelers" json:"num_travelers"`
	TotalPriceCents int64         `db:"total_price_cents" json:"total_price_cents"`
	Status          Status        `db:"status" json:"status"`
	PaymentStatus   PaymentStatus `db:"payment_status" json:"payment_status"`
	BookingDate     time.Time     `db:"booking_date" json:"booking_date"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`

	Package *Package `db:"-" json:"package,omitempty"`
	User    *Profile `db:"-" json:"user,omitempty"`
}
