package model

import "time"

// Package is a sellable travel offer.  Prices are kept in cents so that
// total price arithmetic stays exact.  AvailableSlots is the remaining
// traveler capacity; it is decremented atomically when a reservation is
// created and released again when one is cancelled.
type Package struct {
	ID             string    `db:"id" json:"id"`
	Title          string    `db:"title" json:"title"`
	Description    string    `db:"description" json:"description"`
	Destination    string    `db:"destination" json:"destination"`
	PriceCents     int64     `db:"price_cents" json:"price_cents"`
	AvailableSlots int       `db:"available_slots" json:"available_slots"`
	StartDate      time.Time `db:"start_date" json:"start_date"`
	EndDate        time.Time `db:"end_date" json:"end_date"`
	DurationDays   *int      `db:"duration_days" json:"duration_days,omitempty"`
	HotelID        *string   `db:"hotel_id" json:"hotel_id,omitempty"`
	AirlineID      *string   `db:"airline_id" json:"airline_id,omitempty"`
	ConventionID   *string   `db:"convention_id" json:"convention_id,omitempty"`
	ImageURL       *string   `db:"image_url" json:"image_url,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

	Hotel      *Hotel      `db:"-" json:"hotel,omitempty"`
	Airline    *Airline    `db:"-" json:"airline,omitempty"`
	Convention *Convention `db:"-" json:"convention,omitempty"`
}

// Hotel is a lodging referenced by packages.
type Hotel struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	City        string    `db:"city" json:"city"`
	Country     string    `db:"country" json:"country"`
	Address     *string   `db:"address" json:"address,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	StarRating  *int      `db:"star_rating" json:"star_rating,omitempty"`
	ImageURL    *string   `db:"image_url" json:"image_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Airline is a carrier referenced by packages.
type Airline struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	LogoURL     *string   `db:"logo_url" json:"logo_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Convention is an event a package may be built around.
type Convention struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Location    *string   `db:"location" json:"location,omitempty"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// PackageFilter narrows a package listing.  Zero values are ignored.
type PackageFilter struct {
	Destination   string
	From          time.Time
	To            time.Time
	MaxPriceCents int64
}

// IsZero reports whether f selects the whole catalog.
func (f PackageFilter) IsZero() bool {
	return f.Destination == "" && f.From.IsZero() && f.To.IsZero() && f.MaxPriceCents == 0
}
