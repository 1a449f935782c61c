package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotEditable       = errors.New("reservation can no longer be edited")
	ErrNotCancellable    = errors.New("only pending or confirmed reservations can be cancelled")
	ErrNotDeletable      = errors.New("only cancelled and unpaid reservations can be deleted")
	ErrNotReviewable     = errors.New("only completed reservations can be reviewed")
	ErrReviewExists      = errors.New("reservation already has a review")
	ErrInvalidTravelers  = errors.New("num_travelers must be a positive integer")
	ErrInvalidRating     = errors.New("ratings must be between 1 and 5")
	ErrInvalidPackage    = errors.New("invalid package")
)

// transitions lists the allowed status moves.  completed and cancelled are
// terminal; removal of a cancelled+unpaid reservation is handled by
// CanDelete, not by a status.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether a reservation may move from one status to
// another.  Re-applying the current status is allowed and has no effect.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition is CanTransition with an error naming both statuses.
func CheckTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// CanEditTravelers reports whether the traveler count may still change.
func CanEditTravelers(s Status) bool { return s.Active() }

// CanCancel reports whether the reservation may be cancelled.
func CanCancel(s Status) bool { return s.Active() }

// CanDelete reports whether r may be permanently removed.
func CanDelete(r Reservation) bool {
	return r.Status == StatusCancelled && r.PaymentStatus == PaymentUnpaid
}

// CheckDelete returns ErrNotDeletable unless CanDelete holds.
func CheckDelete(r Reservation) error {
	if !CanDelete(r) {
		return ErrNotDeletable
	}
	return nil
}

// CheckReview returns why a review cannot be added to r, or nil.
func CheckReview(r Reservation, hasReview bool) error {
	if r.Status != StatusCompleted {
		return ErrNotReviewable
	}
	if hasReview {
		return ErrReviewExists
	}
	return nil
}

// TotalPrice is the price snapshot for a reservation.
func TotalPrice(priceCents int64, travelers int) int64 {
	return priceCents * int64(travelers)
}

// ValidateTravelers rejects non-positive traveler counts.
func ValidateTravelers(n int) error {
	if n <= 0 {
		return ErrInvalidTravelers
	}
	return nil
}

// ValidateRatings checks the review form: both ratings are required and
// must lie in 1..5.
func ValidateRatings(hotel, airline *int) error {
	for _, r := range []*int{hotel, airline} {
		if r == nil || *r < 1 || *r > 5 {
			return ErrInvalidRating
		}
	}
	return nil
}

// ValidatePackage enforces the package invariants before a write.
func ValidatePackage(p Package) error {
	switch {
	case strings.TrimSpace(p.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidPackage)
	case strings.TrimSpace(p.Destination) == "":
		return fmt.Errorf("%w: destination is required", ErrInvalidPackage)
	case p.PriceCents <= 0:
		return fmt.Errorf("%w: price must be positive", ErrInvalidPackage)
	case p.AvailableSlots < 0:
		return fmt.Errorf("%w: available_slots must not be negative", ErrInvalidPackage)
	case !p.EndDate.After(p.StartDate):
		return fmt.Errorf("%w: end_date must be after start_date", ErrInvalidPackage)
	}
	return nil
}

// DurationDays derives the whole number of days a package spans.
func DurationDays(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}
