package service

import (
	"context"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/querycache"
	"github.com/iliyamo/travel-booking/internal/queue"
	"github.com/iliyamo/travel-booking/internal/repository"
)

// ReservationService is the traveler side of the reservation lifecycle.
type ReservationService struct {
	*base
}

// List returns the user's reservations.
func (s *ReservationService) List(ctx context.Context, userID string) ([]model.Reservation, error) {
	return querycache.Fetch(ctx, s.d.Cache, querycache.Reservations(userID), func(ctx context.Context) ([]model.Reservation, error) {
		return s.d.Reservations.ListByUser(ctx, userID)
	})
}

// Get returns one of the user's reservations.  Reservations of other users
// are reported as not found.
func (s *ReservationService) Get(ctx context.Context, userID, id string) (*model.Reservation, error) {
	r, err := querycache.Fetch(ctx, s.d.Cache, querycache.Reservation(id), func(ctx context.Context) (*model.Reservation, error) {
		return s.d.Reservations.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return r, nil
}

// Create books travelers on a package.  Availability is checked and taken
// by the store in one step.
func (s *ReservationService) Create(ctx context.Context, userID, packageID string, travelers int) (*model.Reservation, error) {
	if err := model.ValidateTravelers(travelers); err != nil {
		return nil, precondition(err)
	}
	r, err := s.d.Reservations.Create(ctx, userID, packageID, travelers)
	if err != nil {
		return nil, err
	}
	s.applied(ctx, querycache.ReservationCreate, querycache.Target{ID: r.ID, OwnerID: userID, PackageID: r.PackageID})
	s.publish(ctx, reservationEvent(queue.EventReservationCreated, r, userID))
	return r, nil
}

// Update changes the traveler count and booking date of a pending or
// confirmed reservation.
func (s *ReservationService) Update(ctx context.Context, userID, id string, edit repository.ReservationEdit) (*model.Reservation, error) {
	if err := model.ValidateTravelers(edit.NumTravelers); err != nil {
		return nil, precondition(err)
	}
	cur, err := s.d.Reservations.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !model.CanEditTravelers(cur.Status) {
		return nil, precondition(model.ErrNotEditable)
	}
	r, err := s.d.Reservations.Update(ctx, id, userID, edit)
	if err != nil {
		return nil, err
	}
	s.applied(ctx, querycache.ReservationUpdate, querycache.Target{ID: r.ID, OwnerID: userID, PackageID: r.PackageID})
	s.publish(ctx, reservationEvent(queue.EventReservationUpdated, r, userID))
	return r, nil
}

// Cancel cancels one of the user's pending or confirmed reservations.
func (s *ReservationService) Cancel(ctx context.Context, userID, id string) (*model.Reservation, error) {
	cur, err := s.d.Reservations.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !model.CanCancel(cur.Status) {
		return nil, precondition(model.ErrNotCancellable)
	}
	r, err := s.d.Reservations.Cancel(ctx, id, userID, false)
	if err != nil {
		return nil, err
	}
	s.applied(ctx, querycache.ReservationCancel, querycache.Target{ID: r.ID, OwnerID: userID, PackageID: r.PackageID})
	s.publish(ctx, reservationEvent(queue.EventReservationCancelled, r, userID))
	return r, nil
}

// Delete removes a cancelled, unpaid reservation.  The rule is checked
// against a fresh read first and enforced again by the delete itself.  On
// success the id is struck from the owner's cached list before the list is
// refetched.
func (s *ReservationService) Delete(ctx context.Context, userID, id string) error {
	cur, err := s.d.Reservations.GetForUser(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := model.CheckDelete(*cur); err != nil {
		return precondition(err)
	}
	if err := s.d.Reservations.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.applied(ctx, querycache.ReservationDelete, querycache.Target{ID: id, OwnerID: userID, PackageID: cur.PackageID})
	s.publish(ctx, reservationEvent(queue.EventReservationDeleted, cur, userID))
	return nil
}
