package service

import (
	"context"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/querycache"
	"github.com/iliyamo/travel-booking/internal/queue"
)

// AdminService is the back office: reservation and payment transitions,
// review moderation, user administration and the dashboard.
type AdminService struct {
	*base
}

// Stats returns the dashboard counters.
func (s *AdminService) Stats(ctx context.Context) (*model.Stats, error) {
	return querycache.Fetch(ctx, s.d.Cache, querycache.AdminStats(), s.d.Stats.Get)
}

// Reservations returns every reservation, optionally only those in status.
// The filter is applied to the cached full list.
func (s *AdminService) Reservations(ctx context.Context, status model.Status) ([]model.Reservation, error) {
	all, err := querycache.Fetch(ctx, s.d.Cache, querycache.AdminReservations(), func(ctx context.Context) ([]model.Reservation, error) {
		return s.d.Reservations.ListAll(ctx, "")
	})
	if err != nil || status == "" {
		return all, err
	}
	out := make([]model.Reservation, 0, len(all))
	for _, r := range all {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

// Reservation returns any reservation with its package and owner.
func (s *AdminService) Reservation(ctx context.Context, id string) (*model.Reservation, error) {
	return querycache.Fetch(ctx, s.d.Cache, querycache.Reservation(id), func(ctx context.Context) (*model.Reservation, error) {
		return s.d.Reservations.Get(ctx, id)
	})
}

// SetStatus moves a reservation along its lifecycle.
func (s *AdminService) SetStatus(ctx context.Context, adminID, id string, to model.Status) (*model.Reservation, error) {
	if !to.Valid() {
		return nil, precondition(model.ErrInvalidTransition)
	}
	cur, err := s.d.Reservations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := model.CheckTransition(cur.Status, to); err != nil {
		return nil, precondition(err)
	}
	r, err := s.d.Reservations.SetStatus(ctx, id, to)
	if err != nil {
		return nil, err
	}
	if cur.Status == to {
		return r, nil
	}
	m, typ := querycache.ReservationStatus, queue.EventReservationStatus
	if to == model.StatusCancelled {
		m, typ = querycache.ReservationCancel, queue.EventReservationCancelled
	}
	s.applied(ctx, m, querycache.Target{ID: r.ID, OwnerID: r.UserID, PackageID: r.PackageID})
	s.publish(ctx, reservationEvent(typ, r, adminID))
	return r, nil
}

// SetPayment records a payment status change.
func (s *AdminService) SetPayment(ctx context.Context, adminID, id string, p model.PaymentStatus) (*model.Reservation, error) {
	if !p.Valid() {
		return nil, precondition(ErrInvalidPayment)
	}
	r, err := s.d.Reservations.SetPaymentStatus(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.applied(ctx, querycache.ReservationPayment, querycache.Target{ID: r.ID, OwnerID: r.UserID})
	s.publish(ctx, reservationEvent(queue.EventReservationPayment, r, adminID))
	return r, nil
}

// Cancel cancels any pending or confirmed reservation.
func (s *AdminService) Cancel(ctx context.Context, adminID, id string) (*model.Reservation, error) {
	cur, err := s.d.Reservations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.CanCancel(cur.Status) {
		return nil, precondition(model.ErrNotCancellable)
	}
	r, err := s.d.Reservations.Cancel(ctx, id, adminID, true)
	if err != nil {
		return nil, err
	}
	s.applied(ctx, querycache.ReservationCancel, querycache.Target{ID: r.ID, OwnerID: r.UserID, PackageID: r.PackageID})
	s.publish(ctx, reservationEvent(queue.EventReservationCancelled, r, adminID))
	return r, nil
}

// Reviews returns every review, newest first.
func (s *AdminService) Reviews(ctx context.Context) ([]model.Review, error) {
	return querycache.Fetch(ctx, s.d.Cache, querycache.AdminReviews(), s.d.Reviews.List)
}

func (s *AdminService) Review(ctx context.Context, id string) (*model.Review, error) {
	return querycache.Fetch(ctx, s.d.Cache, querycache.Review(id), func(ctx context.Context) (*model.Review, error) {
		return s.d.Reviews.Get(ctx, id)
	})
}

// DeleteReview removes a review and strikes it from the cached admin list.
func (s *AdminService) DeleteReview(ctx context.Context, id string) error {
	rv, err := s.d.Reviews.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.d.Reviews.Delete(ctx, id); err != nil {
		return err
	}
	s.applied(ctx, querycache.ReviewDelete, querycache.Target{ID: id, OwnerID: rv.UserID, ReservationID: rv.ReservationID})
	return nil
}

// Users lists every profile.
func (s *AdminService) Users(ctx context.Context) ([]model.Profile, error) {
	return querycache.Fetch(ctx, s.d.Cache, querycache.Users(), s.d.Profiles.List)
}

// SetAdmin grants or revokes the admin flag of a user.  Administrators may
// not revoke their own flag, so the back office cannot lock itself out.
func (s *AdminService) SetAdmin(ctx context.Context, adminID, userID string, admin bool) (*model.Profile, error) {
	if adminID == userID && !admin {
		return nil, precondition(ErrSelfDemotion)
	}
	p, err := s.d.Profiles.SetAdmin(ctx, userID, admin)
	if err != nil {
		return nil, err
	}
	s.applied(ctx, querycache.ProfileAdmin, querycache.Target{ID: userID})
	return p, nil
}
