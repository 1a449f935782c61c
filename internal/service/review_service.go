package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/querycache"
	"github.com/iliyamo/travel-booking/internal/queue"
	"github.com/iliyamo/travel-booking/internal/repository"
)

// ErrMissingReservation is returned for a review without a reservation id.
var ErrMissingReservation = errors.New("reservation_id is required")

// ReviewService lets travelers review completed trips.
type ReviewService struct {
	*base
}

// Mine returns the reviews written by userID.
func (s *ReviewService) Mine(ctx context.Context, userID string) ([]model.Review, error) {
	return querycache.Fetch(ctx, s.d.Cache, querycache.Reviews(userID), func(ctx context.Context) ([]model.Review, error) {
		return s.d.Reviews.ListByUser(ctx, userID)
	})
}

// Create submits a review for a completed reservation of userID that has
// no review yet.  Both ratings are required.
func (s *ReviewService) Create(ctx context.Context, userID string, in repository.NewReview) (*model.Review, error) {
	in.ReservationID = strings.TrimSpace(in.ReservationID)
	if in.ReservationID == "" {
		return nil, precondition(ErrMissingReservation)
	}
	if err := model.ValidateRatings(in.HotelRating, in.AirlineRating); err != nil {
		return nil, precondition(err)
	}
	res, err := s.d.Reservations.GetForUser(ctx, in.ReservationID, userID)
	if err != nil {
		return nil, err
	}
	exists, err := s.d.Reviews.ExistsForReservation(ctx, in.ReservationID)
	if err != nil {
		return nil, err
	}
	if err := model.CheckReview(*res, exists); err != nil {
		return nil, precondition(err)
	}
	rv, err := s.d.Reviews.Create(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	s.applied(ctx, querycache.ReviewCreate, querycache.Target{ID: rv.ID, OwnerID: userID, ReservationID: rv.ReservationID})
	s.publish(ctx, reservationEvent(queue.EventReviewCreated, res, userID))
	return rv, nil
}
