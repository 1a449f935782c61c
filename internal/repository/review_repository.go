package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/travel-booking/internal/model"
)

const reviewCols = `id, reservation_id, user_id, hotel_rating, airline_rating, comments, created_at, updated_at`

// ReviewRepo stores traveler reviews.  A reservation has at most one review;
// the unique index on reservation_id is the final guard against a double
// submission.
type ReviewRepo struct {
	db *sqlx.DB
}

func NewReviewRepo(db *sqlx.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// NewReview is the review form.
type NewReview struct {
	ReservationID string
	HotelRating   *int
	AirlineRating *int
	Comments      *string
}

// Create adds a review to a completed reservation owned by userID.
func (r *ReviewRepo) Create(ctx context.Context, userID string, in NewReview) (*model.Review, error) {
	if err := model.ValidateRatings(in.HotelRating, in.AirlineRating); err != nil {
		return nil, err
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ReviewRepo.Create: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := getReservation(ctx, tx, in.ReservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, ErrForbidden
	}
	exists, err := reviewExists(ctx, tx, in.ReservationID)
	if err != nil {
		return nil, err
	}
	if err := model.CheckReview(*res, exists); err != nil {
		return nil, err
	}

	ts := now()
	rv := model.Review{
		ID:            uuid.NewString(),
		ReservationID: in.ReservationID,
		UserID:        userID,
		HotelRating:   in.HotelRating,
		AirlineRating: in.AirlineRating,
		Comments:      in.Comments,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
	const q = `INSERT INTO reviews (` + reviewCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, tx.Rebind(q), rv.ID, rv.ReservationID, rv.UserID, rv.HotelRating,
		rv.AirlineRating, rv.Comments, rv.CreatedAt, rv.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrReviewExists
		}
		return nil, fmt.Errorf("ReviewRepo.Create: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ReviewRepo.Create: %w", err)
	}
	committed = true
	return &rv, nil
}

// ExistsForReservation reports whether a review references reservationID.
func (r *ReviewRepo) ExistsForReservation(ctx context.Context, reservationID string) (bool, error) {
	return reviewExists(ctx, r.db, reservationID)
}

// Get returns one review with its author and reservation embedded.
func (r *ReviewRepo) Get(ctx context.Context, id string) (*model.Review, error) {
	var rv model.Review
	err := sqlx.GetContext(ctx, r.db, &rv, r.db.Rebind("SELECT "+reviewCols+" FROM reviews WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ReviewRepo.Get: %w", err)
	}
	list := []model.Review{rv}
	if err := r.embed(ctx, list); err != nil {
		return nil, fmt.Errorf("ReviewRepo.Get: %w", err)
	}
	return &list[0], nil
}

// List returns all reviews, newest first, for the back office.
func (r *ReviewRepo) List(ctx context.Context) ([]model.Review, error) {
	return r.list(ctx, "")
}

// ListByUser returns the reviews written by userID.
func (r *ReviewRepo) ListByUser(ctx context.Context, userID string) ([]model.Review, error) {
	return r.list(ctx, userID)
}

func (r *ReviewRepo) list(ctx context.Context, userID string) ([]model.Review, error) {
	out := []model.Review{}
	q := "SELECT " + reviewCols + " FROM reviews"
	var args []any
	if userID != "" {
		q += " WHERE user_id = ?"
		args = append(args, userID)
	}
	q += " ORDER BY created_at DESC, id"
	if err := sqlx.SelectContext(ctx, r.db, &out, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("ReviewRepo.List: %w", err)
	}
	if err := r.embed(ctx, out); err != nil {
		return nil, fmt.Errorf("ReviewRepo.List: %w", err)
	}
	return out, nil
}

// Delete removes a review (administrators only).
func (r *ReviewRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM reviews WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("ReviewRepo.Delete: %w", err)
	}
	return expectOne(res)
}

func (r *ReviewRepo) embed(ctx context.Context, rvs []model.Review) error {
	if len(rvs) == 0 {
		return nil
	}
	userIDs := make([]string, 0, len(rvs))
	resIDs := make([]string, 0, len(rvs))
	for _, rv := range rvs {
		userIDs = append(userIDs, rv.UserID)
		resIDs = append(resIDs, rv.ReservationID)
	}
	var profiles []model.Profile
	if err := selectIn(ctx, r.db, &profiles, "SELECT "+profileCols+" FROM profiles WHERE id IN (?)", userIDs); err != nil {
		return err
	}
	var reservations []model.Reservation
	if err := selectIn(ctx, r.db, &reservations, "SELECT "+reservationCols+" FROM reservations WHERE id IN (?)", resIDs); err != nil {
		return err
	}
	if err := embedReservationRefs(ctx, r.db, reservations, false); err != nil {
		return err
	}
	profileByID := make(map[string]*model.Profile, len(profiles))
	for i := range profiles {
		profileByID[profiles[i].ID] = &profiles[i]
	}
	resByID := make(map[string]*model.Reservation, len(reservations))
	for i := range reservations {
		resByID[reservations[i].ID] = &reservations[i]
	}
	for i := range rvs {
		rvs[i].User = profileByID[rvs[i].UserID]
		rvs[i].Reservation = resByID[rvs[i].ReservationID]
	}
	return nil
}

func reviewExists(ctx context.Context, q sqlx.ExtContext, reservationID string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, q.Rebind("SELECT COUNT(*) FROM reviews WHERE reservation_id = ?"), reservationID)
	if err != nil {
		return false, fmt.Errorf("reviewExists: %w", err)
	}
	return n > 0, nil
}
