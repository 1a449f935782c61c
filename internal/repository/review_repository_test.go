package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/travel-booking/internal/model"
)

func TestReviewOnlyForCompletedReservation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := mustUser(t, db, "ana@example.com")
	other := mustUser(t, db, "eve@example.com")
	pkg := mustPackage(t, db, 1000, 5)
	reservations := NewReservationRepo(db)
	reviews := NewReviewRepo(db)

	res, err := reservations.Create(ctx, userID, pkg.ID, 2)
	if err != nil {
		t.Fatalf("Create reservation: %v", err)
	}
	form := NewReview{ReservationID: res.ID, HotelRating: intp(4), AirlineRating: intp(5), Comments: strp("Great trip")}

	if _, err := reviews.Create(ctx, userID, form); !errors.Is(err, model.ErrNotReviewable) {
		t.Fatalf("review pending: err = %v, want ErrNotReviewable", err)
	}
	for _, to := range []model.Status{model.StatusConfirmed, model.StatusCompleted} {
		if _, err := reservations.SetStatus(ctx, res.ID, to); err != nil {
			t.Fatalf("SetStatus %s: %v", to, err)
		}
	}
	if _, err := reviews.Create(ctx, other, form); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign review: err = %v, want ErrForbidden", err)
	}
	bad := form
	bad.AirlineRating = nil
	if _, err := reviews.Create(ctx, userID, bad); !errors.Is(err, model.ErrInvalidRating) {
		t.Fatalf("missing rating: err = %v, want ErrInvalidRating", err)
	}

	rv, err := reviews.Create(ctx, userID, form)
	if err != nil {
		t.Fatalf("Create review: %v", err)
	}
	if _, err := reviews.Create(ctx, userID, form); !errors.Is(err, model.ErrReviewExists) {
		t.Fatalf("second review: err = %v, want ErrReviewExists", err)
	}
	exists, err := reviews.ExistsForReservation(ctx, res.ID)
	if err != nil || !exists {
		t.Fatalf("ExistsForReservation = %v, %v", exists, err)
	}

	all, err := reviews.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all[0].ID != rv.ID {
		t.Fatalf("admin list = %+v, want the new review", all)
	}
	got := all[0]
	if *got.HotelRating != 4 || *got.AirlineRating != 5 || *got.Comments != "Great trip" {
		t.Errorf("review fields = %d/%d/%q", *got.HotelRating, *got.AirlineRating, *got.Comments)
	}
	if got.User == nil || got.User.ID != userID {
		t.Errorf("author not embedded: %+v", got.User)
	}
	if got.Reservation == nil || got.Reservation.Package == nil {
		t.Errorf("reservation/package not embedded: %+v", got.Reservation)
	}

	if err := reviews.Delete(ctx, rv.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := reviews.Get(ctx, rv.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete: err = %v, want ErrNotFound", err)
	}
}
