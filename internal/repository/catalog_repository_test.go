package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/travel-booking/internal/model"
)

func TestPackageEmbedsReferences(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	hotel := &model.Hotel{Name: "Tivoli", City: "Lisbon", Country: "Portugal", StarRating: intp(5)}
	if err := NewHotelRepo(db).Create(ctx, hotel); err != nil {
		t.Fatalf("create hotel: %v", err)
	}
	airline := &model.Airline{Name: "TAP"}
	if err := NewAirlineRepo(db).Create(ctx, airline); err != nil {
		t.Fatalf("create airline: %v", err)
	}
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	conv := &model.Convention{Name: "Web Summit", Location: strp("Lisbon"), StartDate: start, EndDate: start.AddDate(0, 0, 3)}
	if err := NewConventionRepo(db).Create(ctx, conv); err != nil {
		t.Fatalf("create convention: %v", err)
	}

	pkgs := NewPackageRepo(db)
	p := &model.Package{
		Title: "Summit week", Description: "Conference and coast", Destination: "Lisbon",
		PriceCents: 150000, AvailableSlots: 10, StartDate: start, EndDate: start.AddDate(0, 0, 5),
		HotelID: &hotel.ID, AirlineID: &airline.ID, ConventionID: &conv.ID,
	}
	if err := pkgs.Create(ctx, p); err != nil {
		t.Fatalf("create package: %v", err)
	}
	got, err := pkgs.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Hotel == nil || got.Hotel.Name != "Tivoli" {
		t.Errorf("hotel = %+v", got.Hotel)
	}
	if got.Airline == nil || got.Airline.Name != "TAP" {
		t.Errorf("airline = %+v", got.Airline)
	}
	if got.Convention == nil || got.Convention.Name != "Web Summit" {
		t.Errorf("convention = %+v", got.Convention)
	}
	if !got.StartDate.Equal(start) {
		t.Errorf("start = %v, want %v", got.StartDate, start)
	}

	if err := NewHotelRepo(db).Delete(ctx, hotel.ID); err != nil {
		t.Fatalf("delete hotel: %v", err)
	}
	got, err = pkgs.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get after hotel delete: %v", err)
	}
	if got.HotelID != nil || got.Hotel != nil {
		t.Errorf("hotel reference survived delete: %v", got.HotelID)
	}
}

func TestPackageSearch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	pkgs := NewPackageRepo(db)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, dest := range []string{"Paris, France", "Rome, Italy", "Nice, France"} {
		p := &model.Package{
			Title: dest, Description: "trip", Destination: dest, PriceCents: int64(100000 * (i + 1)),
			AvailableSlots: 4, StartDate: base.AddDate(0, i, 0), EndDate: base.AddDate(0, i, 6),
		}
		if err := pkgs.Create(ctx, p); err != nil {
			t.Fatalf("create %s: %v", dest, err)
		}
	}

	tests := []struct {
		name   string
		filter model.PackageFilter
		want   int
	}{
		{"all", model.PackageFilter{}, 3},
		{"destination", model.PackageFilter{Destination: "france"}, 2},
		{"from", model.PackageFilter{From: base.AddDate(0, 1, 0)}, 2},
		{"to", model.PackageFilter{To: base.AddDate(0, 0, 10)}, 1},
		{"max price", model.PackageFilter{MaxPriceCents: 200000}, 2},
		{"combined", model.PackageFilter{Destination: "France", MaxPriceCents: 200000}, 1},
	}
	for _, tt := range tests {
		got, err := pkgs.List(ctx, tt.filter)
		if err != nil {
			t.Fatalf("%s: List: %v", tt.name, err)
		}
		if len(got) != tt.want {
			t.Errorf("%s: %d packages, want %d", tt.name, len(got), tt.want)
		}
	}

	dests, err := pkgs.Destinations(ctx)
	if err != nil {
		t.Fatalf("Destinations: %v", err)
	}
	if len(dests) != 3 || dests[0] != "Nice, France" {
		t.Errorf("destinations = %v", dests)
	}
}

func TestCatalogNotFound(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := NewPackageRepo(db).Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("package: %v", err)
	}
	if err := NewAirlineRepo(db).Delete(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("airline: %v", err)
	}
	if err := NewConventionRepo(db).Update(ctx, &model.Convention{ID: "nope", Name: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("convention: %v", err)
	}
}

func TestDeleteBookedPackageIsRefused(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	uid := mustUser(t, db, "ana@example.com")
	pkg := mustPackage(t, db, 100000, 5)
	reservations := NewReservationRepo(db)

	res, err := reservations.Create(ctx, uid, pkg.ID, 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := reservations.SetStatus(ctx, res.ID, model.StatusConfirmed); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if _, err := reservations.SetPaymentStatus(ctx, res.ID, model.PaymentPaid); err != nil {
		t.Fatalf("SetPaymentStatus: %v", err)
	}

	packages := NewPackageRepo(db)
	if err := packages.Delete(ctx, pkg.ID); !errors.Is(err, ErrInUse) {
		t.Fatalf("Delete booked package = %v, want ErrInUse", err)
	}
	if _, err := packages.Get(ctx, pkg.ID); err != nil {
		t.Fatalf("package gone after refused delete: %v", err)
	}
	got, err := reservations.Get(ctx, res.ID)
	if err != nil {
		t.Fatalf("reservation gone after refused delete: %v", err)
	}
	if got.Status != model.StatusConfirmed || got.PaymentStatus != model.PaymentPaid {
		t.Fatalf("reservation = %s/%s, want confirmed/paid", got.Status, got.PaymentStatus)
	}

	// an unbooked package still deletes
	free := mustPackage(t, db, 50000, 1)
	if err := packages.Delete(ctx, free.ID); err != nil {
		t.Fatalf("Delete unbooked package: %v", err)
	}
}
