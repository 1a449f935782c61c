package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/database"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/querycache"
	"github.com/iliyamo/travel-booking/internal/queue"
	"github.com/iliyamo/travel-booking/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
	fail   bool
}

func (p *recordingPublisher) PublishReservation(_ context.Context, ev queue.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type env struct {
	db     *sqlx.DB
	svc    *Services
	cache  *querycache.Cache
	events *recordingPublisher
}

func newEnv(t *testing.T) env {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := querycache.New(querycache.NewMemoryBackend(), config.QueryCacheConfig{StaleTime: time.Minute, GCTime: 5 * time.Minute}, logger)
	events := &recordingPublisher{}
	svc := New(Deps{
		Packages:     repository.NewPackageRepo(db),
		Hotels:       repository.NewHotelRepo(db),
		Airlines:     repository.NewAirlineRepo(db),
		Conventions:  repository.NewConventionRepo(db),
		Reservations: repository.NewReservationRepo(db),
		Reviews:      repository.NewReviewRepo(db),
		Profiles:     repository.NewProfileRepo(db),
		Stats:        repository.NewStatsRepo(db),
		Cache:        cache,
		Events:       events,
		Logger:       logger,
	})
	return env{db: db, svc: svc, cache: cache, events: events}
}

func (e env) user(t *testing.T, email string, admin bool) string {
	t.Helper()
	u, _, err := repository.NewProfileRepo(e.db).Create(context.Background(), repository.NewUser{Email: email, Password: "secret123", IsAdmin: admin}, 4)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func (e env) pkg(t *testing.T, priceCents int64, slots int) *model.Package {
	t.Helper()
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	p := &model.Package{Title: "Kyoto autumn", Destination: "Kyoto, Japan", PriceCents: priceCents, AvailableSlots: slots, StartDate: start, EndDate: start.AddDate(0, 0, 5)}
	if err := e.svc.Catalog.CreatePackage(context.Background(), p); err != nil {
		t.Fatalf("CreatePackage: %v", err)
	}
	return p
}

// fresh reports whether key is served from cache without calling a loader.
func fresh[T any](t *testing.T, c *querycache.Cache, key querycache.Key) bool {
	t.Helper()
	called := false
	_, err := querycache.Fetch(context.Background(), c, key, func(context.Context) (T, error) {
		called = true
		var zero T
		return zero, nil
	})
	if err != nil {
		t.Fatalf("Fetch(%s): %v", key, err)
	}
	return !called
}

func TestDeleteStrikesAndRefetchesOwnerList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := e.user(t, "ana@example.com", false)
	p := e.pkg(t, 1000, 10)

	keep, err := e.svc.Reservations.Create(ctx, uid, p.ID, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	gone, err := e.svc.Reservations.Create(ctx, uid, p.ID, 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := e.svc.Reservations.Cancel(ctx, uid, gone.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	list, err := e.svc.Reservations.List(ctx, uid)
	if err != nil || len(list) != 2 {
		t.Fatalf("List = %d items, %v", len(list), err)
	}

	if err := e.svc.Reservations.Delete(ctx, uid, gone.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	cached, ok, err := querycache.Peek[[]model.Reservation](ctx, e.cache, querycache.Reservations(uid))
	if err != nil || !ok {
		t.Fatalf("Peek = %v, %v", ok, err)
	}
	if len(cached) != 1 || cached[0].ID != keep.ID {
		t.Fatalf("cached list after delete = %+v, want only %s", cached, keep.ID)
	}
	if !fresh[[]model.Reservation](t, e.cache, querycache.Reservations(uid)) {
		t.Fatal("owner list should have been refetched as fresh")
	}
	if got := e.events.types(); got[len(got)-1] != queue.EventReservationDeleted {
		t.Fatalf("last event = %s, want %s", got[len(got)-1], queue.EventReservationDeleted)
	}
}

func TestFailedDeleteLeavesCacheAlone(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := e.user(t, "bo@example.com", false)
	p := e.pkg(t, 1000, 10)

	r, err := e.svc.Reservations.Create(ctx, uid, p.ID, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := e.svc.Reservations.List(ctx, uid); err != nil {
		t.Fatalf("List: %v", err)
	}
	before := len(e.events.types())

	err = e.svc.Reservations.Delete(ctx, uid, r.ID)
	if !errors.Is(err, model.ErrNotDeletable) || Classify(err) != Precondition {
		t.Fatalf("Delete pending = %v (%s), want precondition ErrNotDeletable", err, Classify(err))
	}
	if !fresh[[]model.Reservation](t, e.cache, querycache.Reservations(uid)) {
		t.Fatal("failed delete must not invalidate the owner list")
	}
	if len(e.events.types()) != before {
		t.Fatal("failed delete must not publish an event")
	}

	other := e.user(t, "cy@example.com", false)
	if err := e.svc.Reservations.Delete(ctx, other, r.ID); !errors.Is(err, repository.ErrNotFound) || Classify(err) != Rejected {
		t.Fatalf("foreign delete = %v (%s), want rejected ErrNotFound", err, Classify(err))
	}
}

func TestBookingUpdatesCachedSlots(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := e.user(t, "di@example.com", false)
	p := e.pkg(t, 2500, 4)

	if got, _ := e.svc.Catalog.Package(ctx, p.ID); got.AvailableSlots != 4 {
		t.Fatalf("slots = %d, want 4", got.AvailableSlots)
	}
	r, err := e.svc.Reservations.Create(ctx, uid, p.ID, 3)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.TotalPriceCents != 7500 {
		t.Fatalf("total = %d, want 7500", r.TotalPriceCents)
	}
	if got, _ := e.svc.Catalog.Package(ctx, p.ID); got.AvailableSlots != 1 {
		t.Fatalf("slots after booking = %d, want 1", got.AvailableSlots)
	}

	_, err = e.svc.Reservations.Create(ctx, uid, p.ID, 2)
	if !errors.Is(err, repository.ErrInsufficientSlots) || Classify(err) != Rejected {
		t.Fatalf("overbooking = %v (%s), want rejected ErrInsufficientSlots", err, Classify(err))
	}
	if _, err := e.svc.Reservations.Create(ctx, uid, p.ID, 0); Classify(err) != Precondition {
		t.Fatalf("zero travelers = %v, want precondition", err)
	}

	updated, err := e.svc.Reservations.Update(ctx, uid, r.ID, repository.ReservationEdit{NumTravelers: 1})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.TotalPriceCents != 2500 {
		t.Fatalf("total after update = %d, want 2500", updated.TotalPriceCents)
	}
	if got, _ := e.svc.Catalog.Package(ctx, p.ID); got.AvailableSlots != 3 {
		t.Fatalf("slots after update = %d, want 3", got.AvailableSlots)
	}
}

func TestReviewAfterCompletionAppearsInAdminList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := e.user(t, "ed@example.com", false)
	admin := e.user(t, "root@example.com", true)
	p := e.pkg(t, 1000, 5)

	r, err := e.svc.Reservations.Create(ctx, uid, p.ID, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := e.svc.Admin.Reviews(ctx); err != nil {
		t.Fatalf("Reviews: %v", err)
	}
	four, five := 4, 5
	comments := "Great trip"
	in := repository.NewReview{ReservationID: r.ID, HotelRating: &four, AirlineRating: &five, Comments: &comments}
	if _, err := e.svc.Reviews.Create(ctx, uid, in); !errors.Is(err, model.ErrNotReviewable) || Classify(err) != Precondition {
		t.Fatalf("review before completion = %v", err)
	}

	for _, st := range []model.Status{model.StatusConfirmed, model.StatusCompleted} {
		if _, err := e.svc.Admin.SetStatus(ctx, admin, r.ID, st); err != nil {
			t.Fatalf("SetStatus(%s): %v", st, err)
		}
	}
	if _, err := e.svc.Admin.SetStatus(ctx, admin, r.ID, model.StatusCancelled); Classify(err) != Precondition {
		t.Fatalf("cancel completed = %v, want precondition", err)
	}

	rv, err := e.svc.Reviews.Create(ctx, uid, in)
	if err != nil {
		t.Fatalf("Create review: %v", err)
	}
	list, err := e.svc.Admin.Reviews(ctx)
	if err != nil {
		t.Fatalf("Reviews: %v", err)
	}
	if len(list) != 1 || list[0].ID != rv.ID || *list[0].Comments != "Great trip" {
		t.Fatalf("admin reviews = %+v", list)
	}
	if _, err := e.svc.Reviews.Create(ctx, uid, in); !errors.Is(err, model.ErrReviewExists) {
		t.Fatalf("second review = %v, want ErrReviewExists", err)
	}

	if err := e.svc.Admin.DeleteReview(ctx, rv.ID); err != nil {
		t.Fatalf("DeleteReview: %v", err)
	}
	cached, _, _ := querycache.Peek[[]model.Review](ctx, e.cache, querycache.AdminReviews())
	if len(cached) != 0 {
		t.Fatalf("deleted review still cached: %+v", cached)
	}
}

func TestAdminReservationFilterAndPayment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := e.user(t, "fa@example.com", false)
	admin := e.user(t, "boss@example.com", true)
	p := e.pkg(t, 1000, 5)

	a, _ := e.svc.Reservations.Create(ctx, uid, p.ID, 1)
	b, _ := e.svc.Reservations.Create(ctx, uid, p.ID, 1)
	if _, err := e.svc.Admin.Cancel(ctx, admin, b.ID); err != nil {
		t.Fatalf("admin Cancel: %v", err)
	}
	cancelled, err := e.svc.Admin.Reservations(ctx, model.StatusCancelled)
	if err != nil || len(cancelled) != 1 || cancelled[0].ID != b.ID {
		t.Fatalf("cancelled filter = %+v, %v", cancelled, err)
	}
	if got, _ := e.svc.Catalog.Package(ctx, p.ID); got.AvailableSlots != 4 {
		t.Fatalf("slots after admin cancel = %d, want 4", got.AvailableSlots)
	}

	paid, err := e.svc.Admin.SetPayment(ctx, admin, a.ID, model.PaymentPaid)
	if err != nil || paid.PaymentStatus != model.PaymentPaid {
		t.Fatalf("SetPayment = %+v, %v", paid, err)
	}
	if _, err := e.svc.Admin.SetPayment(ctx, admin, a.ID, "bogus"); !errors.Is(err, ErrInvalidPayment) {
		t.Fatalf("bogus payment = %v", err)
	}
	stats, err := e.svc.Admin.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.PaidRevenueCents != 1000 || stats.Reservations != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestSetAdminRefusesSelfDemotion(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "root@example.com", true)
	uid := e.user(t, "gi@example.com", false)

	if _, err := e.svc.Admin.SetAdmin(ctx, admin, admin, false); !errors.Is(err, ErrSelfDemotion) {
		t.Fatalf("self demotion = %v", err)
	}
	if ok, _ := e.svc.Profiles.IsAdmin(ctx, uid); ok {
		t.Fatal("new user should not be admin")
	}
	if _, err := e.svc.Admin.SetAdmin(ctx, admin, uid, true); err != nil {
		t.Fatalf("SetAdmin: %v", err)
	}
	if ok, err := e.svc.Profiles.IsAdmin(ctx, uid); !ok || err != nil {
		t.Fatalf("IsAdmin after grant = %v, %v", ok, err)
	}
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	e := newEnv(t)
	e.events.fail = true
	uid := e.user(t, "ho@example.com", false)
	p := e.pkg(t, 1000, 2)
	if _, err := e.svc.Reservations.Create(context.Background(), uid, p.ID, 1); err != nil {
		t.Fatalf("Create with broker down: %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{precondition(model.ErrNotDeletable), Precondition},
		{fmt.Errorf("wrapped: %w", repository.ErrForbidden), Rejected},
		{model.ErrInvalidTransition, Rejected},
		{errors.New("connection refused"), Transport},
		{context.DeadlineExceeded, Transport},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
