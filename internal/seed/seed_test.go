package seed

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/database"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/querycache"
	"github.com/iliyamo/travel-booking/internal/repository"
	"github.com/iliyamo/travel-booking/internal/service"
)

func newSeeder(t *testing.T) *Seeder {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := querycache.New(querycache.NewMemoryBackend(), config.QueryCacheConfig{StaleTime: time.Minute, GCTime: 5 * time.Minute}, logger)
	d := service.Deps{
		Packages:     repository.NewPackageRepo(db),
		Hotels:       repository.NewHotelRepo(db),
		Airlines:     repository.NewAirlineRepo(db),
		Conventions:  repository.NewConventionRepo(db),
		Reservations: repository.NewReservationRepo(db),
		Reviews:      repository.NewReviewRepo(db),
		Profiles:     repository.NewProfileRepo(db),
		Stats:        repository.NewStatsRepo(db),
		Cache:        cache,
		Logger:       logger,
	}
	return &Seeder{
		Catalog:     service.New(d).Catalog,
		Hotels:      d.Hotels,
		Airlines:    d.Airlines,
		Conventions: d.Conventions,
		Packages:    d.Packages,
		Profiles:    d.Profiles,
		BcryptCost:  4,
		Logger:      logger,
	}
}

func TestDefaultCatalogParses(t *testing.T) {
	cat, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cat.Packages) == 0 || len(cat.Hotels) == 0 || len(cat.Airlines) == 0 {
		t.Fatalf("default catalog is empty: %+v", cat)
	}
	if cat.Admin != nil {
		t.Error("default catalog must not ship an admin account")
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("hotels:\n  - name: X\n    stars: 3\n"))
	if err == nil {
		t.Fatal("Parse accepted an unknown key")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	s := newSeeder(t)
	ctx := context.Background()
	cat, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	first, err := s.Run(ctx, cat)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.Packages != len(cat.Packages) || first.Hotels != len(cat.Hotels) {
		t.Fatalf("first run = %+v", first)
	}
	second, err := s.Run(ctx, cat)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second != (Result{}) {
		t.Fatalf("second run inserted rows: %+v", second)
	}

	pkgs, err := s.Packages.List(ctx, model.PackageFilter{Destination: "tokyo"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pkgs) != 1 {
		t.Fatalf("tokyo packages = %d, want 1", len(pkgs))
	}
	p := pkgs[0]
	if p.PriceCents != 219900 || p.DurationDays == nil || *p.DurationDays != 8 {
		t.Errorf("tokyo package = %+v", p)
	}
	if p.Hotel == nil || p.Hotel.Name != "Park Hotel Tokyo" || p.Convention == nil {
		t.Errorf("references not resolved: hotel=%+v convention=%+v", p.Hotel, p.Convention)
	}
}

func TestRunUnknownReference(t *testing.T) {
	s := newSeeder(t)
	cat := &Catalog{Packages: []Package{{
		Title: "Nowhere", Destination: "Atlantis", Price: 10, Slots: 1,
		StartDate: "2027-01-01", Days: 3, Hotel: "Missing Inn",
	}}}
	_, err := s.Run(context.Background(), cat)
	if err == nil || !strings.Contains(err.Error(), "Missing Inn") {
		t.Fatalf("Run = %v, want unknown hotel error", err)
	}
}

func TestRunAdmin(t *testing.T) {
	s := newSeeder(t)
	ctx := context.Background()
	cat := &Catalog{Admin: &Admin{Email: "Ops@Example.com", Password: "secret123", FirstName: "Ops"}}

	res, err := s.Run(ctx, cat)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Admin {
		t.Fatal("admin not created")
	}
	u, err := s.Profiles.GetUserByEmail(ctx, "ops@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if !u.Verified() {
		t.Error("seeded admin is not verified")
	}
	p, err := s.Profiles.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("Get profile: %v", err)
	}
	if !p.IsAdmin {
		t.Error("seeded admin lacks the admin flag")
	}

	again, err := s.Run(ctx, cat)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if again.Admin {
		t.Error("second run recreated the admin")
	}
}
