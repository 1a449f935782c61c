package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/travel-booking/internal/database"
	"github.com/iliyamo/travel-booking/internal/model"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func mustUser(t *testing.T, db *sqlx.DB, email string) string {
	t.Helper()
	u, _, err := NewProfileRepo(db).Create(context.Background(), NewUser{Email: email, Password: "secret123"}, 4)
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u.ID
}

func mustPackage(t *testing.T, db *sqlx.DB, priceCents int64, slots int) *model.Package {
	t.Helper()
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	p := &model.Package{
		Title:          "Lisbon week",
		Description:    "Seven nights by the Tagus",
		Destination:    "Lisbon, Portugal",
		PriceCents:     priceCents,
		AvailableSlots: slots,
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, 7),
	}
	if err := NewPackageRepo(db).Create(context.Background(), p); err != nil {
		t.Fatalf("create package: %v", err)
	}
	return p
}

func slotsLeft(t *testing.T, db *sqlx.DB, id string) int {
	t.Helper()
	p, err := NewPackageRepo(db).Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get package: %v", err)
	}
	return p.AvailableSlots
}

func strp(s string) *string { return &s }
func intp(n int) *int       { return &n }
