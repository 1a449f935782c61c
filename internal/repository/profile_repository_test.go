package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/travel-booking/internal/model"
)

func TestProfileLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewProfileRepo(db)

	u, p, err := repo.Create(ctx, NewUser{Email: " Ana@Example.com ", Password: "secret123", FirstName: strp("Ana")}, 4)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Email != "ana@example.com" || p.ID != u.ID || p.IsAdmin {
		t.Fatalf("created user=%+v profile=%+v", u, p)
	}
	if _, _, err := repo.Create(ctx, NewUser{Email: "ana@example.com", Password: "x"}, 4); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("duplicate: err = %v, want ErrEmailExists", err)
	}

	got, err := repo.GetUserByEmail(ctx, "ANA@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.Verified() {
		t.Fatal("new user must start unverified")
	}
	if err := repo.MarkVerified(ctx, u.ID); err != nil {
		t.Fatalf("MarkVerified: %v", err)
	}
	got, err = repo.GetUser(ctx, u.ID)
	if err != nil || !got.Verified() {
		t.Fatalf("after MarkVerified: %+v, %v", got, err)
	}

	named, err := repo.UpdateNames(ctx, u.ID, strp("Ana"), strp("Silva"))
	if err != nil || *named.LastName != "Silva" {
		t.Fatalf("UpdateNames: %+v, %v", named, err)
	}
	admin, err := repo.SetAdmin(ctx, u.ID, true)
	if err != nil || !admin.IsAdmin {
		t.Fatalf("SetAdmin: %+v, %v", admin, err)
	}
	if _, err := repo.SetAdmin(ctx, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetAdmin missing: err = %v", err)
	}
}

func TestTokens(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := mustUser(t, db, "ana@example.com")
	repo := NewTokenRepo(db)

	if err := repo.StoreRefresh(ctx, userID, "h1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("StoreRefresh: %v", err)
	}
	if err := repo.StoreRefresh(ctx, userID, "h2", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("StoreRefresh: %v", err)
	}
	if got, err := repo.ValidateRefresh(ctx, "h1"); err != nil || got != userID {
		t.Fatalf("ValidateRefresh h1 = %q, %v", got, err)
	}
	if _, err := repo.ValidateRefresh(ctx, "h2"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired: err = %v", err)
	}
	if err := repo.RevokeByHash(ctx, "h1"); err != nil {
		t.Fatalf("RevokeByHash: %v", err)
	}
	if err := repo.RevokeByHash(ctx, "h1"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("second RevokeByHash = %v, want ErrInvalidToken", err)
	}
	if err := repo.StoreRefresh(ctx, userID, "h3", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("StoreRefresh: %v", err)
	}
	if err := repo.RevokeAllForUser(ctx, userID); err != nil {
		t.Fatalf("RevokeAllForUser: %v", err)
	}
	for _, h := range []string{"h1", "h3"} {
		if _, err := repo.ValidateRefresh(ctx, h); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("revoked %s: err = %v", h, err)
		}
	}

	if err := repo.StoreVerification(ctx, userID, "v1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("StoreVerification: %v", err)
	}
	if got, err := repo.ConsumeVerification(ctx, "v1"); err != nil || got != userID {
		t.Fatalf("ConsumeVerification = %q, %v", got, err)
	}
	if _, err := repo.ConsumeVerification(ctx, "v1"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("reuse: err = %v", err)
	}
}

func TestStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := mustUser(t, db, "ana@example.com")
	pkg := mustPackage(t, db, 1000, 10)
	reservations := NewReservationRepo(db)

	a, err := reservations.Create(ctx, userID, pkg.ID, 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := reservations.Create(ctx, userID, pkg.ID, 1); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := reservations.SetPaymentStatus(ctx, a.ID, model.PaymentPaid); err != nil {
		t.Fatalf("SetPaymentStatus: %v", err)
	}
	st, err := NewStatsRepo(db).Get(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Packages != 1 || st.Users != 1 || st.Reservations != 2 || st.Reviews != 0 {
		t.Errorf("counts = %+v", st)
	}
	if st.ByStatus[model.StatusPending] != 2 {
		t.Errorf("pending = %d, want 2", st.ByStatus[model.StatusPending])
	}
	if st.PaidRevenueCents != 2000 {
		t.Errorf("revenue = %d, want 2000", st.PaidRevenueCents)
	}
}
