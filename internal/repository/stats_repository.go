package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/travel-booking/internal/model"
)

// StatsRepo computes the admin dashboard counters.
type StatsRepo struct {
	db *sqlx.DB
}

func NewStatsRepo(db *sqlx.DB) *StatsRepo { return &StatsRepo{db: db} }

// Get runs the dashboard aggregates.  Revenue counts only paid reservations.
func (r *StatsRepo) Get(ctx context.Context) (*model.Stats, error) {
	st := model.Stats{ByStatus: map[model.Status]int{}}
	counts := []struct {
		dest  *int
		query string
	}{
		{&st.Packages, "SELECT COUNT(*) FROM packages"},
		{&st.Users, "SELECT COUNT(*) FROM profiles"},
		{&st.Reviews, "SELECT COUNT(*) FROM reviews"},
		{&st.Reservations, "SELECT COUNT(*) FROM reservations"},
	}
	for _, c := range counts {
		if err := sqlx.GetContext(ctx, r.db, c.dest, c.query); err != nil {
			return nil, fmt.Errorf("StatsRepo.Get: %w", err)
		}
	}

	var rows []struct {
		Status model.Status `db:"status"`
		N      int          `db:"n"`
	}
	if err := sqlx.SelectContext(ctx, r.db, &rows, "SELECT status, COUNT(*) AS n FROM reservations GROUP BY status"); err != nil {
		return nil, fmt.Errorf("StatsRepo.Get: %w", err)
	}
	for _, row := range rows {
		st.ByStatus[row.Status] = row.N
	}

	q := r.db.Rebind("SELECT COALESCE(SUM(total_price_cents), 0) FROM reservations WHERE payment_status = ?")
	if err := sqlx.GetContext(ctx, r.db, &st.PaidRevenueCents, q, model.PaymentPaid); err != nil {
		return nil, fmt.Errorf("StatsRepo.Get: %w", err)
	}
	return &st, nil
}
