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

const airlineCols = `id, name, description, logo_url, created_at, updated_at`

// AirlineRepo encapsulates queries on the airlines table.
type AirlineRepo struct {
	db *sqlx.DB
}

func NewAirlineRepo(db *sqlx.DB) *AirlineRepo { return &AirlineRepo{db: db} }

func (r *AirlineRepo) List(ctx context.Context) ([]model.Airline, error) {
	out := []model.Airline{}
	if err := sqlx.SelectContext(ctx, r.db, &out, "SELECT "+airlineCols+" FROM airlines ORDER BY name, id"); err != nil {
		return nil, fmt.Errorf("AirlineRepo.List: %w", err)
	}
	return out, nil
}

func (r *AirlineRepo) Get(ctx context.Context, id string) (*model.Airline, error) {
	var a model.Airline
	err := sqlx.GetContext(ctx, r.db, &a, r.db.Rebind("SELECT "+airlineCols+" FROM airlines WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("AirlineRepo.Get: %w", err)
	}
	return &a, nil
}

func (r *AirlineRepo) Create(ctx context.Context, a *model.Airline) error {
	a.ID = uuid.NewString()
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt
	const q = `INSERT INTO airlines (` + airlineCols + `) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(q), a.ID, a.Name, a.Description, a.LogoURL, a.CreatedAt, a.UpdatedAt); err != nil {
		return fmt.Errorf("AirlineRepo.Create: %w", err)
	}
	return nil
}

func (r *AirlineRepo) Update(ctx context.Context, a *model.Airline) error {
	a.UpdatedAt = now()
	const q = `UPDATE airlines SET name = ?, description = ?, logo_url = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), a.Name, a.Description, a.LogoURL, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("AirlineRepo.Update: %w", err)
	}
	return expectOne(res)
}

func (r *AirlineRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM airlines WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("AirlineRepo.Delete: %w", err)
	}
	return expectOne(res)
}
