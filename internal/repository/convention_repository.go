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

const conventionCols = `id, name, description, location, start_date, end_date, created_at, updated_at`

// ConventionRepo encapsulates queries on the conventions table.
type ConventionRepo struct {
	db *sqlx.DB
}

func NewConventionRepo(db *sqlx.DB) *ConventionRepo { return &ConventionRepo{db: db} }

// List returns conventions ordered by start date.
func (r *ConventionRepo) List(ctx context.Context) ([]model.Convention, error) {
	out := []model.Convention{}
	if err := sqlx.SelectContext(ctx, r.db, &out, "SELECT "+conventionCols+" FROM conventions ORDER BY start_date, id"); err != nil {
		return nil, fmt.Errorf("ConventionRepo.List: %w", err)
	}
	return out, nil
}

func (r *ConventionRepo) Get(ctx context.Context, id string) (*model.Convention, error) {
	var c model.Convention
	err := sqlx.GetContext(ctx, r.db, &c, r.db.Rebind("SELECT "+conventionCols+" FROM conventions WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ConventionRepo.Get: %w", err)
	}
	return &c, nil
}

func (r *ConventionRepo) Create(ctx context.Context, c *model.Convention) error {
	c.ID = uuid.NewString()
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	const q = `INSERT INTO conventions (` + conventionCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(q), c.ID, c.Name, c.Description, c.Location,
		c.StartDate.UTC(), c.EndDate.UTC(), c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("ConventionRepo.Create: %w", err)
	}
	return nil
}

func (r *ConventionRepo) Update(ctx context.Context, c *model.Convention) error {
	c.UpdatedAt = now()
	const q = `UPDATE conventions SET name = ?, description = ?, location = ?, start_date = ?, end_date = ?,
		updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), c.Name, c.Description, c.Location,
		c.StartDate.UTC(), c.EndDate.UTC(), c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("ConventionRepo.Update: %w", err)
	}
	return expectOne(res)
}

func (r *ConventionRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM conventions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("ConventionRepo.Delete: %w", err)
	}
	return expectOne(res)
}
