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

const hotelCols = `id, name, city, country, address, description, star_rating, image_url, created_at, updated_at`

// HotelRepo encapsulates queries on the hotels table.
type HotelRepo struct {
	db *sqlx.DB
}

// NewHotelRepo returns a HotelRepo bound to db.
func NewHotelRepo(db *sqlx.DB) *HotelRepo { return &HotelRepo{db: db} }

// List returns every hotel ordered by name.
func (r *HotelRepo) List(ctx context.Context) ([]model.Hotel, error) {
	out := []model.Hotel{}
	if err := sqlx.SelectContext(ctx, r.db, &out, "SELECT "+hotelCols+" FROM hotels ORDER BY name, id"); err != nil {
		return nil, fmt.Errorf("HotelRepo.List: %w", err)
	}
	return out, nil
}

// Get fetches a hotel by id or returns ErrNotFound.
func (r *HotelRepo) Get(ctx context.Context, id string) (*model.Hotel, error) {
	var h model.Hotel
	err := sqlx.GetContext(ctx, r.db, &h, r.db.Rebind("SELECT "+hotelCols+" FROM hotels WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("HotelRepo.Get: %w", err)
	}
	return &h, nil
}

// Create inserts h and fills its ID and timestamps.
func (r *HotelRepo) Create(ctx context.Context, h *model.Hotel) error {
	h.ID = uuid.NewString()
	h.CreatedAt = now()
	h.UpdatedAt = h.CreatedAt
	const q = `INSERT INTO hotels (` + hotelCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(q), h.ID, h.Name, h.City, h.Country, h.Address,
		h.Description, h.StarRating, h.ImageURL, h.CreatedAt, h.UpdatedAt); err != nil {
		return fmt.Errorf("HotelRepo.Create: %w", err)
	}
	return nil
}

// Update overwrites the editable columns of h.
func (r *HotelRepo) Update(ctx context.Context, h *model.Hotel) error {
	h.UpdatedAt = now()
	const q = `UPDATE hotels SET name = ?, city = ?, country = ?, address = ?, description = ?,
		star_rating = ?, image_url = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), h.Name, h.City, h.Country, h.Address,
		h.Description, h.StarRating, h.ImageURL, h.UpdatedAt, h.ID)
	if err != nil {
		return fmt.Errorf("HotelRepo.Update: %w", err)
	}
	return expectOne(res)
}

// Delete removes a hotel; packages referencing it keep existing with a
// NULL hotel_id.
func (r *HotelRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM hotels WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("HotelRepo.Delete: %w", err)
	}
	return expectOne(res)
}
