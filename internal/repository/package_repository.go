package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/travel-booking/internal/model"
)

const packageCols = `id, title, description, destination, price_cents, available_slots,
	start_date, end_date, duration_days, hotel_id, airline_id, convention_id, image_url,
	created_at, updated_at`

// PackageRepo encapsulates queries on the packages table.  Reads embed the
// referenced hotel, airline and convention rows.
type PackageRepo struct {
	db *sqlx.DB
}

// NewPackageRepo returns a PackageRepo bound to db.
func NewPackageRepo(db *sqlx.DB) *PackageRepo { return &PackageRepo{db: db} }

// List returns packages matching f ordered by start date.  Destination
// matches case-insensitively on a substring; From/To select packages that
// start on or after From and end on or before To.
func (r *PackageRepo) List(ctx context.Context, f model.PackageFilter) ([]model.Package, error) {
	var (
		where []string
		args  []any
	)
	if d := strings.TrimSpace(f.Destination); d != "" {
		where = append(where, "LOWER(destination) LIKE ?")
		args = append(args, "%"+strings.ToLower(d)+"%")
	}
	if !f.From.IsZero() {
		where = append(where, "start_date >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "end_date <= ?")
		args = append(args, f.To.UTC())
	}
	if f.MaxPriceCents > 0 {
		where = append(where, "price_cents <= ?")
		args = append(args, f.MaxPriceCents)
	}
	q := "SELECT " + packageCols + " FROM packages"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY start_date, id"

	out := []model.Package{}
	if err := sqlx.SelectContext(ctx, r.db, &out, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("PackageRepo.List: %w", err)
	}
	if err := embedPackageRefs(ctx, r.db, out); err != nil {
		return nil, fmt.Errorf("PackageRepo.List: %w", err)
	}
	return out, nil
}

// Get fetches one package with its references.
func (r *PackageRepo) Get(ctx context.Context, id string) (*model.Package, error) {
	p, err := getPackage(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	list := []model.Package{*p}
	if err := embedPackageRefs(ctx, r.db, list); err != nil {
		return nil, fmt.Errorf("PackageRepo.Get: %w", err)
	}
	return &list[0], nil
}

// Create inserts p and fills its ID and timestamps.
func (r *PackageRepo) Create(ctx context.Context, p *model.Package) error {
	p.ID = uuid.NewString()
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	const q = `INSERT INTO packages (` + packageCols + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q),
		p.ID, p.Title, p.Description, p.Destination, p.PriceCents, p.AvailableSlots,
		p.StartDate.UTC(), p.EndDate.UTC(), p.DurationDays, p.HotelID, p.AirlineID, p.ConventionID, p.ImageURL,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("PackageRepo.Create: %w", err)
	}
	return nil
}

// Update overwrites every editable column of p.  ErrNotFound is returned
// when no row has p.ID.
func (r *PackageRepo) Update(ctx context.Context, p *model.Package) error {
	p.UpdatedAt = now()
	const q = `UPDATE packages SET title = ?, description = ?, destination = ?, price_cents = ?,
		available_slots = ?, start_date = ?, end_date = ?, duration_days = ?, hotel_id = ?,
		airline_id = ?, convention_id = ?, image_url = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q),
		p.Title, p.Description, p.Destination, p.PriceCents, p.AvailableSlots,
		p.StartDate.UTC(), p.EndDate.UTC(), p.DurationDays, p.HotelID, p.AirlineID, p.ConventionID, p.ImageURL,
		p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("PackageRepo.Update: %w", err)
	}
	return expectOne(res)
}

// Delete removes a package.  A package with reservations, whatever their
// status, is refused with ErrInUse.
func (r *PackageRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM packages WHERE id = ?`), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("PackageRepo.Delete: %w", err)
	}
	return expectOne(res)
}

// Destinations lists the distinct destinations in the catalog.
func (r *PackageRepo) Destinations(ctx context.Context) ([]string, error) {
	out := []string{}
	if err := sqlx.SelectContext(ctx, r.db, &out, `SELECT DISTINCT destination FROM packages ORDER BY destination`); err != nil {
		return nil, fmt.Errorf("PackageRepo.Destinations: %w", err)
	}
	return out, nil
}

func getPackage(ctx context.Context, q sqlx.ExtContext, id string) (*model.Package, error) {
	var p model.Package
	err := sqlx.GetContext(ctx, q, &p, q.Rebind("SELECT "+packageCols+" FROM packages WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getPackage: %w", err)
	}
	return &p, nil
}

// embedPackageRefs loads the hotels, airlines and conventions referenced by
// pkgs with one IN query per table and attaches them in place.
func embedPackageRefs(ctx context.Context, q sqlx.ExtContext, pkgs []model.Package) error {
	var hotelIDs, airlineIDs, conventionIDs []string
	for _, p := range pkgs {
		if p.HotelID != nil {
			hotelIDs = append(hotelIDs, *p.HotelID)
		}
		if p.AirlineID != nil {
			airlineIDs = append(airlineIDs, *p.AirlineID)
		}
		if p.ConventionID != nil {
			conventionIDs = append(conventionIDs, *p.ConventionID)
		}
	}
	var hotels []model.Hotel
	if err := selectIn(ctx, q, &hotels, "SELECT "+hotelCols+" FROM hotels WHERE id IN (?)", hotelIDs); err != nil {
		return err
	}
	var airlines []model.Airline
	if err := selectIn(ctx, q, &airlines, "SELECT "+airlineCols+" FROM airlines WHERE id IN (?)", airlineIDs); err != nil {
		return err
	}
	var conventions []model.Convention
	if err := selectIn(ctx, q, &conventions, "SELECT "+conventionCols+" FROM conventions WHERE id IN (?)", conventionIDs); err != nil {
		return err
	}

	hotelByID := make(map[string]*model.Hotel, len(hotels))
	for i := range hotels {
		hotelByID[hotels[i].ID] = &hotels[i]
	}
	airlineByID := make(map[string]*model.Airline, len(airlines))
	for i := range airlines {
		airlineByID[airlines[i].ID] = &airlines[i]
	}
	conventionByID := make(map[string]*model.Convention, len(conventions))
	for i := range conventions {
		conventionByID[conventions[i].ID] = &conventions[i]
	}
	for i := range pkgs {
		if id := pkgs[i].HotelID; id != nil {
			pkgs[i].Hotel = hotelByID[*id]
		}
		if id := pkgs[i].AirlineID; id != nil {
			pkgs[i].Airline = airlineByID[*id]
		}
		if id := pkgs[i].ConventionID; id != nil {
			pkgs[i].Convention = conventionByID[*id]
		}
	}
	return nil
}

// selectIn runs an IN (?) query for ids; an empty id list is a no-op.
func selectIn(ctx context.Context, q sqlx.ExtContext, dest any, query string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(query, ids)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, q, dest, q.Rebind(query), args...)
}

// expectOne maps "no rows affected" to ErrNotFound.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
