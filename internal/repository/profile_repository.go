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
	"github.com/iliyamo/travel-booking/internal/utils"
)

const (
	userCols    = `id, email, password_hash, email_verified_at, created_at, updated_at`
	profileCols = `id, first_name, last_name, is_admin, created_at, updated_at`
)

// ProfileRepo covers the users table (credentials) and the profiles table
// (names and the admin flag).  A profile row is created together with its
// user row and shares its id.
type ProfileRepo struct {
	db *sqlx.DB
}

func NewProfileRepo(db *sqlx.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// NewUser is the sign-up form.
type NewUser struct {
	Email     string
	Password  string
	FirstName *string
	LastName  *string
	IsAdmin   bool
}

// Create inserts the user and its profile in one transaction.  The email is
// normalized to lower case; a duplicate returns ErrEmailExists.
func (r *ProfileRepo) Create(ctx context.Context, in NewUser, cost int) (*model.User, *model.Profile, error) {
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return nil, nil, err
	}
	ts := now()
	u := model.User{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	p := model.Profile{ID: u.ID, FirstName: in.FirstName, LastName: in.LastName, IsAdmin: in.IsAdmin, CreatedAt: ts, UpdatedAt: ts}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("ProfileRepo.Create: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO users (`+userCols+`) VALUES (?, ?, ?, ?, ?, ?)`),
		u.ID, u.Email, u.PasswordHash, u.EmailVerifiedAt, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, ErrEmailExists
		}
		return nil, nil, fmt.Errorf("ProfileRepo.Create: %w", err)
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO profiles (`+profileCols+`) VALUES (?, ?, ?, ?, ?, ?)`),
		p.ID, p.FirstName, p.LastName, p.IsAdmin, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("ProfileRepo.Create: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("ProfileRepo.Create: %w", err)
	}
	committed = true
	return &u, &p, nil
}

// GetUserByEmail fetches credentials by normalized email.
func (r *ProfileRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUser(ctx, "email", normalizeEmail(email))
}

// GetUser fetches credentials by id.
func (r *ProfileRepo) GetUser(ctx context.Context, id string) (*model.User, error) {
	return r.getUser(ctx, "id", id)
}

func (r *ProfileRepo) getUser(ctx context.Context, col, v string) (*model.User, error) {
	var u model.User
	q := r.db.Rebind("SELECT " + userCols + " FROM users WHERE " + col + " = ?")
	err := sqlx.GetContext(ctx, r.db, &u, q, v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ProfileRepo.getUser: %w", err)
	}
	return &u, nil
}

// MarkVerified stamps email_verified_at if it is not set yet.
func (r *ProfileRepo) MarkVerified(ctx context.Context, userID string) error {
	ts := now()
	const q = `UPDATE users SET email_verified_at = COALESCE(email_verified_at, ?), updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), ts, ts, userID)
	if err != nil {
		return fmt.Errorf("ProfileRepo.MarkVerified: %w", err)
	}
	return expectOne(res)
}

// Get returns the profile for id.
func (r *ProfileRepo) Get(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	err := sqlx.GetContext(ctx, r.db, &p, r.db.Rebind("SELECT "+profileCols+" FROM profiles WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ProfileRepo.Get: %w", err)
	}
	return &p, nil
}

// UpdateNames lets a user change their own first and last name.
func (r *ProfileRepo) UpdateNames(ctx context.Context, id string, first, last *string) (*model.Profile, error) {
	const q = `UPDATE profiles SET first_name = ?, last_name = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), first, last, now(), id)
	if err != nil {
		return nil, fmt.Errorf("ProfileRepo.UpdateNames: %w", err)
	}
	if err := expectOne(res); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// SetAdmin grants or revokes the admin flag.
func (r *ProfileRepo) SetAdmin(ctx context.Context, id string, admin bool) (*model.Profile, error) {
	const q = `UPDATE profiles SET is_admin = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), admin, now(), id)
	if err != nil {
		return nil, fmt.Errorf("ProfileRepo.SetAdmin: %w", err)
	}
	if err := expectOne(res); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// List returns every profile ordered by sign-up time.
func (r *ProfileRepo) List(ctx context.Context) ([]model.Profile, error) {
	out := []model.Profile{}
	if err := sqlx.SelectContext(ctx, r.db, &out, "SELECT "+profileCols+" FROM profiles ORDER BY created_at, id"); err != nil {
		return nil, fmt.Errorf("ProfileRepo.List: %w", err)
	}
	return out, nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
