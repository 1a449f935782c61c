package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// TokenRepo persists refresh tokens and email verification tokens.  Only
// SHA-256 hashes of the raw values are stored.
type TokenRepo struct{ db *sqlx.DB }

func NewTokenRepo(db *sqlx.DB) *TokenRepo { return &TokenRepo{db: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind("INSERT INTO refresh_tokens (token_hash, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)"),
		tokenHash, userID, exp.UTC(), now())
	if err != nil {
		return fmt.Errorf("TokenRepo.StoreRefresh: %w", err)
	}
	return nil
}

// ValidateRefresh returns the user id if a non-revoked, non-expired token exists.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (string, error) {
	var row struct {
		UserID    string     `db:"user_id"`
		ExpiresAt time.Time  `db:"expires_at"`
		RevokedAt *time.Time `db:"revoked_at"`
	}
	err := sqlx.GetContext(ctx, r.db, &row,
		r.db.Rebind("SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = ?"), tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("TokenRepo.ValidateRefresh: %w", err)
	}
	if row.RevokedAt != nil || time.Now().UTC().After(row.ExpiresAt) {
		return "", ErrInvalidToken
	}
	return row.UserID, nil
}

// RevokeByHash marks a token as revoked.  Only one caller can revoke a
// token; everyone else, including a concurrent refresh that validated the
// same token, gets ErrInvalidToken.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL"),
		now(), tokenHash)
	if err != nil {
		return fmt.Errorf("TokenRepo.RevokeByHash: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("TokenRepo.RevokeByHash: %w", err)
	}
	if n == 0 {
		return ErrInvalidToken
	}
	return nil
}

// RevokeAllForUser revokes all the user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL"),
		now(), userID)
	if err != nil {
		return fmt.Errorf("TokenRepo.RevokeAllForUser: %w", err)
	}
	return nil
}

// StoreVerification records an email verification token hash.
func (r *TokenRepo) StoreVerification(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind("INSERT INTO email_verifications (token_hash, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)"),
		tokenHash, userID, exp.UTC(), now())
	if err != nil {
		return fmt.Errorf("TokenRepo.StoreVerification: %w", err)
	}
	return nil
}

// ConsumeVerification marks a verification token used and returns its user.
// The token is spent by a conditional UPDATE so it can be used only once.
func (r *TokenRepo) ConsumeVerification(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := sqlx.GetContext(ctx, r.db, &userID,
		r.db.Rebind("SELECT user_id FROM email_verifications WHERE token_hash = ?"), tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("TokenRepo.ConsumeVerification: %w", err)
	}
	ts := now()
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE email_verifications SET used_at = ? WHERE token_hash = ? AND used_at IS NULL AND expires_at > ?"),
		ts, tokenHash, ts)
	if err != nil {
		return "", fmt.Errorf("TokenRepo.ConsumeVerification: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return "", ErrInvalidToken
	}
	return userID, nil
}
