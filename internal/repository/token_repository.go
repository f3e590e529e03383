package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrTokenInvalid is returned by ValidateRefresh when the hash is
// unknown, already revoked or past its expiry.  Callers cannot tell
// which; all three mean the session is over.
var ErrTokenInvalid = errors.New("refresh token invalid")

// TokenRepo persists and validates refresh tokens.  Only the
// SHA-256 hash of a token is ever stored, so a leaked table cannot
// be replayed as live sessions.
type TokenRepo struct{ DB *sql.DB }

// NewTokenRepo returns a TokenRepo bound to the given database.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row for the user.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	const q = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`
	_, err := r.DB.ExecContext(ctx, q, userID, tokenHash, exp.UTC())
	return err
}

// ValidateRefresh resolves a token hash to its owning user id.  The
// revocation and expiry checks live in the WHERE clause, so a
// revoked or expired row is indistinguishable from a missing one.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	const q = `SELECT user_id FROM refresh_tokens
	           WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()
	           LIMIT 1`
	var userID uint64
	err := r.DB.QueryRowContext(ctx, q, tokenHash).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTokenInvalid
		}
		return 0, err
	}
	return userID, nil
}

// RevokeByHash marks one token as revoked.  Revoking an already
// revoked or unknown hash is a no-op.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	const q = `UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP()
	           WHERE token_hash = ? AND revoked_at IS NULL`
	_, err := r.DB.ExecContext(ctx, q, tokenHash)
	return err
}

// RevokeAllForUser revokes every active token of a user, ending all
// of their sessions at once.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	const q = `UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP()
	           WHERE user_id = ? AND revoked_at IS NULL`
	_, err := r.DB.ExecContext(ctx, q, userID)
	return err
}
