package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// TokenRepo persists refresh token hashes.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token hash for userID.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	return errors.Wrap(err, "store refresh token")
}

// Consume revokes a live token and returns its owner. Revoked, expired and
// unknown tokens yield ErrNotFound. The row is locked so a token can be
// exchanged only once.
func (r *TokenRepo) Consume(ctx context.Context, tokenHash string, now time.Time) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	var (
		id        uint64
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err = tx.QueryRowContext(ctx,
		"SELECT id, user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1 FOR UPDATE",
		tokenHash).Scan(&id, &userID, &expiresAt, &revokedAt)
	if err != nil {
		return 0, mapErr(err)
	}
	if revokedAt.Valid || !now.Before(expiresAt) {
		return 0, ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, "UPDATE refresh_tokens SET revoked_at=? WHERE id=?", now.UTC(), id); err != nil {
		return 0, errors.Wrap(err, "revoke refresh token")
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit")
	}
	return userID, nil
}

// RevokeAllForUser revokes every live token of userID.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL",
		now.UTC(), userID)
	return errors.Wrap(err, "revoke refresh tokens")
}
