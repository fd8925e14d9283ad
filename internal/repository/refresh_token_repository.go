package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/hr-attendance-api/internal/models"
)

const refreshTokenColumns = `id, user_id, device_id, token_hash, expires_at, created_at`

// RefreshTokenRepository stores rotating refresh tokens bound to a (user, device) pair.
type RefreshTokenRepository struct {
	db *sqlx.DB
}

// NewRefreshTokenRepository constructs the repository.
func NewRefreshTokenRepository(db *sqlx.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create inserts token while keeping at most maxPerDevice rows for its (user, device) pair.
// The oldest rows are evicted first. An advisory lock serialises concurrent creations for the pair.
// It returns the number of evicted rows.
func (r *RefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken, maxPerDevice int) (int, error) {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin refresh token tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, token.UserID+":"+token.DeviceID); err != nil {
		return 0, fmt.Errorf("lock refresh token pair: %w", err)
	}

	var ids []string
	const listQuery = `SELECT id FROM refresh_tokens WHERE user_id = $1 AND device_id = $2 ORDER BY created_at ASC, id ASC`
	if err := tx.SelectContext(ctx, &ids, listQuery, token.UserID, token.DeviceID); err != nil {
		return 0, fmt.Errorf("list device refresh tokens: %w", err)
	}

	evicted := 0
	if maxPerDevice > 0 {
		if overflow := len(ids) - (maxPerDevice - 1); overflow > 0 {
			const evictQuery = `DELETE FROM refresh_tokens WHERE id = ANY($1)`
			if _, err := tx.ExecContext(ctx, evictQuery, pq.Array(ids[:overflow])); err != nil {
				return 0, fmt.Errorf("evict oldest refresh tokens: %w", err)
			}
			evicted = overflow
		}
	}

	const insertQuery = `INSERT INTO refresh_tokens (` + refreshTokenColumns + `) VALUES (:id, :user_id, :device_id, :token_hash, :expires_at, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, token); err != nil {
		return 0, fmt.Errorf("create refresh token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit refresh token: %w", err)
	}
	return evicted, nil
}

// Consume atomically deletes and returns the live token matching hash and device.
// Concurrent callers presenting the same token race on a single DELETE, so at most one wins.
// A matching but expired row is purged and sql.ErrNoRows is returned.
func (r *RefreshTokenRepository) Consume(ctx context.Context, tokenHash, deviceID string, now time.Time) (*models.RefreshToken, error) {
	const query = `DELETE FROM refresh_tokens WHERE token_hash = $1 AND device_id = $2 AND expires_at > $3 RETURNING ` + refreshTokenColumns
	var token models.RefreshToken
	err := r.db.GetContext(ctx, &token, query, tokenHash, deviceID, now)
	if err == nil {
		return &token, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}

	const purgeQuery = `DELETE FROM refresh_tokens WHERE token_hash = $1 AND device_id = $2 AND expires_at <= $3`
	if _, purgeErr := r.db.ExecContext(ctx, purgeQuery, tokenHash, deviceID, now); purgeErr != nil {
		return nil, fmt.Errorf("purge expired refresh token: %w", purgeErr)
	}
	return nil, sql.ErrNoRows
}

// DeleteByUserDevice revokes every refresh token of a user on one device.
func (r *RefreshTokenRepository) DeleteByUserDevice(ctx context.Context, userID, deviceID string) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE user_id = $1 AND device_id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, deviceID)
	if err != nil {
		return 0, fmt.Errorf("delete device refresh tokens: %w", err)
	}
	return rowsAffected(res), nil
}

// DeleteByUser revokes every refresh token of a user.
func (r *RefreshTokenRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user refresh tokens: %w", err)
	}
	return rowsAffected(res), nil
}

// DeleteExpired purges tokens whose expiry is before now.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at <= $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return rowsAffected(res), nil
}
