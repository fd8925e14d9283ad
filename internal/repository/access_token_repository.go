package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hr-attendance-api/internal/models"
)

const accessTokenColumns = `id, user_id, device_id, name, abilities, token_hash, last_used_at, expires_at, created_at`

// AccessTokenRepository persists the stored half of bearer tokens.
type AccessTokenRepository struct {
	db *sqlx.DB
}

// NewAccessTokenRepository constructs the repository.
func NewAccessTokenRepository(db *sqlx.DB) *AccessTokenRepository {
	return &AccessTokenRepository{db: db}
}

// Create inserts a token record.
func (r *AccessTokenRepository) Create(ctx context.Context, token *models.AccessToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO personal_access_tokens (` + accessTokenColumns + `) VALUES (:id, :user_id, :device_id, :name, :abilities, :token_hash, :last_used_at, :expires_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create access token: %w", err)
	}
	return nil
}

// FindByID returns the token record with the given id.
func (r *AccessTokenRepository) FindByID(ctx context.Context, id string) (*models.AccessToken, error) {
	const query = `SELECT ` + accessTokenColumns + ` FROM personal_access_tokens WHERE id = $1 LIMIT 1`
	var token models.AccessToken
	if err := r.db.GetContext(ctx, &token, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find access token: %w", err)
	}
	return &token, nil
}

// Touch records the last time the token authenticated a request.
func (r *AccessTokenRepository) Touch(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE personal_access_tokens SET last_used_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("touch access token: %w", err)
	}
	return nil
}

// DeleteByUserDevice removes every access token of a user on one device.
func (r *AccessTokenRepository) DeleteByUserDevice(ctx context.Context, userID, deviceID string) (int64, error) {
	const query = `DELETE FROM personal_access_tokens WHERE user_id = $1 AND device_id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, deviceID)
	if err != nil {
		return 0, fmt.Errorf("delete device access tokens: %w", err)
	}
	return rowsAffected(res), nil
}

// DeleteByUser removes every access token of a user.
func (r *AccessTokenRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	const query = `DELETE FROM personal_access_tokens WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user access tokens: %w", err)
	}
	return rowsAffected(res), nil
}

// DeleteExpired purges tokens whose expiry is before now.
func (r *AccessTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM personal_access_tokens WHERE expires_at <= $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired access tokens: %w", err)
	}
	return rowsAffected(res), nil
}

func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
