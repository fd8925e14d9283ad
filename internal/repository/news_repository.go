package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hr-attendance-api/internal/models"
)

// NewsRepository reads published news from the legacy database.
type NewsRepository struct {
	db *sqlx.DB
}

// NewNewsRepository creates the repository.
func NewNewsRepository(db *sqlx.DB) *NewsRepository {
	return &NewsRepository{db: db}
}

// ListPublished returns up to limit news items visible at now, pinned first.
func (r *NewsRepository) ListPublished(ctx context.Context, now time.Time, limit int) ([]models.News, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	const query = `SELECT id, title, content, is_pinned, published_at, expires_at
FROM news
WHERE published_at <= $1 AND (expires_at IS NULL OR expires_at > $1)
ORDER BY is_pinned DESC, published_at DESC
LIMIT $2`
	items := []models.News{}
	if err := r.db.SelectContext(ctx, &items, query, now, limit); err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	return items, nil
}
