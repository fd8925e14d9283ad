package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type expiredTokenPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenCleanup periodically removes expired access and refresh tokens.
type TokenCleanup struct {
	access   expiredTokenPurger
	refresh  expiredTokenPurger
	interval time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewTokenCleanup constructs the cleanup job.
func NewTokenCleanup(access, refresh expiredTokenPurger, interval time.Duration, metrics *MetricsService, logger *zap.Logger) *TokenCleanup {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenCleanup{access: access, refresh: refresh, interval: interval, metrics: metrics, logger: logger, now: time.Now}
}

// Start runs one sweep immediately and then one per interval until ctx is cancelled.
func (c *TokenCleanup) Start(ctx context.Context) {
	go func() {
		c.RunOnce(ctx)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("token cleanup stopped")
				return
			case <-ticker.C:
				c.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce performs a single sweep and returns the number of purged access and refresh tokens.
func (c *TokenCleanup) RunOnce(ctx context.Context) (int64, int64) {
	now := c.now().UTC()

	accessN, err := c.access.DeleteExpired(ctx, now)
	if err != nil {
		c.logger.Error("purge expired access tokens", zap.Error(err))
	}
	refreshN, err := c.refresh.DeleteExpired(ctx, now)
	if err != nil {
		c.logger.Error("purge expired refresh tokens", zap.Error(err))
	}

	c.metrics.RecordTokensPurged("access", accessN)
	c.metrics.RecordTokensPurged("refresh", refreshN)
	if accessN > 0 || refreshN > 0 {
		c.logger.Info("expired tokens purged", zap.Int64("access", accessN), zap.Int64("refresh", refreshN))
	}
	return accessN, refreshN
}
