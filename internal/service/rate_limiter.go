package service

import (
	"context"
	"fmt"
	"time"

	"posbackend/internal/model"
	"posbackend/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RateLimiter bounds refund/void attempts per (tenant, user) within one minute.
// It is advisory: backend errors let the request through.
type RateLimiter interface {
	Allow(ctx context.Context, tenantID, userID uuid.UUID) error
}

type noopRateLimiter struct{}

func (noopRateLimiter) Allow(context.Context, uuid.UUID, uuid.UUID) error { return nil }

// NewNoopRateLimiter never limits.
func NewNoopRateLimiter() RateLimiter { return noopRateLimiter{} }

type auditRateLimiter struct {
	auditRepo repository.AuditRepository
	limit     int
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuditRateLimiter approximates the window by counting the user's recent
// refund and void audit records. A limit of zero disables it.
func NewAuditRateLimiter(auditRepo repository.AuditRepository, limit int, logger *zap.Logger) RateLimiter {
	if limit <= 0 {
		return noopRateLimiter{}
	}
	return &auditRateLimiter{auditRepo: auditRepo, limit: limit, logger: logger, now: time.Now}
}

func (l *auditRateLimiter) Allow(ctx context.Context, tenantID, userID uuid.UUID) error {
	since := l.now().Add(-time.Minute)
	count, err := l.auditRepo.CountRecent(ctx, tenantID, userID, []string{model.ActionRefunded, model.ActionVoided}, since)
	if err != nil {
		l.logger.Warn("rate limit lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil
	}
	if count >= int64(l.limit) {
		return ErrRateLimitExceeded.WithData(map[string]interface{}{"limit_per_minute": l.limit})
	}
	return nil
}

type redisRateLimiter struct {
	client *redis.Client
	limit  int
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisRateLimiter counts attempts in a per-minute redis key shared by all
// API instances. A limit of zero disables it.
func NewRedisRateLimiter(client *redis.Client, limit int, logger *zap.Logger) RateLimiter {
	if limit <= 0 {
		return noopRateLimiter{}
	}
	return &redisRateLimiter{client: client, limit: limit, logger: logger, now: time.Now}
}

func (l *redisRateLimiter) Allow(ctx context.Context, tenantID, userID uuid.UUID) error {
	key := fmt.Sprintf("settlement:rate:%s:%s:%d", tenantID, userID, l.now().Unix()/60)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("rate limit counter failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil
	}
	if incr.Val() > int64(l.limit) {
		return ErrRateLimitExceeded.WithData(map[string]interface{}{"limit_per_minute": l.limit})
	}
	return nil
}
