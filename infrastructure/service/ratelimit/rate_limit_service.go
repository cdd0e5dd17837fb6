// Package ratelimit throttles login attempts per client. Counters live in
// Redis so several gateway replicas share them.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/rankboard/portalgate/application/port/inbound"
	"github.com/rankboard/portalgate/infrastructure/config"
	"github.com/rankboard/portalgate/infrastructure/service/logger"
)

const keyPrefix = "ratelimit:"

// redisRateLimiter implements inbound.RateLimitService on Redis counters.
type redisRateLimiter struct {
	client *redis.Client
	prefix string
	logger logger.Logger
}

// New returns the Redis limiter when rate limiting is enabled and a no-op
// limiter otherwise.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (inbound.RateLimitService, error) {
	if !cfg.RateLimitEnabled {
		log.Info(ctx, "Rate limiting disabled", nil)
		return NewNoopRateLimiter(), nil
	}
	if cfg.RedisURL == "" {
		return nil, config.ErrMissingRedisURL
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info(ctx, "Rate limiting service initialized", map[string]interface{}{
		"login_attempts": cfg.RateLimitLoginAttempts,
		"login_window":   cfg.RateLimitLoginWindow.String(),
		"block_duration": cfg.RateLimitBlockDuration.String(),
	})
	return NewRedisRateLimiter(client, cfg.PersistenceNamespace, log), nil
}

// NewRedisRateLimiter keeps its keys under "<namespace>.ratelimit:", outside
// the "<namespace>:" persistence space so a logout cannot reset counters.
func NewRedisRateLimiter(client *redis.Client, namespace string, log logger.Logger) inbound.RateLimitService {
	prefix := keyPrefix
	if namespace != "" {
		prefix = namespace + "." + keyPrefix
	}
	return &redisRateLimiter{client: client, prefix: prefix, logger: log}
}

func (s *redisRateLimiter) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	current, err := s.GetAttempts(ctx, key)
	if err != nil {
		return false, err
	}

	under := current < limit
	s.logger.Debug(ctx, "Rate limit check", map[string]interface{}{
		"key":         key,
		"current":     current,
		"limit":       limit,
		"under_limit": under,
	})
	return under, nil
}

// Increment counts one attempt. The window starts at the first attempt and
// is not extended by later ones.
func (s *redisRateLimiter) Increment(ctx context.Context, key string, window time.Duration) error {
	count, err := s.client.Incr(ctx, s.counterKey(key)).Result()
	if err != nil {
		s.logger.Error(ctx, "Failed to increment rate limit counter", err, nil)
		return fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, s.counterKey(key), window).Err(); err != nil {
			return fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return nil
}

func (s *redisRateLimiter) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	blockKey := s.blockKey(key)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, blockKey, map[string]interface{}{
		"reason":         reason,
		"blocked_at":     time.Now().Unix(),
		"duration":       duration.Seconds(),
		"correlation_id": logger.CorrelationID(ctx),
	})
	pipe.Expire(ctx, blockKey, duration)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error(ctx, "Failed to block key", err, nil)
		return fmt.Errorf("failed to block key: %w", err)
	}

	s.logger.Warn(ctx, "Key blocked due to rate limit exceeded", map[string]interface{}{
		"key":      key,
		"duration": duration.String(),
		"reason":   reason,
	})
	return nil
}

func (s *redisRateLimiter) IsBlocked(ctx context.Context, key string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.blockKey(key)).Result()
	if err != nil {
		s.logger.Error(ctx, "Failed to check block status", err, nil)
		return false, fmt.Errorf("failed to check block status: %w", err)
	}
	return exists > 0, nil
}

func (s *redisRateLimiter) GetAttempts(ctx context.Context, key string) (int, error) {
	count, err := s.client.Get(ctx, s.counterKey(key)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		s.logger.Error(ctx, "Failed to get attempts count", err, nil)
		return 0, fmt.Errorf("failed to get attempts: %w", err)
	}
	return count, nil
}

func (s *redisRateLimiter) counterKey(key string) string {
	return s.prefix + key
}

func (s *redisRateLimiter) blockKey(key string) string {
	return s.prefix + "blocked:" + key
}

// noopRateLimiter is used when rate limiting is disabled.
type noopRateLimiter struct{}

func NewNoopRateLimiter() inbound.RateLimitService {
	return noopRateLimiter{}
}

func (noopRateLimiter) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return true, nil
}

func (noopRateLimiter) Increment(ctx context.Context, key string, window time.Duration) error {
	return nil
}

func (noopRateLimiter) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	return nil
}

func (noopRateLimiter) IsBlocked(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func (noopRateLimiter) GetAttempts(ctx context.Context, key string) (int, error) {
	return 0, nil
}
