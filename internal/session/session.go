package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"autofill/internal/config"
	"autofill/pkg/logger"
)

const keyPrefix = "autofill:session:"

// Registry tracks live sessions in Redis. A session entry expires after its
// TTL of inactivity; every operation on the session refreshes it.
type Registry struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRegistry connects to Redis and verifies the connection.
func NewRegistry(ctx context.Context, cfg config.RedisConfig) (*Registry, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := time.Duration(cfg.SessionTTL) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Registry{
		client: rdb,
		ttl:    ttl,
		log:    logger.New("session", ""),
	}, nil
}

// Close releases the Redis connection.
func (r *Registry) Close() error {
	return r.client.Close()
}

// Touch registers the session if it is new and refreshes its expiry either
// way.
func (r *Registry) Touch(ctx context.Context, sessionID string) error {
	key := keyPrefix + sessionID
	if err := r.client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to touch session %s: %w", sessionID, err)
	}
	return nil
}

// Exists reports whether the session is currently registered.
func (r *Registry) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session %s: %w", sessionID, err)
	}
	return n > 0, nil
}

// Reset removes the session entry. Resetting an unknown session is a no-op.
func (r *Registry) Reset(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to reset session %s: %w", sessionID, err)
	}
	r.log.WithSession(sessionID).Info("session reset")
	return nil
}
