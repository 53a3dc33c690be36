package tutoring

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ViewDeduplicator decides whether a view should bump the request's counter.
type ViewDeduplicator interface {
	FirstView(ctx context.Context, viewerKey string, requestID uuid.UUID) (bool, error)
}

// RedisViewCounter counts one view per viewer per request within a window.
// A nil client counts every view.
type RedisViewCounter struct {
	rdb    *redis.Client
	window time.Duration
}

func NewRedisViewCounter(rdb *redis.Client, window time.Duration) *RedisViewCounter {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &RedisViewCounter{rdb: rdb, window: window}
}

func (c *RedisViewCounter) FirstView(ctx context.Context, viewerKey string, requestID uuid.UUID) (bool, error) {
	if c == nil || c.rdb == nil {
		return true, nil
	}
	ok, err := c.rdb.SetNX(ctx, viewKey(viewerKey, requestID), 1, c.window).Result()
	if err != nil {
		return false, fmt.Errorf("view dedup: %w", err)
	}
	return ok, nil
}

func viewKey(viewerKey string, requestID uuid.UUID) string {
	return "request_view:" + requestID.String() + ":" + viewerKey
}
