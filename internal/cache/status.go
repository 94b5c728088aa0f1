package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusKeyPrefix is the Redis key prefix for sync bookkeeping.
const StatusKeyPrefix = "wttt:sync:last_run:"

// StatusCache records when each sync job last completed against live data.
// Backed by Redis so the status survives worker restarts.
type StatusCache struct {
	redis *redis.Client
}

// NewStatusCache creates a status cache on top of a connected Redis client.
func NewStatusCache(redisClient *redis.Client) *StatusCache {
	return &StatusCache{redis: redisClient}
}

// SetLastRun records the completion time of a sync job.
func (c *StatusCache) SetLastRun(ctx context.Context, jobID string, t time.Time) error {
	key := StatusKeyPrefix + jobID
	if err := c.redis.Set(ctx, key, t.UTC().Format(time.RFC3339), 0).Err(); err != nil {
		return fmt.Errorf("failed to record last run for %s: %w", jobID, err)
	}
	return nil
}

// LastRun returns the recorded completion time for a sync job.
// The second return value is false when the job has never completed.
func (c *StatusCache) LastRun(ctx context.Context, jobID string) (time.Time, bool, error) {
	key := StatusKeyPrefix + jobID
	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get last run for %s: %w", jobID, err)
	}

	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		log.Printf("[StatusCache] Discarding unparseable last-run value for %s: %q", jobID, val)
		return time.Time{}, false, nil
	}
	return t, true, nil
}
