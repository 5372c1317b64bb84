package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CompletionCache holds the "already marked" flag per learner and submodule
type CompletionCache interface {
	MarkCompleted(ctx context.Context, studentID, submoduleID string) (bool, error)
	Clear(ctx context.Context, studentID, submoduleID string) error
}

type completionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCompletionCache creates a new completion cache
func NewCompletionCache(client *redis.Client) CompletionCache {
	return &completionCache{
		client: client,
		ttl:    90 * 24 * time.Hour,
	}
}

func (c *completionCache) key(studentID, submoduleID string) string {
	return fmt.Sprintf("student:%s:sub:%s:completed", studentID, submoduleID)
}

// MarkCompleted sets the flag and reports whether this call set it
func (c *completionCache) MarkCompleted(ctx context.Context, studentID, submoduleID string) (bool, error) {
	return c.client.SetNX(ctx, c.key(studentID, submoduleID), time.Now().UTC().Format(time.RFC3339), c.ttl).Result()
}

func (c *completionCache) Clear(ctx context.Context, studentID, submoduleID string) error {
	return c.client.Del(ctx, c.key(studentID, submoduleID)).Err()
}
