package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lessonplayer/internal/model"

	"github.com/redis/go-redis/v9"
)

// InteractionCache keeps each live slide's interaction map in a Redis hash
// keyed by interaction id, so a later HSET overwrites an earlier answer.
type InteractionCache interface {
	Put(ctx context.Context, sessionID string, resp model.InteractionResponse) error
	All(ctx context.Context, sessionID string) (map[string]model.InteractionResponse, error)
	Drop(ctx context.Context, sessionID string) error
}

type interactionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewInteractionCache creates a new interaction cache
func NewInteractionCache(client *redis.Client, ttl time.Duration) InteractionCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &interactionCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *interactionCache) key(sessionID string) string {
	return fmt.Sprintf("slide:%s:interactions", sessionID)
}

func (c *interactionCache) Put(ctx context.Context, sessionID string, resp model.InteractionResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	key := c.key(sessionID)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, resp.InteractionID, data)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	return err
}

func (c *interactionCache) All(ctx context.Context, sessionID string) (map[string]model.InteractionResponse, error) {
	fields, err := c.client.HGetAll(ctx, c.key(sessionID)).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]model.InteractionResponse, len(fields))
	for id, raw := range fields {
		var resp model.InteractionResponse
		if err := json.Unmarshal([]byte(raw), &resp); err != nil {
			return nil, fmt.Errorf("decode interaction %s: %w", id, err)
		}
		out[id] = resp
	}
	return out, nil
}

func (c *interactionCache) Drop(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, c.key(sessionID)).Err()
}
