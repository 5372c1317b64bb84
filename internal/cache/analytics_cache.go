package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"lessonplayer/internal/model"

	"github.com/redis/go-redis/v9"
)

// AnalyticsCache aggregates persisted responses per concept and dwell time per submodule
type AnalyticsCache interface {
	IncrementConcept(ctx context.Context, conceptID, conceptName string, correct *bool) error
	GetConceptStats(ctx context.Context, conceptID string) (*model.ConceptStats, error)
	AddDwell(ctx context.Context, moduleID, submoduleID string, ms int64) error
	GetDwell(ctx context.Context, moduleID, submoduleID string) (int64, error)
}

type analyticsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnalyticsCache creates a new analytics cache
func NewAnalyticsCache(client *redis.Client) AnalyticsCache {
	return &analyticsCache{
		client: client,
		ttl:    30 * 24 * time.Hour,
	}
}

// Key helpers
func (c *analyticsCache) conceptKey(conceptID string) string {
	return fmt.Sprintf("concept:%s:stats", conceptID)
}

func (c *analyticsCache) dwellKey(moduleID, submoduleID string) string {
	return fmt.Sprintf("module:%s:sub:%s:dwell", moduleID, submoduleID)
}

func (c *analyticsCache) IncrementConcept(ctx context.Context, conceptID, conceptName string, correct *bool) error {
	key := c.conceptKey(conceptID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, "responses", 1)
		if correct != nil {
			if *correct {
				pipe.HIncrBy(ctx, key, "correct", 1)
			} else {
				pipe.HIncrBy(ctx, key, "incorrect", 1)
			}
		}
		if conceptName != "" {
			pipe.HSet(ctx, key, "name", conceptName)
		}
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	return err
}

func (c *analyticsCache) GetConceptStats(ctx context.Context, conceptID string) (*model.ConceptStats, error) {
	fields, err := c.client.HGetAll(ctx, c.conceptKey(conceptID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	stats := &model.ConceptStats{ConceptID: conceptID, ConceptName: fields["name"]}
	stats.Responses, _ = strconv.ParseInt(fields["responses"], 10, 64)
	stats.Correct, _ = strconv.ParseInt(fields["correct"], 10, 64)
	stats.Incorrect, _ = strconv.ParseInt(fields["incorrect"], 10, 64)
	return stats, nil
}

func (c *analyticsCache) AddDwell(ctx context.Context, moduleID, submoduleID string, ms int64) error {
	key := c.dwellKey(moduleID, submoduleID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.IncrBy(ctx, key, ms)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	return err
}

func (c *analyticsCache) GetDwell(ctx context.Context, moduleID, submoduleID string) (int64, error) {
	n, err := c.client.Get(ctx, c.dwellKey(moduleID, submoduleID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
