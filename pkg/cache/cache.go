// Package cache provides a Redis-backed read cache for workflow content,
// keeping hot webhook paths off the primary store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zynthex/zynthex/pkg/models"
)

// ErrMiss is returned when the workflow is not cached.
var ErrMiss = errors.New("cache miss")

const defaultTTL = 5 * time.Minute

type WorkflowCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewWorkflowCache(redisURL string) (*WorkflowCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return &WorkflowCache{
		client: redis.NewClient(opts),
		ttl:    defaultTTL,
	}, nil
}

func key(workflowID string) string {
	return "zynthex:workflow:" + workflowID
}

func (c *WorkflowCache) Get(ctx context.Context, workflowID string) (*models.Workflow, error) {
	payload, err := c.client.Get(ctx, key(workflowID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read workflow cache: %w", err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(payload, &workflow); err != nil {
		return nil, fmt.Errorf("failed to decode cached workflow: %w", err)
	}

	return &workflow, nil
}

func (c *WorkflowCache) Set(ctx context.Context, workflow *models.Workflow) error {
	payload, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to encode workflow for cache: %w", err)
	}

	return c.client.Set(ctx, key(workflow.ID), payload, c.ttl).Err()
}

// InvalidateWorkflow drops the cached entry after execution writes mutate
// the stored content.
func (c *WorkflowCache) InvalidateWorkflow(ctx context.Context, workflowID string) error {
	return c.client.Del(ctx, key(workflowID)).Err()
}

func (c *WorkflowCache) Close() error {
	return c.client.Close()
}
