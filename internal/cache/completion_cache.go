package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// CompletionCache tracks which opportunities a user has already completed
type CompletionCache interface {
	MarkCompleted(ctx context.Context, userID, opportunityID string) error
	IsCompleted(ctx context.Context, userID, opportunityID string) (bool, error)
	Count(ctx context.Context, userID string) (int64, error)
	List(ctx context.Context, userID string) ([]string, error)
}

type completionCache struct {
	client *redis.Client
}

// NewCompletionCache creates a new completion cache
func NewCompletionCache(client *redis.Client) CompletionCache {
	return &completionCache{
		client: client,
	}
}

func (c *completionCache) key(userID string) string {
	return fmt.Sprintf("user:%s:completed", userID)
}

func (c *completionCache) MarkCompleted(ctx context.Context, userID, opportunityID string) error {
	return c.client.SAdd(ctx, c.key(userID), opportunityID).Err()
}

func (c *completionCache) IsCompleted(ctx context.Context, userID, opportunityID string) (bool, error) {
	return c.client.SIsMember(ctx, c.key(userID), opportunityID).Result()
}

func (c *completionCache) Count(ctx context.Context, userID string) (int64, error) {
	return c.client.SCard(ctx, c.key(userID)).Result()
}

func (c *completionCache) List(ctx context.Context, userID string) ([]string, error) {
	ids, err := c.client.SMembers(ctx, c.key(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return ids, err
}
