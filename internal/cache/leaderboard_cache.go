package cache

import (
	"context"

	"github.com/redis/go-redis/v9"

	"earnflow/internal/model"
)

const (
	leaderboardKey = "earnings:lb"
	appliedKey     = "earnings:applied"
)

// LeaderboardCache handles the Redis ZSET of total earnings per user
type LeaderboardCache interface {
	// AddEarning adds amount to the user's total once per earningID.
	// It reports whether the amount was applied by this call.
	AddEarning(ctx context.Context, earningID, userID string, amount float64) (bool, error)
	// RevokeEarning takes back an amount applied by AddEarning
	RevokeEarning(ctx context.Context, earningID, userID string, amount float64) (bool, error)
	GetTop(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	GetRank(ctx context.Context, userID string) (int64, error)
}

// addEarningScript increments the score only the first time an earning id is seen
var addEarningScript = redis.NewScript(`
if redis.call("SADD", KEYS[2], ARGV[1]) == 1 then
	redis.call("ZINCRBY", KEYS[1], ARGV[3], ARGV[2])
	return 1
end
return 0
`)

var revokeEarningScript = redis.NewScript(`
if redis.call("SREM", KEYS[2], ARGV[1]) == 1 then
	redis.call("ZINCRBY", KEYS[1], -tonumber(ARGV[3]), ARGV[2])
	return 1
end
return 0
`)

type leaderboardCache struct {
	client *redis.Client
}

// NewLeaderboardCache creates a new leaderboard cache
func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{
		client: client,
	}
}

func (c *leaderboardCache) AddEarning(ctx context.Context, earningID, userID string, amount float64) (bool, error) {
	n, err := addEarningScript.Run(ctx, c.client, []string{leaderboardKey, appliedKey}, earningID, userID, amount).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *leaderboardCache) RevokeEarning(ctx context.Context, earningID, userID string, amount float64) (bool, error) {
	n, err := revokeEarningScript.Run(ctx, c.client, []string{leaderboardKey, appliedKey}, earningID, userID, amount).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *leaderboardCache) GetTop(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		return []model.LeaderboardEntry{}, nil
	}
	results, err := c.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		entries[i] = model.LeaderboardEntry{
			UserID: member,
			Total:  z.Score,
			Rank:   i + 1,
		}
	}
	return entries, nil
}

func (c *leaderboardCache) GetRank(ctx context.Context, userID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, leaderboardKey, userID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}
