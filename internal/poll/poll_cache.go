package poll

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	topPollsKey = "leaderboard:top-polls"
	topPollsTTL = 10 * time.Second
)

// LeaderboardCache fronts the top-polls query. Misses and Redis failures fall
// through to the database.
type LeaderboardCache interface {
	GetTopPolls(ctx context.Context) ([]*PollResult, bool)
	SetTopPolls(ctx context.Context, results []*PollResult)
	Invalidate(ctx context.Context)
}

type leaderboardCache struct {
	client *redis.Client
}

func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{client: client}
}

func (c *leaderboardCache) GetTopPolls(ctx context.Context) ([]*PollResult, bool) {
	data, err := c.client.Get(ctx, topPollsKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("leaderboard cache read failed", "error", err)
		return nil, false
	}

	var results []*PollResult
	if err := json.Unmarshal(data, &results); err != nil {
		slog.Warn("leaderboard cache entry corrupt", "error", err)
		return nil, false
	}
	return results, true
}

func (c *leaderboardCache) SetTopPolls(ctx context.Context, results []*PollResult) {
	data, err := json.Marshal(results)
	if err != nil {
		slog.Warn("leaderboard cache marshal failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, topPollsKey, data, topPollsTTL).Err(); err != nil {
		slog.Warn("leaderboard cache write failed", "error", err)
	}
}

func (c *leaderboardCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, topPollsKey).Err(); err != nil {
		slog.Warn("leaderboard cache invalidation failed", "error", err)
	}
}
