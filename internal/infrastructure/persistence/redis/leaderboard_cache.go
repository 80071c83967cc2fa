package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/coach-hub/science-coach-hub/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// One sorted set per subject keyed by coin total, paired with a hash of
// display names. A board exists only after an explicit rebuild; readers
// treat a missing set as a miss and fall back to ledger aggregation.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache is the Redis implementation of leaderboard.Cache.
type LeaderboardCache struct {
	cache *Cache
}

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

var _ leaderboard.Cache = (*LeaderboardCache)(nil)

// Top returns up to limit cached rows for a subject, best first.
func (c *LeaderboardCache) Top(ctx context.Context, subject string, limit int) ([]leaderboard.Entry, bool, error) {
	limit = leaderboard.ClampLimit(limit)
	key := coinsKey(subject)

	exists, err := c.cache.Client().Exists(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("leaderboard cache: exists: %w", err)
	}
	if exists == 0 {
		return nil, false, nil
	}

	members, err := c.cache.Client().ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("leaderboard cache: range: %w", err)
	}

	names, err := c.cache.Client().HGetAll(ctx, namesKey(subject)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("leaderboard cache: names: %w", err)
	}

	entries := make([]leaderboard.Entry, 0, len(members))
	for _, m := range members {
		studentID, _ := m.Member.(string)
		if studentID == placeholderMember {
			continue
		}
		name := names[studentID]
		if name == "" {
			name = studentID
		}
		entries = append(entries, leaderboard.Entry{
			Rank:        len(entries) + 1,
			StudentID:   studentID,
			DisplayName: name,
			Coins:       int(m.Score),
		})
	}
	return entries, true, nil
}

// Rebuild replaces the cached board for a subject.
func (c *LeaderboardCache) Rebuild(ctx context.Context, subject string, entries []leaderboard.Entry) error {
	key := coinsKey(subject)
	nKey := namesKey(subject)

	pipe := c.cache.Client().TxPipeline()
	pipe.Del(ctx, key, nKey)

	if len(entries) > 0 {
		members := make([]redis.Z, 0, len(entries))
		names := make(map[string]interface{}, len(entries))
		for _, e := range entries {
			members = append(members, redis.Z{Score: float64(e.Coins), Member: e.StudentID})
			names[e.StudentID] = e.DisplayName
		}
		pipe.ZAdd(ctx, key, members...)
		pipe.HSet(ctx, nKey, names)
	} else {
		// An empty board still counts as warm; a placeholder keeps the set
		// present so readers don't rescan the ledgers every request.
		pipe.ZAdd(ctx, key, redis.Z{Score: 0, Member: placeholderMember})
	}

	pipe.Expire(ctx, key, TTLLeaderboardCache)
	pipe.Expire(ctx, nKey, TTLLeaderboardCache)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard cache: rebuild: %w", err)
	}
	return nil
}

// Invalidate drops every cached board.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	return c.cache.DeleteByPattern(ctx, PrefixLeaderboard+"*")
}

// placeholderMember marks a warm but empty board. Scored at zero, so it can
// never rank: Build excludes non-positive totals before caching.
const placeholderMember = "\x00empty"

func coinsKey(subject string) string {
	if subject == "" {
		return PrefixLeaderboard + "coins:all"
	}
	return PrefixLeaderboard + "coins:" + subject
}

func namesKey(subject string) string {
	if subject == "" {
		return PrefixLeaderboard + "names:all"
	}
	return PrefixLeaderboard + "names:" + subject
}
