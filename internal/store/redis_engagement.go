package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisEngagementStore keeps tallies in Redis so a restarted or scaled-out
// poll service serves the same counts. Distributions live in hashes keyed
// by option index, scalar counters in plain keys.
type RedisEngagementStore struct {
	client *redis.Client
}

func NewRedisEngagementStore(ctx context.Context, addr string) (*RedisEngagementStore, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis URL: %v", err)
	}

	c := redis.NewClient(opts)

	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error connecting to redis: %v", err)
	}

	return &RedisEngagementStore{client: c}, nil
}

func (rs *RedisEngagementStore) AddVote(ctx context.Context, pollID string, optionIndex int) (int, map[int]int, error) {
	vkey := fmt.Sprintf("poll:%s:votes", pollID)
	dkey := fmt.Sprintf("poll:%s:distribution", pollID)

	pipe := rs.client.Pipeline()
	totalR := pipe.Incr(ctx, vkey)
	pipe.HIncrBy(ctx, dkey, strconv.Itoa(optionIndex), 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, nil, fmt.Errorf("error executing redis pipeline: %v", err)
	}

	dist, err := rs.readCounts(ctx, dkey)
	if err != nil {
		return 0, nil, err
	}
	return int(totalR.Val()), dist, nil
}

func (rs *RedisEngagementStore) AddLike(ctx context.Context, pollID string) (int, error) {
	n, err := rs.client.Incr(ctx, fmt.Sprintf("poll:%s:likes", pollID)).Result()
	if err != nil {
		return 0, fmt.Errorf("error incrementing likes: %v", err)
	}
	return int(n), nil
}

func (rs *RedisEngagementStore) AddDislike(ctx context.Context, pollID string) (int, error) {
	n, err := rs.client.Incr(ctx, fmt.Sprintf("poll:%s:dislikes", pollID)).Result()
	if err != nil {
		return 0, fmt.Errorf("error incrementing dislikes: %v", err)
	}
	return int(n), nil
}

func (rs *RedisEngagementStore) AddOptionLike(ctx context.Context, pollID string, optionIndex int) (map[int]int, error) {
	key := fmt.Sprintf("poll:%s:option_likes", pollID)
	if err := rs.client.HIncrBy(ctx, key, strconv.Itoa(optionIndex), 1).Err(); err != nil {
		return nil, fmt.Errorf("error incrementing option likes: %v", err)
	}
	return rs.readCounts(ctx, key)
}

func (rs *RedisEngagementStore) Stats(ctx context.Context, pollID string) (Stats, error) {
	pipe := rs.client.Pipeline()
	votesR := pipe.Get(ctx, fmt.Sprintf("poll:%s:votes", pollID))
	likesR := pipe.Get(ctx, fmt.Sprintf("poll:%s:likes", pollID))
	dislikesR := pipe.Get(ctx, fmt.Sprintf("poll:%s:dislikes", pollID))
	distR := pipe.HGetAll(ctx, fmt.Sprintf("poll:%s:distribution", pollID))
	optR := pipe.HGetAll(ctx, fmt.Sprintf("poll:%s:option_likes", pollID))

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return Stats{}, fmt.Errorf("error reading stats from redis: %v", err)
	}

	dist, err := parseCounts(distR.Val())
	if err != nil {
		return Stats{}, err
	}
	optLikes, err := parseCounts(optR.Val())
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		VoteCount:        intOrZero(votesR),
		LikeCount:        intOrZero(likesR),
		DislikeCount:     intOrZero(dislikesR),
		VoteDistribution: dist,
		OptionLikeCounts: optLikes,
	}, nil
}

func (rs *RedisEngagementStore) Drop(ctx context.Context, pollID string) error {
	keys := []string{
		fmt.Sprintf("poll:%s:votes", pollID),
		fmt.Sprintf("poll:%s:likes", pollID),
		fmt.Sprintf("poll:%s:dislikes", pollID),
		fmt.Sprintf("poll:%s:distribution", pollID),
		fmt.Sprintf("poll:%s:option_likes", pollID),
	}
	if err := rs.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error deleting poll keys: %v", err)
	}
	return nil
}

func (rs *RedisEngagementStore) Close() error {
	if err := rs.client.Close(); err != nil {
		return fmt.Errorf("error closing redis client: %v", err)
	}
	return nil
}

func (rs *RedisEngagementStore) readCounts(ctx context.Context, key string) (map[int]int, error) {
	raw, err := rs.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("error reading counts from redis: %v", err)
	}
	return parseCounts(raw)
}

func parseCounts(raw map[string]string) (map[int]int, error) {
	counts := make(map[int]int, len(raw))
	for idxStr, countStr := range raw {
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			return nil, fmt.Errorf("error converting option index to int: %v", err)
		}
		count, err := strconv.Atoi(countStr)
		if err != nil {
			return nil, fmt.Errorf("error converting count to int: %v", err)
		}
		counts[idx] = count
	}
	return counts, nil
}

func intOrZero(cmd *redis.StringCmd) int {
	n, err := cmd.Int()
	if err != nil {
		return 0
	}
	return n
}
