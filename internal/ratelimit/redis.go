package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	keyRequests = "adjudicator:reasoning:requests"
	keyTokens   = "adjudicator:reasoning:tokens"
)

// RedisLimiter enforces the reasoning budget across processes with a
// sliding window over two sorted sets: one entry per request, one entry
// per token booking. Entries are scored by unix-nano timestamp and pruned
// on every check.
type RedisLimiter struct {
	rdb    *redis.Client
	limits Limits
}

func NewRedisLimiter(rdb *redis.Client, limits Limits) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limits: limits}
}

func (r *RedisLimiter) CheckAndWait(ctx context.Context, estimatedTokens int, requestID string) error {
	for {
		ok, err := r.tryAdmit(ctx, estimatedTokens, requestID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		log.Debug().Str("request_id", requestID).Msg("reasoning rate limit reached, waiting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

func (r *RedisLimiter) RecordUsage(ctx context.Context, actualTokens int) {
	now := time.Now()
	member := fmt.Sprintf("%d:%d", now.UnixNano(), actualTokens)
	if err := r.rdb.ZAdd(ctx, keyTokens, redis.Z{Score: float64(now.UnixNano()), Member: member}).Err(); err != nil {
		log.Warn().Err(err).Msg("failed to record reasoning token usage")
	}
}

func (r *RedisLimiter) tryAdmit(ctx context.Context, estimatedTokens int, requestID string) (bool, error) {
	now := time.Now()
	minuteAgo := now.Add(-time.Minute).UnixNano()
	dayAgo := now.Add(-24 * time.Hour).UnixNano()

	pipe := r.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, keyRequests, "0", strconv.FormatInt(dayAgo, 10))
	pipe.ZRemRangeByScore(ctx, keyTokens, "0", strconv.FormatInt(minuteAgo, 10))
	dayCount := pipe.ZCard(ctx, keyRequests)
	minuteCount := pipe.ZCount(ctx, keyRequests, strconv.FormatInt(minuteAgo, 10), "+inf")
	tokenMembers := pipe.ZRangeByScore(ctx, keyTokens, &redis.ZRangeBy{
		Min: strconv.FormatInt(minuteAgo, 10),
		Max: "+inf",
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}

	if r.limits.RequestsPerDay > 0 && dayCount.Val() >= int64(r.limits.RequestsPerDay) {
		return false, ErrDailyCapExceeded
	}
	if r.limits.RequestsPerMinute > 0 && minuteCount.Val() >= int64(r.limits.RequestsPerMinute) {
		return false, nil
	}

	minuteTokens := sumTokenMembers(tokenMembers.Val())
	if r.limits.TokensPerMinute > 0 && minuteTokens+estimatedTokens > r.limits.TokensPerMinute {
		return false, nil
	}

	member := fmt.Sprintf("%d:%s", now.UnixNano(), requestID)
	if err := r.rdb.ZAdd(ctx, keyRequests, redis.Z{Score: float64(now.UnixNano()), Member: member}).Err(); err != nil {
		return false, fmt.Errorf("rate limit reserve: %w", err)
	}

	// Reserve the estimate so concurrent checks see it; RecordUsage books
	// the real spend afterwards.
	estMember := fmt.Sprintf("%d:est:%s:%d", now.UnixNano(), requestID, estimatedTokens)
	if err := r.rdb.ZAdd(ctx, keyTokens, redis.Z{Score: float64(now.UnixNano()), Member: estMember}).Err(); err != nil {
		log.Warn().Err(err).Msg("failed to reserve reasoning token estimate")
	}

	return true, nil
}

// sumTokenMembers parses the trailing ":<tokens>" of each member. Members
// that do not parse are skipped; an undercount only loosens the window.
func sumTokenMembers(members []string) int {
	total := 0
	for _, m := range members {
		idx := strings.LastIndexByte(m, ':')
		if idx < 0 {
			continue
		}
		n, err := strconv.Atoi(m[idx+1:])
		if err != nil {
			continue
		}
		total += n
	}
	return total
}
