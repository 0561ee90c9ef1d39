package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills one token per interval and consumes one if
// available. It returns {allowed, remaining, retry_after_ms, reset_ms}.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local interval_ms = tonumber(ARGV[3])
	local ttl_seconds = tonumber(ARGV[4])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + intervals)
		last_refill = last_refill + (intervals * interval_ms)
	end
	if tokens >= capacity then
		last_refill = now_ms
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	local reset_ms = 0
	if tokens < capacity then
		reset_ms = (capacity - tokens) * interval_ms - (now_ms - last_refill)
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms, reset_ms }
`)

// RedisLimiter is a token-bucket Limiter shared by every process talking to
// the same redis.
type RedisLimiter struct {
	client   redis.Scripter
	rate     int
	interval time.Duration
	ttl      time.Duration
	prefix   string
	now      func() time.Time
}

// NewRedis creates a RedisLimiter that allows rate requests per window.
// Keys are stored under prefix.
func NewRedis(client redis.Scripter, rate int, window time.Duration, prefix string) *RedisLimiter {
	if rate < 1 {
		rate = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if prefix == "" {
		prefix = "isquat:rl"
	}
	interval := window / time.Duration(rate)
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	return &RedisLimiter{
		client:   client,
		rate:     rate,
		interval: interval,
		ttl:      window * 2,
		prefix:   prefix,
		now:      time.Now,
	}
}

// Allow runs the bucket script for key.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	ttl := int64(l.ttl / time.Second)
	if ttl < 1 {
		ttl = 1
	}
	res, err := tokenBucketScript.Run(ctx, l.client, []string{l.prefix + ":" + key},
		now.UnixMilli(), l.rate, l.interval.Milliseconds(), ttl,
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("running rate limit script: %w", err)
	}

	vals, ok := res.([]any)
	if !ok || len(vals) != 4 {
		return Decision{}, fmt.Errorf("unexpected rate limit script result %#v", res)
	}
	return Decision{
		Allowed:    asInt64(vals[0]) == 1,
		Limit:      l.rate,
		Remaining:  int(asInt64(vals[1])),
		RetryAfter: time.Duration(asInt64(vals[2])) * time.Millisecond,
		ResetAt:    now.Add(time.Duration(asInt64(vals[3])) * time.Millisecond),
	}, nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
