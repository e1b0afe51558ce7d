package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and consumes atomically so that every process
// sharing the key observes one bucket.
//
// KEYS[1] bucket hash
// ARGV: now_ms, tokens, capacity, refill_rate, interval_ms
// Returns {remaining, last_refill_ms}
var tokenBucketScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local want = tonumber(ARGV[2])
local capacity = tonumber(ARGV[3])
local rate = tonumber(ARGV[4])
local interval = tonumber(ARGV[5])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'last')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil then
  tokens = capacity
  last = now
end

local intervals = math.floor((now - last) / interval)
if intervals > 0 then
  local cap = math.floor(capacity / rate) + 1
  if intervals > cap then
    tokens = math.min(tokens + cap * rate, capacity)
  else
    tokens = math.min(tokens + intervals * rate, capacity)
  end
  last = last + intervals * interval
end

local remaining
if tokens < want then
  remaining = tokens - want
else
  tokens = tokens - want
  remaining = tokens
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'last', last)
redis.call('PEXPIRE', KEYS[1], math.max(interval * (math.floor(capacity / rate) + 1), 1000))
return {remaining, last}
`)

// slidingWindowScript keeps one sorted set member per admission scored by
// its time, so every process sharing the key sees one rolling window.
//
// KEYS[1] admissions sorted set
// ARGV: now_ms, n, limit, window_ms, member_prefix
// Returns {remaining, retry_at_ms}
var slidingWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local n = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local window = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])
local remaining = limit - count - n

if remaining < 0 then
  local idx = count + n - limit - 1
  local oldest = redis.call('ZRANGE', KEYS[1], idx, idx, 'WITHSCORES')
  return {remaining, tonumber(oldest[2]) + window}
end

for i = 1, n do
  redis.call('ZADD', KEYS[1], now, ARGV[5] .. ':' .. i)
end
redis.call('PEXPIRE', KEYS[1], window)
return {remaining, now}
`)

// RedisStore implements Store so that rate limits toward an
// external API hold across every worker process.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed store. Keys are namespaced with prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// ConsumeTokens implements Store.
func (rs *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	now := time.Now().UnixMilli()
	interval := config.RefillInterval.Milliseconds()
	if interval <= 0 {
		interval = 1
	}

	res, err := tokenBucketScript.Run(ctx, rs.client, []string{rs.prefix + key},
		now, tokens, config.Capacity, config.RefillRate, interval,
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("%w: unexpected script reply %v", ErrStoreUnavailable, res)
	}

	resetAt := time.UnixMilli(res[1]).Add(config.RefillInterval)
	return int(res[0]), resetAt, nil
}

// Admit implements WindowStore.
func (rs *RedisStore) Admit(ctx context.Context, key string, n, limit int, window time.Duration) (int, time.Time, error) {
	windowMs := max(window.Milliseconds(), 1)
	res, err := slidingWindowScript.Run(ctx, rs.client, []string{rs.prefix + "window:" + key},
		time.Now().UnixMilli(), n, limit, windowMs, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("%w: unexpected script reply %v", ErrStoreUnavailable, res)
	}
	return int(res[0]), time.UnixMilli(res[1]), nil
}

// Reset implements Store and WindowStore.
func (rs *RedisStore) Reset(ctx context.Context, key string) error {
	for _, k := range []string{rs.prefix + key, rs.prefix + "window:" + key} {
		if err := rs.client.Del(ctx, k).Err(); err != nil {
			return errors.Join(ErrStoreUnavailable, err)
		}
	}
	return nil
}
