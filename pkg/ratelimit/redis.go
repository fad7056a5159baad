package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// checkAndConsumeScript checks every window's counter against its
// threshold and increments all of them only if none would be exceeded.
// Running as a single Lua script makes the operation atomic across
// processes, not just within one. Window rollover rides on key expiry,
// which Redis applies exactly once regardless of concurrent callers.
//
// KEYS[i] is the counter key for window i. ARGV holds threshold and
// window size (seconds) pairs per window. Returns {1} on admission or
// {0, windowIndex, secondsUntilReset} on denial.
var checkAndConsumeScript = redis.NewScript(`
local n = #KEYS
for i = 1, n do
	local threshold = tonumber(ARGV[2*i-1])
	local count = tonumber(redis.call('GET', KEYS[i]) or '0')
	if count >= threshold then
		local ttl = redis.call('TTL', KEYS[i])
		if ttl < 0 then
			ttl = tonumber(ARGV[2*i])
		end
		return {0, i, ttl}
	end
end
for i = 1, n do
	local count = redis.call('INCR', KEYS[i])
	if count == 1 then
		redis.call('EXPIRE', KEYS[i], tonumber(ARGV[2*i]))
	end
end
return {1, 0, 0}
`)

// RedisLimiter is a Redis-backed Limiter whose atomicity contract holds
// across gateway instances.
//
// The default policy on Redis errors is fail-closed: this limiter
// guards a payment system, so an unreachable counter store denies the
// request rather than waving it through. FailOpen restores the
// availability-over-safety trade-off for deployments that want it.
type RedisLimiter struct {
	client   *redis.Client
	prefix   string
	FailOpen bool
}

// NewRedisLimiter creates a Redis-backed limiter. An empty prefix
// defaults to "ratelimit".
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{client: client, prefix: prefix}
}

// CheckAndConsume implements Limiter
func (l *RedisLimiter) CheckAndConsume(ctx context.Context, clientID string, specs []WindowSpec) (Decision, error) {
	if len(specs) == 0 {
		return Decision{Allowed: true}, nil
	}

	keys := make([]string, len(specs))
	args := make([]interface{}, 0, len(specs)*2)
	for i, spec := range specs {
		keys[i] = fmt.Sprintf("%s:%s:%s", l.prefix, clientID, spec.Window)
		args = append(args, spec.Threshold, int(spec.Size/time.Second))
	}

	result, err := checkAndConsumeScript.Run(ctx, l.client, keys, args...).Result()
	if err != nil {
		if l.FailOpen {
			return Decision{Allowed: true}, nil
		}
		return Decision{}, fmt.Errorf("rate limit store error: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit script result: %v", result)
	}
	if asInt64(values[0]) == 1 {
		return Decision{Allowed: true}, nil
	}

	idx := int(asInt64(values[1])) - 1
	if idx < 0 || idx >= len(specs) {
		return Decision{}, fmt.Errorf("rate limit script returned invalid window index %d", idx+1)
	}
	retry := time.Duration(asInt64(values[2])) * time.Second
	if retry <= 0 {
		retry = time.Second
	}
	return Decision{Window: specs[idx].Window, RetryAfter: retry}, nil
}

// Reset clears a client's counters; used by tests and admin tooling
func (l *RedisLimiter) Reset(ctx context.Context, clientID string, specs []WindowSpec) error {
	keys := make([]string, len(specs))
	for i, spec := range specs {
		keys[i] = fmt.Sprintf("%s:%s:%s", l.prefix, clientID, spec.Window)
	}
	return l.client.Del(ctx, keys...).Err()
}

// HealthCheck verifies counter store connectivity
func (l *RedisLimiter) HealthCheck(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func asInt64(v interface{}) int64 {
	n, _ := v.(int64)
	return n
}
