package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mrlokans/bookclub/internal/logger"
)

// redisFailureScript counts a failure and sets the lock key once the limit is hit.
// KEYS[1] = failure counter, KEYS[2] = lock key
// ARGV[1] = window (ms), ARGV[2] = max attempts, ARGV[3] = lockout (ms)
var redisFailureScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if count >= tonumber(ARGV[2]) then
    redis.call("SET", KEYS[2], "1", "PX", ARGV[3])
    return 1
end
return 0
`)

// RedisRateLimiter is a LoginLimiter shared between instances through Redis.
// Redis errors fail open so an outage never blocks every login.
type RedisRateLimiter struct {
	client *redis.Client
	cfg    RateLimitConfig
	prefix string
}

// NewRedisRateLimiter creates a limiter backed by the Redis server at addr.
func NewRedisRateLimiter(addr, password string, db int, cfg RateLimitConfig) *RedisRateLimiter {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisRateLimiter{client: rdb, cfg: cfg.withDefaults(), prefix: "bookclub:login"}
}

// Ping verifies the Redis connection.
func (rl *RedisRateLimiter) Ping(ctx context.Context) error {
	return rl.client.Ping(ctx).Err()
}

func (rl *RedisRateLimiter) keys(ip, username string) (failures, lock string) {
	key := limiterKey(ip, username)
	return fmt.Sprintf("%s:fail:%s", rl.prefix, key), fmt.Sprintf("%s:lock:%s", rl.prefix, key)
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, ip, username string) (bool, time.Duration) {
	_, lockKey := rl.keys(ip, username)
	ttl, err := rl.client.PTTL(ctx, lockKey).Result()
	if err != nil {
		logger.Log.WithError(err).Warn("redis login limiter unavailable")
		return true, 0
	}
	if ttl > 0 {
		return false, ttl
	}
	return true, 0
}

func (rl *RedisRateLimiter) RecordFailure(ctx context.Context, ip, username string) (bool, time.Duration) {
	failKey, lockKey := rl.keys(ip, username)
	locked, err := redisFailureScript.Run(ctx, rl.client, []string{failKey, lockKey},
		rl.cfg.WindowDuration.Milliseconds(), rl.cfg.MaxAttempts, rl.cfg.LockoutDuration.Milliseconds()).Int()
	if err != nil {
		logger.Log.WithError(err).Warn("redis login limiter unavailable")
		return false, 0
	}
	if locked == 1 {
		return true, rl.cfg.LockoutDuration
	}
	return false, 0
}

func (rl *RedisRateLimiter) RecordSuccess(ctx context.Context, ip, username string) {
	failKey, lockKey := rl.keys(ip, username)
	if err := rl.client.Del(ctx, failKey, lockKey).Err(); err != nil {
		logger.Log.WithError(err).Warn("redis login limiter unavailable")
	}
}

// Stop closes the Redis connection pool.
func (rl *RedisRateLimiter) Stop() {
	_ = rl.client.Close()
}
