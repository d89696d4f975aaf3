package utils

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// RunLock guards scheduled runs against double execution. The daily
// allocator must not run twice against the same pool of ready topics
// before generation advances their status, otherwise topics get
// double-booked. Acquire is SetNX on a per-run-per-date key.
type RunLock struct {
	inner *redis.Client
	ttl   time.Duration
}

const (
	// Redis only has string type, there is no boolean or int, so we use "1" to represent true
	RedisTrue = "1"
)

func GetRunLock(ttl time.Duration) (*RunLock, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")),
		Password: os.Getenv("REDIS_PASSWD"),
		DB:       0, // use default DB
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		return nil, err
	}
	return &RunLock{inner: redisClient, ttl: ttl}, nil
}

func runKey(job string, date string) string {
	return fmt.Sprintf("run__%s__%s", job, date)
}

// Acquire returns true iff this caller is the first to claim the given job
// on the given date.
func (l *RunLock) Acquire(ctx context.Context, job string, date string) (bool, error) {
	return l.inner.SetNX(ctx, runKey(job, date), RedisTrue, l.ttl).Result()
}

// Release frees the claim, used when a run fails before any side effect so
// a retry on the same date is possible.
func (l *RunLock) Release(ctx context.Context, job string, date string) error {
	return l.inner.Del(ctx, runKey(job, date)).Err()
}
