package utils

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"subminder/config"
	"subminder/logger"
)

// RunLock keeps two reminder runs from overlapping. TryAcquire never blocks: ok is false when
// another run holds the lock.
type RunLock interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

// LocalRunLock guards a single process.
type LocalRunLock struct {
	mu sync.Mutex
}

func NewLocalRunLock() *LocalRunLock {
	return &LocalRunLock{}
}

func (l *LocalRunLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return l.mu.Unlock, true, nil
}

const (
	reminderLockKey = "subminder:reminder-run"
	reminderLockTTL = 30 * time.Minute
)

// only the holder's token may delete the key
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// the holder pushes the expiry out while its run is still going
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisRunLock guards every replica sharing one redis. The key expires after ttl unless the
// holder is alive to renew it, so a crashed replica never blocks the next day's run.
type RedisRunLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisRunLock(client *redis.Client) *RedisRunLock {
	return &RedisRunLock{client: client, key: reminderLockKey, ttl: reminderLockTTL}
}

func (l *RedisRunLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, errors.Wrap(err, "redis SETNX")
	}
	if !ok {
		return nil, false, nil
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		keepAlive(stop, l.ttl/3, func() (bool, error) {
			extendCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			n, err := extendScript.Run(extendCtx, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Int()
			return n == 1, err
		})
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-stopped

			// the run's context may already be cancelled
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err(); err != nil && err != redis.Nil {
				logger.L.Warnw("could not release reminder run lock", "error", err)
			}
		})
	}
	return release, true, nil
}

// keepAlive calls extend every interval until stop is closed. It gives up early once extend
// reports the lock is no longer held; a failed call is retried on the next tick.
func keepAlive(stop <-chan struct{}, every time.Duration, extend func() (bool, error)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			held, err := extend()
			switch {
			case err != nil:
				logger.L.Warnw("could not extend reminder run lock", "error", err)
			case !held:
				logger.L.Warnw("reminder run lock expired before the run finished")
				return
			}
		}
	}
}

// NewRunLock picks a redis-backed lock when REDIS_URL is configured.
func NewRunLock(cfg *config.Config) (RunLock, error) {
	if cfg.RedisURL == "" {
		return NewLocalRunLock(), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse REDIS_URL")
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Wrap(err, "connect to redis")
	}
	return NewRedisRunLock(client), nil
}
