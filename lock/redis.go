// lock/redis.go - Redis-backed distributed lock
package lock

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"teammatcher/apperr"
)

// releaseScript deletes the key only when it still holds our token, so a
// holder whose lease expired cannot release a lock reacquired by someone else.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker on a shared Redis instance using
// SET NX PX leases with fencing tokens.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisLocker connects to Redis and verifies the connection.
func NewRedisLocker(addr, password string, db int) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisLocker{
		client: client,
		ttl:    30 * time.Second,
		retry:  50 * time.Millisecond,
	}, nil
}

func (l *RedisLocker) TryAcquire(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return func() { l.release(key, token) }, true, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	for {
		release, ok, err := l.TryAcquire(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			return release, nil
		}
		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return nil, apperr.Unavailable("lock %q not acquired before deadline", key)
		}
	}
}

// release runs on its own context so a lock is returned even when the
// caller's context is already cancelled.
func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		log.Printf("lock: release %s failed: %v", key, err)
	}
}

// Close releases the underlying Redis connection.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
