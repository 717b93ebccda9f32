package rdx

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy is returned when a lock could not be taken within the wait.
var ErrLockBusy = errors.New("lock busy")

type Locker interface {
	// Acquire tries once to take key for ttl. The returned token proves
	// ownership to Release.
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Release frees key only if it is still held under token.
	Release(ctx context.Context, key, token string) error
}

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	rdx *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{rdx: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.rdx.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, l.rdx, []string{key}, token).Err()
}

type localHold struct {
	token string
	exp   time.Time
}

// LocalLocker is a process-local Locker with the same expiry semantics.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localHold
	clock func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localHold), clock: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if h, ok := l.held[key]; ok && now.Before(h.exp) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = localHold{token: token, exp: now.Add(ttl)}
	return token, true, nil
}

func (l *LocalLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	if h, ok := l.held[key]; ok && h.token == token {
		delete(l.held, key)
	}
	l.mu.Unlock()
	return nil
}

const lockRetryEvery = 25 * time.Millisecond

// WithLock runs fn while holding key. It retries for up to wait and returns
// ErrLockBusy if the lock stays taken.
func WithLock(ctx context.Context, l Locker, key string, ttl, wait time.Duration, fn func() error) error {
	deadline := time.Now().Add(wait)
	var token string
	for {
		t, ok, err := l.Acquire(ctx, key, ttl)
		if err != nil {
			return err
		}
		if ok {
			token = t
			break
		}
		if time.Now().After(deadline) {
			return ErrLockBusy
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryEvery):
		}
	}
	// release on a fresh context so a cancelled request doesn't strand the key
	defer l.Release(context.WithoutCancel(ctx), key, token)
	return fn()
}
