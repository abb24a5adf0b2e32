// Package locks keeps one export job running per surface set.
package locks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrJobInProgress is returned when the key is already held.
var ErrJobInProgress = errors.New("locks: an export job is already in progress")

// Locker grants non-blocking exclusive keys. Release must be deferred by the
// caller so it runs even on panic.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Memory is a process-local Locker over a sync.Map.
type Memory struct {
	held sync.Map
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Acquire(_ context.Context, key string) (func(), error) {
	if _, loaded := m.held.LoadOrStore(key, struct{}{}); loaded {
		return nil, ErrJobInProgress
	}
	var once sync.Once
	return func() { once.Do(func() { m.held.Delete(key) }) }, nil
}

// Redis is a Locker shared between API and worker processes. Keys expire
// after ttl so a crashed holder cannot wedge the template.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "idcards:lock:"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// unlockScript deletes the key only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.prefix+key, token, r.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrJobInProgress
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// The job context may already be cancelled; release on a fresh one.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = unlockScript.Run(ctx, r.client, []string{r.prefix + key}, token).Err()
		})
	}, nil
}
