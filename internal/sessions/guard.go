package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/docflow/docflow/portal/pkg/metrics"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrBusy is returned when another trigger holds the key.
var ErrBusy = errors.New("busy: another operation is in progress")

// Guard admits one operation per key at a time. A second Acquire while the
// key is held fails with ErrBusy rather than waiting.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: map[string]struct{}{}}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		metrics.BusyRejected.Inc()
		return nil, ErrBusy
	}
	g.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the lock only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisGuard shares the busy state across portal replicas. The lease bounds
// how long a crashed holder can block a key.
type RedisGuard struct {
	client *redis.Client
	prefix string
	lease  time.Duration
}

func NewRedisGuard(client *redis.Client, prefix string, lease time.Duration) *RedisGuard {
	if prefix == "" {
		prefix = "busy:"
	}
	if lease <= 0 {
		lease = 30 * time.Second
	}
	return &RedisGuard{client: client, prefix: prefix, lease: lease}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	owner := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.prefix+key, owner, g.lease).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.BusyRejected.Inc()
		return nil, ErrBusy
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller may be cancelled by now; release regardless
			_ = releaseScript.Run(context.WithoutCancel(ctx), g.client, []string{g.prefix + key}, owner).Err()
		})
	}, nil
}
