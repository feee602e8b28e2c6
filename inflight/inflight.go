// Package inflight rejects a request while an identical one is still being processed.
// Keys combine the action, the caller and the target resource.
package inflight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrBusy is returned when the key is already held by another request.
var ErrBusy = errors.New("another request for this resource is already in progress")

// Guard hands out exclusive, expiring claims on keys.
type Guard interface {
	// TryAcquire claims key. It returns false without blocking when the key is held.
	TryAcquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Key joins parts into a guard key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// MemoryGuard is a Guard for a single process.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]time.Time // key -> expiry
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryGuard creates a MemoryGuard whose claims lapse after ttl,
// so a crashed handler cannot hold a key forever.
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{held: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (g *MemoryGuard) TryAcquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if expiry, ok := g.held[key]; ok && now.Before(expiry) {
		return false, nil
	}
	g.held[key] = now.Add(g.ttl)
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.held, key)
	g.mu.Unlock()
	return nil
}

// RedisGuard is a Guard shared by every instance connected to the same Redis.
type RedisGuard struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisGuard creates a RedisGuard storing its keys under prefix.
func NewRedisGuard(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, prefix: prefix, ttl: ttl}
}

func (g *RedisGuard) TryAcquire(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, g.prefix+key, 1, g.ttl).Result()
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, g.prefix+key).Err()
}

// Do runs fn while holding key. It returns ErrBusy without calling fn when key is held.
// The key is released after fn returns, even if ctx has been canceled meanwhile.
func Do(ctx context.Context, g Guard, key string, fn func() error) error {
	ok, err := g.TryAcquire(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire in-flight key %s: %w", key, err)
	}
	if !ok {
		return ErrBusy
	}
	defer func() {
		if err := g.Release(context.WithoutCancel(ctx), key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to release in-flight key")
		}
	}()
	return fn()
}
