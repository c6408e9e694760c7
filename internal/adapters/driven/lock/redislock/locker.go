// Package redislock serialises document indexing across processes with a
// Redis SET NX PX lock.
package redislock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/logger"
)

// Ensure Locker implements the interface.
var _ driven.DocumentLocker = (*Locker)(nil)

const (
	// DefaultTTL outlives the default indexing timeout so a live run keeps
	// its lock. A crashed holder releases it when the key expires.
	DefaultTTL = 15 * time.Minute

	// DefaultRetryInterval is how often Lock polls a busy key.
	DefaultRetryInterval = 200 * time.Millisecond

	keyPrefix = "dossier:lock:document:"
)

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// Client is the subset of redis commands the locker uses.
// *redis.Client and *redis.ClusterClient satisfy it.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// Config configures the locker.
type Config struct {
	TTL           time.Duration
	RetryInterval time.Duration
}

// Locker is a driven.DocumentLocker backed by Redis.
type Locker struct {
	client Client
	ttl    time.Duration
	retry  time.Duration
}

// New creates a locker over an existing client.
func New(client Client, cfg Config) *Locker {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	return &Locker{client: client, ttl: cfg.TTL, retry: cfg.RetryInterval}
}

// Connect opens a client and checks it answers PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redislock: ping %s: %w", addr, err)
	}
	return client, nil
}

// Lock polls until the lock for id is held or ctx is done.
func (l *Locker) Lock(ctx context.Context, id string) (func(), error) {
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		unlock, ok, err := l.TryLock(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			return unlock, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// TryLock acquires the lock for id without waiting.
func (l *Locker) TryLock(ctx context.Context, id string) (func(), bool, error) {
	token, err := newToken()
	if err != nil {
		return nil, false, err
	}
	key := keyPrefix + id

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redislock: acquire %s: %w", id, err)
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func() {
		// The caller's context may already be done; release regardless.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := l.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err(); err != nil {
			logger.Warn("redislock: release %s: %v", id, err)
		}
	}
	return unlock, true, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("redislock: token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
