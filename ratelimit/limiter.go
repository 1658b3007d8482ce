// Package ratelimit enforces per-user operation ceilings backed by Redis.
// The limiter fails open: with no counter store configured, or with the
// store unreachable, operations are allowed rather than blocked. Abuse
// protection degrades before availability does.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dayli-app/dayli"
)

// Per-user ceilings within one counting window.
const (
	DefaultUploadLimit = 50
	DefaultDeleteLimit = 20
	DefaultWindow      = time.Hour
)

// Class names a rate-limited operation. The class is the counter key
// prefix, so upload and delete budgets never share a counter.
type Class string

const (
	ClassUpload Class = "upload-limit"
	ClassDelete Class = "delete-limit"
)

func (c Class) key(userID string) string {
	return fmt.Sprintf("%s:%s", c, userID)
}

// CounterStore is the slice of the Redis API the limiter uses. The real
// *redis.Client satisfies it.
type CounterStore interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
}

// Limiter counts operations per user per window.
type Limiter struct {
	store       CounterStore
	uploadLimit int64
	deleteLimit int64
	window      time.Duration
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLimits overrides the per-window ceilings.
func WithLimits(upload, del int64) Option {
	return func(l *Limiter) {
		l.uploadLimit = upload
		l.deleteLimit = del
	}
}

// WithWindow overrides the counting window.
func WithWindow(w time.Duration) Option {
	return func(l *Limiter) {
		l.window = w
	}
}

// New builds a Limiter. store may be nil; every check then allows.
func New(store CounterStore, opts ...Option) *Limiter {
	l := &Limiter{
		store:       store,
		uploadLimit: DefaultUploadLimit,
		deleteLimit: DefaultDeleteLimit,
		window:      DefaultWindow,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Connect opens the Redis counter store at url and verifies it with a ping.
// Callers treat a connect failure as "run without a limiter", not as fatal.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url cannot be empty: %w", dayli.ErrInvalidInput)
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Allow increments the user's counter for the class and reports whether the
// operation is within budget. The window starts at the first operation and
// is fixed, not sliding: the counter expires window after its creation.
//
// Any counter-store error allows the operation and logs the degradation.
func (l *Limiter) Allow(ctx context.Context, class Class, userID string) bool {
	if l.store == nil || userID == "" {
		return true
	}

	key := class.key(userID)
	count, err := l.store.Incr(ctx, key).Result()
	if err != nil {
		slog.Warn("rate limit counter unavailable, allowing operation",
			"class", class, "user_id", userID, "err", err)
		return true
	}

	if count == 1 {
		if err := l.store.Expire(ctx, key, l.window).Err(); err != nil {
			slog.Warn("rate limit expiry not set", "class", class, "user_id", userID, "err", err)
		}
	}

	return count <= l.limit(class)
}

func (l *Limiter) limit(class Class) int64 {
	switch class {
	case ClassDelete:
		return l.deleteLimit
	default:
		return l.uploadLimit
	}
}
