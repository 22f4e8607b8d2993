package cache

import (
	"context"
	"time"
)

// Noop is a Cache that stores nothing. Used when Redis is unavailable and by
// the maintenance commands, where caching point reads buys nothing.
type Noop struct{}

func NewNoop() Cache { return Noop{} }

func (Noop) Get(ctx context.Context, key string, dest interface{}) (bool, error) { return false, nil }

func (Noop) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (Noop) Delete(ctx context.Context, keys ...string) error { return nil }

func (Noop) DeletePattern(ctx context.Context, pattern string) error { return nil }

func (Noop) Ping(ctx context.Context) error { return nil }
