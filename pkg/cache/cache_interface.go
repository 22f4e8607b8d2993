package cache

import (
	"context"
	"time"
)

// Cache is the contract for the read-through cache in front of the catalog
// store. Implementations must treat a miss as (false, nil), leaving dest
// untouched, so callers can fall through to the database.
type Cache interface {
	// Get loads the value at key into dest. The bool reports a hit.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// DeletePattern removes every key matching a glob pattern.
	DeletePattern(ctx context.Context, pattern string) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}
