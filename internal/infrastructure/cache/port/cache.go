package port

import (
	"context"
	"time"
)

// Cache is the key-value contract used for translation results and language
// preferences. Implementations must be safe for concurrent use and honor ctx.
//
// Values are strings so the port stays free of serialization concerns.
type Cache interface {
	// Get returns ("", ErrMiss) when key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key. Zero or negative TTL means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// ErrMiss signals a cache miss, distinct from transport errors.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "cache: miss" }
