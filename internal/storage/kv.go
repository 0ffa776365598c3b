// Package storage provides the key/value backends session records and image
// payload chunks are persisted to. Every value is a string (JSON documents or
// base64 chunks) stored under a TTL that slides forward on each write.
package storage

import (
	"context"
	"time"
)

// KV is the capability the session repository and image payload store are
// built on. Implementations must treat a missing key as (value="", ok=false)
// rather than an error.
type KV interface {
	// Set writes value under key with the given TTL. A zero TTL means the
	// key does not expire.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Del removes the given keys; missing keys are not an error.
	Del(ctx context.Context, keys ...string) error
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
