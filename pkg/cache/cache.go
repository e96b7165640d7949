// Package cache stores rendered artifacts between runs.
//
// A [Cache] is a plain byte store with per-entry expiry. Four backends are
// provided:
//
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: a Redis server, for the HTTP server
//   - [MongoCache]: a MongoDB collection with a TTL index
//   - [NullCache]: never stores anything
//
// [Open] selects a backend from a URL. Keys come from a [Keyer], which hashes
// the trace content together with every option that changes the output, so
// a hit is always safe to serve.
//
//	c, err := cache.Open(ctx, "redis://localhost:6379/0")
//	key := cache.NewDefaultKeyer().ArtifactKey(cache.Hash(traceData), opts)
//	data, hit, err := c.Get(ctx, key)
package cache

import (
	"context"
	"time"
)

// Default entry lifetimes.
const (
	// TTLArtifact is the lifetime of a rendered artifact.
	TTLArtifact = 7 * 24 * time.Hour

	// TTLStats is the lifetime of a statistics summary.
	TTLStats = 24 * time.Hour
)

// Cache is a byte store keyed by string. A ttl of zero means the entry does
// not expire. Implementations are safe for concurrent use.
type Cache interface {
	// Get returns the stored value and whether it was found. A missing or
	// expired entry is a miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
