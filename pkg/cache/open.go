package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// RedisPrefix namespaces memtower keys inside a shared Redis database.
const RedisPrefix = "memtower:"

// Open returns the cache described by rawURL:
//
//	""  or "none"                 NullCache
//	"file:///path" or "/path"     FileCache
//	"redis://..." "rediss://..."  RedisCache
//	"mongodb://..."               MongoCache (also mongodb+srv)
func Open(ctx context.Context, rawURL string) (Cache, error) {
	scheme, rest, found := strings.Cut(rawURL, "://")
	switch {
	case rawURL == "" || rawURL == "none":
		return NewNullCache(), nil
	case !found:
		return NewFileCache(filepath.Clean(rawURL))
	}

	switch scheme {
	case "file":
		return NewFileCache(filepath.Clean(rest))
	case "redis", "rediss":
		return NewRedisCache(ctx, rawURL, RedisPrefix)
	case "mongodb", "mongodb+srv":
		return NewMongoCache(ctx, rawURL)
	}
	return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, scheme)
}
