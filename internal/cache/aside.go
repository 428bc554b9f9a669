package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ViewKeyPrefix namespaces cached renders of a view path.
const ViewKeyPrefix = "view:"

// ViewKey is the cache key of a view path such as "/" or "/<username>".
func ViewKey(path string) string {
	return ViewKeyPrefix + path
}

// Aside reads key into dest, or runs fetch and stores dest under key for ttl.
// Without a client it just runs fetch.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	rdb := GetClient()
	if rdb == nil {
		return fetch()
	}

	raw, err := rdb.Get(ctx, key).Bytes()
	if err == nil {
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			return nil
		}
		log.Printf("cache: dropping undecodable entry %s", key)
	} else if !errors.Is(err, redis.Nil) {
		log.Printf("cache: read %s failed: %v", key, err)
	}

	if err := fetch(); err != nil {
		return err
	}

	payload, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
		log.Printf("cache: write %s failed: %v", key, err)
	}
	return nil
}

// Invalidate deletes keys. Errors are logged, not returned.
func Invalidate(ctx context.Context, keys ...string) {
	rdb := GetClient()
	if rdb == nil || len(keys) == 0 {
		return
	}
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache: invalidate %v failed: %v", keys, err)
	}
}
