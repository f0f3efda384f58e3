package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResultCache stores full OCR responses keyed by document content hash.
// A hit short-circuits the provider chain entirely: no backend is
// invoked and no quota is consumed.
type ResultCache interface {
	Get(ctx context.Context, hash string) *Result
	Set(ctx context.Context, hash string, result *Result) error
}

// DocumentHash derives the cache key: the canonical URL when the
// document is addressable, otherwise the uploaded bytes.
func DocumentHash(doc Document) string {
	h := sha256.New()
	if doc.URL != "" {
		h.Write([]byte(doc.URL))
	} else {
		h.Write(doc.Data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// cacheTTL bounds how long a cached OCR response stays valid. Entries
// are immutable once written; expiry is the only eviction.
const cacheTTL = 30 * 24 * time.Hour

// RedisCache is the Redis-backed result cache. A nil client disables
// caching without disabling the chain.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func cacheKey(hash string) string {
	return fmt.Sprintf("ocr:result:%s", hash)
}

func (c *RedisCache) Get(ctx context.Context, hash string) *Result {
	if c.rdb == nil {
		return nil
	}

	data, err := c.rdb.Get(ctx, cacheKey(hash)).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("OCR cache read failed", "error", err)
		}
		return nil
	}

	var result Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		slog.Warn("OCR cache entry corrupted, ignoring", "hash", hash, "error", err)
		return nil
	}
	return &result
}

func (c *RedisCache) Set(ctx context.Context, hash string, result *Result) error {
	if c.rdb == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cacheKey(hash), data, cacheTTL).Err()
}
