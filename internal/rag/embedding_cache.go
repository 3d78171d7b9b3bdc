package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// EmbeddingCache 向量缓存，L1 为进程内 sync.Map，L2 为 Redis
type EmbeddingCache struct {
	redis        redis.UniversalClient
	localCache   sync.Map
	prefix       string
	ttl          time.Duration
	maxLocalSize int
	localCount   int64
	mu           sync.Mutex
}

// cachedEmbedding 缓存条目
type cachedEmbedding struct {
	Vector    []float32 `json:"vector"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewEmbeddingCache 创建向量缓存；redisClient 可为 nil，此时仅保留本地缓存
func NewEmbeddingCache(redisClient redis.UniversalClient, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &EmbeddingCache{
		redis:        redisClient,
		prefix:       "emb:",
		ttl:          ttl,
		maxLocalSize: 10000,
	}
}

// Get 查询缓存向量
func (c *EmbeddingCache) Get(ctx context.Context, text, model string) ([]float32, bool) {
	key := c.makeKey(text, model)

	if val, ok := c.localCache.Load(key); ok {
		return val.(*cachedEmbedding).Vector, true
	}

	if c.redis != nil {
		data, err := c.redis.Get(ctx, key).Bytes()
		if err == nil {
			var cached cachedEmbedding
			if json.Unmarshal(data, &cached) == nil {
				c.setLocal(key, &cached)
				return cached.Vector, true
			}
		}
	}

	return nil, false
}

// Set 写入缓存
func (c *EmbeddingCache) Set(ctx context.Context, text, model string, vector []float32) {
	key := c.makeKey(text, model)
	cached := &cachedEmbedding{
		Vector:    vector,
		Model:     model,
		CreatedAt: time.Now(),
	}

	c.setLocal(key, cached)

	if c.redis != nil {
		if data, err := json.Marshal(cached); err == nil {
			// 缓存写失败不影响主流程
			_ = c.redis.Set(ctx, key, data, c.ttl).Err()
		}
	}
}

func (c *EmbeddingCache) setLocal(key string, cached *cachedEmbedding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.localCount >= int64(c.maxLocalSize) {
		// 简单清空策略，避免无界增长
		c.localCache = sync.Map{}
		c.localCount = 0
	}
	if _, loaded := c.localCache.LoadOrStore(key, cached); !loaded {
		c.localCount++
	}
}

func (c *EmbeddingCache) makeKey(text, model string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return c.prefix + hex.EncodeToString(sum[:])
}
