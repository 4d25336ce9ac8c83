package cache

import (
	"container/list"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis"
	"github.com/voxlabs/interviewd/pkg/Logger"
)

// ResponseCache short-circuits generation for inputs the pipeline has
// already answered inside the cache window.
type ResponseCache interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// Key normalizes the lookup inputs the same way for every caller, so
// identical utterances hit regardless of whitespace or case.
func Key(interviewerType, position string, difficulty float64, input string) string {
	return fmt.Sprintf("%s:%s:%.1f:%s",
		interviewerType,
		strings.ToLower(strings.TrimSpace(position)),
		difficulty,
		strings.ToLower(strings.TrimSpace(input)),
	)
}

const redisKeyPrefix = "interviewd:response:"

// RedisCache backs the response cache with a shared redis instance.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *Logger.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *Logger.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(key string) (string, bool) {
	val, err := c.client.Get(redisKeyPrefix + key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.logger.Warnf("response cache get failed: %v", err)
		return "", false
	}
	return val, true
}

func (c *RedisCache) Set(key, value string) {
	if err := c.client.Set(redisKeyPrefix+key, value, c.ttl).Err(); err != nil {
		c.logger.Warnf("response cache set failed: %v", err)
	}
}

type memoryEntry struct {
	key       string
	value     string
	expiresAt time.Time
}

// MemoryCache is the in-process fallback when redis is not configured:
// LRU eviction at maxSize plus per-entry TTL.
type MemoryCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	order   *list.List // front = most recently used
	entries map[string]*list.Element
}

func NewMemoryCache(maxSize int, ttl time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 200
	}
	return &MemoryCache{
		maxSize: maxSize,
		ttl:     ttl,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (c *MemoryCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return "", false
	}
	entry := el.Value.(*memoryEntry)
	if c.ttl > 0 && time.Now().After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.entries, key)
		return "", false
	}
	c.order.MoveToFront(el)
	return entry.value, true
}

func (c *MemoryCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&memoryEntry{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})

	for c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*memoryEntry).key)
	}
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
