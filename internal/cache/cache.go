package cache

import (
	"bytes"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/engimpact/dashboard/internal/monitoring"
	"github.com/engimpact/dashboard/internal/types"
)

// CacheItem represents a cached item with expiration
type CacheItem struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the cache item has expired
func (c *CacheItem) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// Cache provides thread-safe caching with TTL. Insights responses are
// expensive (one GitHub round-trip per repo plus two per PR), so
// identical requests within the TTL are served from memory.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*CacheItem
	ttl   time.Duration
}

// NewCache creates a new cache with the specified TTL
func NewCache(ttl time.Duration) *Cache {
	cache := &Cache{
		items: make(map[string]*CacheItem),
		ttl:   ttl,
	}

	go cache.cleanup()

	return cache
}

// cleanup removes expired items periodically
func (c *Cache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		for key, item := range c.items {
			if item.IsExpired() {
				delete(c.items, key)
			}
		}
		c.mu.Unlock()
	}
}

// RequestKey builds a canonical cache key for an insights request.
// Repositories are sorted so request order does not fragment the cache.
func RequestKey(req types.InsightsRequest) string {
	repos := append([]string(nil), req.Repos...)
	sort.Strings(repos)
	raw := fmt.Sprintf("%s|%d", strings.Join(repos, ","), req.Days)
	hash := md5.Sum([]byte(raw))
	return fmt.Sprintf("%x", hash)
}

// Get retrieves an item from the cache
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || item.IsExpired() {
		if exists && item.IsExpired() {
			go func() {
				c.mu.Lock()
				delete(c.items, key)
				c.mu.Unlock()
			}()
		}
		return nil, false
	}

	return item.Data, true
}

// Set stores an item in the cache
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(c.ttl),
	}
}

// Delete removes an item from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*CacheItem)
}

// Size returns the number of items in the cache
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Stats returns cache statistics
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	totalItems := len(c.items)
	expiredItems := 0

	for _, item := range c.items {
		if item.IsExpired() {
			expiredItems++
		}
	}

	return map[string]interface{}{
		"total_items":   totalItems,
		"expired_items": expiredItems,
		"active_items":  totalItems - expiredItems,
		"ttl_seconds":   c.ttl.Seconds(),
	}
}

// Middleware creates a Gin middleware caching POST /insights responses
// by canonical request key.
func (c *Cache) Middleware(metrics *monitoring.Metrics) func(*gin.Context) {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodPost || ctx.Request.URL.Path != "/insights" {
			ctx.Next()
			return
		}

		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			ctx.Next()
			return
		}

		// Restore body for the handler
		ctx.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		var req types.InsightsRequest
		if err := json.Unmarshal(body, &req); err != nil {
			// Let the handler produce the binding error
			ctx.Next()
			return
		}

		cacheKey := RequestKey(req)

		if cachedData, found := c.Get(cacheKey); found {
			slog.Info("Cache hit", "key", cacheKey[:8]+"...")
			metrics.IncrementCacheHit()
			ctx.Set("cache_hit", true)
			ctx.Data(http.StatusOK, "application/json", cachedData)
			ctx.Abort()
			return
		}

		slog.Info("Cache miss", "key", cacheKey[:8]+"...")
		metrics.IncrementCacheMiss()

		wrapper := &responseWriter{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}

		ctx.Writer = wrapper
		ctx.Next()

		if ctx.Writer.Status() == http.StatusOK {
			c.Set(cacheKey, wrapper.body.Bytes())
			slog.Info("Response cached", "key", cacheKey[:8]+"...")
		}
	}
}

// responseWriter wraps gin.ResponseWriter to capture response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
