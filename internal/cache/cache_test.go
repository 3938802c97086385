package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engimpact/dashboard/internal/types"
)

func TestRequestKey_Canonical(t *testing.T) {
	a := RequestKey(types.InsightsRequest{Repos: []string{"acme/api", "acme/web"}, Days: 30})
	b := RequestKey(types.InsightsRequest{Repos: []string{"acme/web", "acme/api"}, Days: 30})
	assert.Equal(t, a, b, "repository order must not fragment the cache")
}

func TestRequestKey_Distinct(t *testing.T) {
	base := types.InsightsRequest{Repos: []string{"acme/api"}, Days: 30}

	tests := []struct {
		name string
		req  types.InsightsRequest
	}{
		{"different window", types.InsightsRequest{Repos: []string{"acme/api"}, Days: 7}},
		{"different repos", types.InsightsRequest{Repos: []string{"acme/web"}, Days: 30}},
		{"extra repo", types.InsightsRequest{Repos: []string{"acme/api", "acme/web"}, Days: 30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, RequestKey(base), RequestKey(tt.req))
		})
	}
}

func TestRequestKey_DoesNotMutateRequest(t *testing.T) {
	req := types.InsightsRequest{Repos: []string{"z/z", "a/a"}, Days: 30}
	RequestKey(req)
	assert.Equal(t, []string{"z/z", "a/a"}, req.Repos)
}

func TestCacheGetSet(t *testing.T) {
	c := NewCache(time.Minute)

	_, found := c.Get("missing")
	assert.False(t, found)

	c.Set("key", []byte(`{"ok":true}`))
	data, found := c.Get("key")
	require.True(t, found)
	assert.Equal(t, []byte(`{"ok":true}`), data)
	assert.Equal(t, 1, c.Size())
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(10 * time.Millisecond)

	c.Set("key", []byte("data"))
	time.Sleep(25 * time.Millisecond)

	_, found := c.Get("key")
	assert.False(t, found, "expired items are not served")
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := NewCache(time.Minute)

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))

	c.Delete("a")
	_, found := c.Get("a")
	assert.False(t, found)
	assert.Equal(t, 1, c.Size())

	c.Clear()
	assert.Zero(t, c.Size())
}

func TestCacheStats(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", []byte("1"))

	stats := c.Stats()
	assert.Equal(t, 1, stats["total_items"])
	assert.Equal(t, 0, stats["expired_items"])
	assert.Equal(t, 1, stats["active_items"])
	assert.Equal(t, 60.0, stats["ttl_seconds"])
}
