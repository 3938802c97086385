package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engimpact/dashboard/internal/cache"
	"github.com/engimpact/dashboard/internal/config"
	"github.com/engimpact/dashboard/internal/insights"
	"github.com/engimpact/dashboard/internal/monitoring"
)

type stubFetcher struct {
	payload map[string][]insights.RawRecord
}

func (s *stubFetcher) FetchPullRequests(ctx context.Context, owner, repo string, days int) ([]insights.RawRecord, error) {
	return s.payload[owner+"/"+repo], nil
}

func testRouter(fetcher insights.Fetcher) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Env: "test",
		Server: config.HTTPServer{
			Port:           "8080",
			RequestTimeout: 5 * time.Second,
		},
		Insights: config.InsightsConfig{
			BottleneckAgeDays:   7,
			HighImpactMinSample: 5,
			HighImpactFallback:  500,
			BurnoutShare:        0.40,
		},
	}

	analyzer := insights.NewAnalyzer(fetcher, cfg.Insights.Thresholds())
	return setupRouter(cfg, analyzer, cache.NewCache(time.Minute), monitoring.NewMetrics(), monitoring.NewLogger())
}

func TestHealthEndpoint(t *testing.T) {
	r := testRouter(&stubFetcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, version, body["version"])
	assert.Contains(t, body, "timestamp")
}

func TestMetricsEndpoint(t *testing.T) {
	r := testRouter(&stubFetcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "request_count")
	assert.Contains(t, body, "github_api_calls")
}

func TestCacheStatsEndpoint(t *testing.T) {
	r := testRouter(&stubFetcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cache/stats", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "total_items")
}

func TestInsightsEndpoint_BadRequests(t *testing.T) {
	r := testRouter(&stubFetcher{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{"repos": [`},
		{"missing repos", `{"days": 30}`},
		{"no valid repos", `{"repos": ["not-a-repo"], "days": 30}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/insights", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusBadRequest, w.Code)

			// Invalid input is a client-visible validation failure with a
			// stable error shape, never a 500.
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "VALIDATION_ERROR", body["error"])
			assert.Equal(t, "validation", body["category"])
			assert.Equal(t, float64(http.StatusBadRequest), body["http_status"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestInsightsEndpoint_Success(t *testing.T) {
	fetcher := &stubFetcher{
		payload: map[string][]insights.RawRecord{
			"acme/api": {
				{
					"title":      "Add search endpoint",
					"state":      "closed",
					"author":     "alice",
					"created_at": "2024-01-01T00:00:00Z",
					"merged_at":  "2024-01-01T12:00:00Z",
					"additions":  float64(100),
					"deletions":  float64(50),
					"reviewers":  []string{"bob"},
					"approvals":  float64(1),
				},
			},
		},
	}
	r := testRouter(fetcher)

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/insights",
			bytes.NewBufferString(`{"repos": ["acme/api"], "days": 30}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := do()
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	contributors, ok := body["contributors"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), contributors["alice"])

	for _, key := range []string{"reviews_by_contributor", "delivery", "high_impact", "bottlenecks", "workload"} {
		assert.Contains(t, body, key)
	}

	// Identical request served from cache with the same body.
	second := do()
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, w.Body.String(), second.Body.String())
}
