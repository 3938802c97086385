package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds application metrics
type Metrics struct {
	RequestCount   int64
	ErrorCount     int64
	CacheHits      int64
	CacheMisses    int64
	GitHubAPICalls int64
	FetchFailures  int64
	StartTime      time.Time

	// Response time samples for percentile reporting
	ResponseTimes      []time.Duration
	ResponseTimesMutex sync.RWMutex

	// Status code tracking
	RequestCountByStatus map[int]int64
	StatusMutex          sync.RWMutex
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:            time.Now(),
		ResponseTimes:        make([]time.Duration, 0, 1000),
		RequestCountByStatus: make(map[int]int64),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

// IncrementGitHubCalls increments GitHub API call count
func (m *Metrics) IncrementGitHubCalls() {
	atomic.AddInt64(&m.GitHubAPICalls, 1)
}

// IncrementFetchFailures counts repository fetches that degraded to
// zero records.
func (m *Metrics) IncrementFetchFailures() {
	atomic.AddInt64(&m.FetchFailures, 1)
}

// RecordResponseTime records a response time sample. The sample buffer
// is bounded; once full, the oldest half is dropped.
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	m.ResponseTimesMutex.Lock()
	defer m.ResponseTimesMutex.Unlock()

	if len(m.ResponseTimes) >= cap(m.ResponseTimes) {
		half := len(m.ResponseTimes) / 2
		m.ResponseTimes = append(m.ResponseTimes[:0], m.ResponseTimes[half:]...)
	}
	m.ResponseTimes = append(m.ResponseTimes, duration)
}

// RecordRequestByStatus tracks requests per HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.StatusMutex.Lock()
	defer m.StatusMutex.Unlock()

	m.RequestCountByStatus[statusCode]++
}

// GetStats returns a snapshot of all metrics
func (m *Metrics) GetStats() map[string]interface{} {
	uptime := time.Since(m.StartTime)

	m.StatusMutex.RLock()
	byStatus := make(map[int]int64, len(m.RequestCountByStatus))
	for code, count := range m.RequestCountByStatus {
		byStatus[code] = count
	}
	m.StatusMutex.RUnlock()

	p50, p95, p99 := m.responseTimePercentiles()

	return map[string]interface{}{
		"uptime_seconds":          uptime.Seconds(),
		"request_count":           atomic.LoadInt64(&m.RequestCount),
		"error_count":             atomic.LoadInt64(&m.ErrorCount),
		"cache_hits":              atomic.LoadInt64(&m.CacheHits),
		"cache_misses":            atomic.LoadInt64(&m.CacheMisses),
		"github_api_calls":        atomic.LoadInt64(&m.GitHubAPICalls),
		"fetch_failures":          atomic.LoadInt64(&m.FetchFailures),
		"requests_by_status":      byStatus,
		"response_time_p50_ms":    p50.Milliseconds(),
		"response_time_p95_ms":    p95.Milliseconds(),
		"response_time_p99_ms":    p99.Milliseconds(),
	}
}

func (m *Metrics) responseTimePercentiles() (p50, p95, p99 time.Duration) {
	m.ResponseTimesMutex.RLock()
	samples := append([]time.Duration(nil), m.ResponseTimes...)
	m.ResponseTimesMutex.RUnlock()

	if len(samples) == 0 {
		return 0, 0, 0
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	at := func(p float64) time.Duration {
		idx := int(p * float64(len(samples)-1))
		return samples[idx]
	}
	return at(0.50), at(0.95), at(0.99)
}
