package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// requestTimeout bounds a single GitHub API round-trip. Individual
// fetches must never hold an insights request hostage; the retry layer
// above decides whether to try again.
const requestTimeout = 30 * time.Second

// ConnectionPool hands out pooled HTTP clients for the GitHub API
// boundary. An insights request fans out into one list call per repo
// plus two enrichment calls per PR, so clients are reused rather than
// built per call. Every outbound request runs through the circuit
// breaker: a flapping GitHub API stops the fan-out instead of stacking
// up timeouts.
type ConnectionPool struct {
	maxIdle     int
	maxActive   int
	idleTimeout time.Duration

	circuitBreaker *CircuitBreaker

	activeConnections int
	idleConnections   []*pooledConnection
	mutex             sync.RWMutex

	// Shared transport so pooled clients reuse TCP connections to
	// api.github.com.
	transport *http.Transport
}

type pooledConnection struct {
	client   *http.Client
	lastUsed time.Time
	inUse    bool
}

// NewConnectionPool creates a pool of at most maxActive clients, keeping
// up to maxIdle of them warm between fetch bursts.
func NewConnectionPool(maxIdle, maxActive int, idleTimeout time.Duration, cb *CircuitBreaker) *ConnectionPool {
	transport := &http.Transport{
		MaxIdleConns:          maxIdle,
		MaxConnsPerHost:       maxActive,
		MaxIdleConnsPerHost:   maxIdle / 2,
		IdleConnTimeout:       idleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: requestTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &ConnectionPool{
		maxIdle:           maxIdle,
		maxActive:         maxActive,
		idleTimeout:       idleTimeout,
		circuitBreaker:    cb,
		transport:         transport,
		activeConnections: 0,
		idleConnections:   make([]*pooledConnection, 0),
	}
}

// GetClient returns a pooled client, preferring a warm idle one. It
// fails when the active limit is reached; callers treat that like any
// other fetch failure.
func (cp *ConnectionPool) GetClient() (*http.Client, error) {
	cp.mutex.Lock()
	defer cp.mutex.Unlock()

	cp.cleanupIdleConnections()

	if len(cp.idleConnections) > 0 {
		conn := cp.idleConnections[0]
		cp.idleConnections = cp.idleConnections[1:]

		conn.lastUsed = time.Now()
		conn.inUse = true

		slog.Debug("Reusing pooled client", "active", cp.activeConnections, "idle", len(cp.idleConnections))
		return conn.client, nil
	}

	if cp.activeConnections >= cp.maxActive {
		return nil, fmt.Errorf("connection pool exhausted: %d/%d active connections", cp.activeConnections, cp.maxActive)
	}

	client := &http.Client{
		Transport: cp.transport,
		Timeout:   requestTimeout,
	}

	cp.activeConnections++

	slog.Debug("Created pooled client", "active", cp.activeConnections, "idle", len(cp.idleConnections))
	return client, nil
}

// ReturnClient puts a client back into the idle set. Clients beyond
// maxIdle are simply dropped; the shared transport keeps their TCP
// connections reusable either way.
func (cp *ConnectionPool) ReturnClient(client *http.Client) {
	cp.mutex.Lock()
	defer cp.mutex.Unlock()

	for _, conn := range cp.idleConnections {
		if conn.client == client {
			conn.inUse = false
			conn.lastUsed = time.Now()
			return
		}
	}

	if len(cp.idleConnections) < cp.maxIdle {
		cp.idleConnections = append(cp.idleConnections, &pooledConnection{
			client:   client,
			lastUsed: time.Now(),
			inUse:    false,
		})
	}
}

// cleanupIdleConnections drops idle clients unused past idleTimeout.
// Caller holds the lock.
func (cp *ConnectionPool) cleanupIdleConnections() {
	now := time.Now()
	kept := cp.idleConnections[:0]

	for _, conn := range cp.idleConnections {
		if now.Sub(conn.lastUsed) <= cp.idleTimeout {
			kept = append(kept, conn)
		}
	}

	cp.idleConnections = kept
}

// GetStats returns a snapshot for the operational surface.
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	cp.mutex.RLock()
	defer cp.mutex.RUnlock()

	return map[string]interface{}{
		"active_connections":    cp.activeConnections,
		"idle_connections":      len(cp.idleConnections),
		"max_idle":              cp.maxIdle,
		"max_active":            cp.maxActive,
		"idle_timeout_ms":       cp.idleTimeout.Milliseconds(),
		"circuit_breaker_state": cp.circuitBreaker.State(),
	}
}

// DoRequest performs one GitHub API request through the circuit
// breaker using a pooled client. A failed request counts against the
// breaker; enough of them open it and subsequent calls fail fast.
func (cp *ConnectionPool) DoRequest(ctx context.Context, method, url string, headers map[string]string) (*http.Response, error) {
	var resp *http.Response

	err := cp.circuitBreaker.Call(func() error {
		client, err := cp.GetClient()
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			cp.ReturnClient(client)
			return err
		}

		for key, value := range headers {
			req.Header.Set(key, value)
		}

		start := time.Now()
		resp, err = client.Do(req)
		duration := time.Since(start)

		if err != nil {
			slog.Warn("GitHub request failed", "url", url, "error", err, "duration_ms", duration.Milliseconds())
			return err
		}

		slog.Debug("GitHub request completed", "url", url, "status", resp.StatusCode, "duration_ms", duration.Milliseconds())

		cp.ReturnClient(client)

		return nil
	})

	if err != nil {
		return nil, err
	}

	return resp, nil
}

// Close drops all pooled clients and closes idle TCP connections.
func (cp *ConnectionPool) Close() error {
	cp.mutex.Lock()
	defer cp.mutex.Unlock()

	cp.transport.CloseIdleConnections()
	cp.idleConnections = nil
	cp.activeConnections = 0

	return nil
}
