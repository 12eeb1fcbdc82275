package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/pickbasic-lsp/pickhost/jsonrpc"
)

// Metrics accumulates per-method statistics for the server-to-client
// traffic a session handles. Incoming volume is low (diagnostics, log
// messages, the occasional configuration request), so a single mutex over
// plain counters is enough.
type Metrics struct {
	mu      sync.Mutex
	methods map[string]*methodStats
}

type methodStats struct {
	count   int64
	errors  int64
	total   time.Duration
	slowest time.Duration
}

// MethodSnapshot is a point-in-time copy of the statistics for one method.
type MethodSnapshot struct {
	Count     int64
	Errors    int64
	TotalTime time.Duration
	Slowest   time.Duration
}

// NewMetrics creates an empty collector.
func NewMetrics() *Metrics {
	return &Metrics{methods: make(map[string]*methodStats)}
}

func (m *Metrics) record(method string, elapsed time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.methods[method]
	if stats == nil {
		stats = &methodStats{}
		m.methods[method] = stats
	}
	stats.count++
	stats.total += elapsed
	if elapsed > stats.slowest {
		stats.slowest = elapsed
	}
	if failed {
		stats.errors++
	}
}

// Snapshot copies the current statistics for every method seen so far.
func (m *Metrics) Snapshot() map[string]MethodSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := make(map[string]MethodSnapshot, len(m.methods))
	for method, stats := range m.methods {
		snap[method] = MethodSnapshot{
			Count:     stats.count,
			Errors:    stats.errors,
			TotalTime: stats.total,
			Slowest:   stats.slowest,
		}
	}
	return snap
}

// Telemetry returns middleware that feeds the collector.
func Telemetry(metrics *Metrics) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error) {
			start := time.Now()
			result, err := next(ctx, method, params)
			metrics.record(method, time.Since(start), err != nil)
			return result, err
		}
	}
}
