// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for node-level monitoring.
// Exposes counters in a thread-safe map with dynamic probes.

package control

import (
	"sync"
	"time"

	"github.com/momentics/clusterseq/api"
)

// Ensure compile-time interface compliance.
var _ api.Control = (*MetricsRegistry)(nil)

// MetricsRegistry holds mutable metrics and registered probes.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	probes  map[string]func() any
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
		probes:  make(map[string]func() any),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// RegisterProbe registers a debug probe evaluated on each snapshot.
func (mr *MetricsRegistry) RegisterProbe(name string, fn func() any) {
	mr.mu.Lock()
	mr.probes[name] = fn
	mr.mu.Unlock()
}

// Snapshot returns the latest metrics plus evaluated probes.
func (mr *MetricsRegistry) Snapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics)+len(mr.probes))
	for k, v := range mr.metrics {
		out[k] = v
	}
	for k, fn := range mr.probes {
		out[k] = fn()
	}
	return out
}
