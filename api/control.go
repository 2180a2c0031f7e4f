// File: api/control.go
// Package api defines Control interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Control exposes runtime metrics and debug probes of a node.
type Control interface {
	// Snapshot returns the current metrics.
	Snapshot() map[string]any
	// RegisterProbe registers a debug probe evaluated per snapshot.
	RegisterProbe(name string, fn func() any)
}
