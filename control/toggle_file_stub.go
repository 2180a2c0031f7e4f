//go:build !linux
// +build !linux

// File: control/toggle_file_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fallback for platforms without shared file mappings wired up. The
// in-process AtomicCounter remains available everywhere.

package control

import (
	"sync/atomic"

	"github.com/momentics/clusterseq/api"
)

// MappedToggle degrades to a process-local counter on this platform.
type MappedToggle struct {
	v atomic.Int64
}

// OpenMappedToggle reports that cross-process toggles are unsupported.
func OpenMappedToggle(path string) (*MappedToggle, error) {
	return nil, api.ErrNotSupported
}

// Get returns the current value.
func (m *MappedToggle) Get() int64 { return m.v.Load() }

// Set stores a new value.
func (m *MappedToggle) Set(v int64) { m.v.Store(v) }

// Increment adds one and returns the new value.
func (m *MappedToggle) Increment() int64 { return m.v.Add(1) }

// CompareAndSet swaps expected for update atomically.
func (m *MappedToggle) CompareAndSet(expected, update int64) bool {
	return m.v.CompareAndSwap(expected, update)
}

// Close is a no-op on this platform.
func (m *MappedToggle) Close() error { return nil }
