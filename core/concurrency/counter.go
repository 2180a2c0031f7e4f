// File: core/concurrency/counter.go
// Package concurrency provides lock-free primitives for the agent core.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"sync/atomic"

	"github.com/momentics/clusterseq/api"
)

// Ensure compile-time interface compliance.
var _ api.Counter = (*AtomicCounter)(nil)

// AtomicCounter is a shared 64-bit counter, padded to keep the hot word
// on its own cache line. Increment publishes with release semantics so
// observers on other threads see writes that preceded it.
type AtomicCounter struct {
	_ [64]byte // Padding for hot/cold separation
	v atomic.Int64
	_ [64]byte // Padding
}

// NewAtomicCounter returns a counter starting at initial.
func NewAtomicCounter(initial int64) *AtomicCounter {
	c := &AtomicCounter{}
	c.v.Store(initial)
	return c
}

// Get returns the current value.
func (c *AtomicCounter) Get() int64 {
	return c.v.Load()
}

// Set stores a new value.
func (c *AtomicCounter) Set(v int64) {
	c.v.Store(v)
}

// Increment adds one and returns the new value.
func (c *AtomicCounter) Increment() int64 {
	return c.v.Add(1)
}

// CompareAndSet swaps expected for update atomically.
func (c *AtomicCounter) CompareAndSet(expected, update int64) bool {
	return c.v.CompareAndSwap(expected, update)
}
