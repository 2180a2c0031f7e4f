// File: core/clock/clock.go
// Package clock provides the millisecond clock pair used by agents.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Agents read the real clock once per tick and publish it through a
// cached clock so every callback within the tick observes the same,
// never-decreasing timestamp.

package clock

import (
	"sync/atomic"
	"time"
)

// EpochClock supplies wall-clock time in milliseconds since the epoch.
type EpochClock interface {
	// TimeMs returns the current epoch time in milliseconds.
	TimeMs() int64
}

// SystemClock reads the operating system clock.
type SystemClock struct{}

// TimeMs returns time.Now in epoch milliseconds.
func (SystemClock) TimeMs() int64 {
	return time.Now().UnixMilli()
}

// CachedClock is an EpochClock refreshed explicitly, typically once per
// agent tick. Updates never move the cached value backwards.
type CachedClock struct {
	ms atomic.Int64
}

// NewCachedClock returns a cached clock starting at zero.
func NewCachedClock() *CachedClock {
	return &CachedClock{}
}

// Update advances the cached time to nowMs. A value earlier than the
// current one is ignored.
func (c *CachedClock) Update(nowMs int64) {
	for {
		cur := c.ms.Load()
		if nowMs <= cur {
			return
		}
		if c.ms.CompareAndSwap(cur, nowMs) {
			return
		}
	}
}

// TimeMs returns the cached epoch time in milliseconds.
func (c *CachedClock) TimeMs() int64 {
	return c.ms.Load()
}
