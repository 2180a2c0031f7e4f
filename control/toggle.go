// File: control/toggle.go
// Package control carries operator-facing runtime control surfaces.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The control toggle is a shared 64-bit counter through which operator
// threads or processes inject mode-change commands. The sequencer reads
// it once per tick and conditionally resets it to NEUTRAL.

package control

import (
	"fmt"
	"strings"

	"github.com/momentics/clusterseq/api"
)

// ToggleCode enumerates operator commands accepted by the toggle.
type ToggleCode int64

const (
	ToggleNeutral ToggleCode = iota
	ToggleSuspend
	ToggleResume
	ToggleSnapshot
	ToggleShutdown
	ToggleAbort
)

// String returns the toggle mnemonic.
func (c ToggleCode) String() string {
	switch c {
	case ToggleNeutral:
		return "NEUTRAL"
	case ToggleSuspend:
		return "SUSPEND"
	case ToggleResume:
		return "RESUME"
	case ToggleSnapshot:
		return "SNAPSHOT"
	case ToggleShutdown:
		return "SHUTDOWN"
	case ToggleAbort:
		return "ABORT"
	}
	return "UNKNOWN"
}

// ParseToggle maps a mnemonic to its code, case-insensitively.
func ParseToggle(s string) (ToggleCode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NEUTRAL":
		return ToggleNeutral, nil
	case "SUSPEND":
		return ToggleSuspend, nil
	case "RESUME":
		return ToggleResume, nil
	case "SNAPSHOT":
		return ToggleSnapshot, nil
	case "SHUTDOWN":
		return ToggleShutdown, nil
	case "ABORT":
		return ToggleAbort, nil
	}
	return ToggleNeutral, fmt.Errorf("%w: toggle %q", api.ErrInvalidArgument, s)
}

// ClusterControl is the operator's handle on a node's control toggle.
type ClusterControl struct {
	counter api.Counter
}

// NewClusterControl wraps a shared toggle counter.
func NewClusterControl(counter api.Counter) *ClusterControl {
	return &ClusterControl{counter: counter}
}

// Request publishes a command. It only overwrites a NEUTRAL toggle so
// an unconsumed command is never silently replaced; false means a
// previous command is still pending.
func (c *ClusterControl) Request(code ToggleCode) bool {
	if code == ToggleNeutral {
		return true
	}
	return c.counter.CompareAndSet(int64(ToggleNeutral), int64(code))
}

// Reset forces the toggle back to NEUTRAL.
func (c *ClusterControl) Reset() {
	c.counter.Set(int64(ToggleNeutral))
}

// Pending returns the currently latched command.
func (c *ClusterControl) Pending() ToggleCode {
	return ToggleCode(c.counter.Get())
}
