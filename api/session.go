// File: api/session.go
// Package api defines the read-only Session view shared with contracts.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Session is the read-only view of a cluster session that the log
// appender and egress publisher contracts operate on. The concrete
// session is owned by the sequencer and never escapes its thread.
type Session interface {
	// ID returns the server-assigned cluster session id.
	ID() int64
	// ResponseStreamID returns the stream id for egress events.
	ResponseStreamID() int32
	// ResponseChannel returns the egress channel descriptor.
	ResponseChannel() string
}
