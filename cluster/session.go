// File: cluster/session.go
// Package cluster implements the leader-side sequencing core.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Session is the leader's record of one client conversation. It is
// owned by exactly one sequencer container at a time: the pending list
// before authentication, the active map once authenticated and logged,
// or the rejected list while a best-effort notification drains.

package cluster

import (
	"github.com/momentics/clusterseq/api"
)

// Ensure compile-time interface compliance.
var _ api.Session = (*Session)(nil)

// SessionState is the lifecycle state of one session.
type SessionState int32

const (
	SessionInit SessionState = iota
	SessionConnected
	SessionChallenged
	SessionAuthenticated
	SessionRejected
	SessionOpen
	SessionTimedOut
	SessionClosed
)

// String returns the state mnemonic.
func (s SessionState) String() string {
	switch s {
	case SessionInit:
		return "INIT"
	case SessionConnected:
		return "CONNECTED"
	case SessionChallenged:
		return "CHALLENGED"
	case SessionAuthenticated:
		return "AUTHENTICATED"
	case SessionRejected:
		return "REJECTED"
	case SessionOpen:
		return "OPEN"
	case SessionTimedOut:
		return "TIMED_OUT"
	case SessionClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// Session holds per-client state. It is thread-confined to the agent.
type Session struct {
	id                int64
	responseStreamID  int32
	responseChannel   string
	lastActivityMs    int64
	lastCorrelationID int64
	state             SessionState
}

// NewSession creates a session in INIT state.
func NewSession(id int64, responseStreamID int32, responseChannel string) *Session {
	return &Session{
		id:               id,
		responseStreamID: responseStreamID,
		responseChannel:  responseChannel,
		state:            SessionInit,
	}
}

// ID returns the server-assigned cluster session id.
func (s *Session) ID() int64 {
	return s.id
}

// ResponseStreamID returns the stream id for egress events.
func (s *Session) ResponseStreamID() int32 {
	return s.responseStreamID
}

// ResponseChannel returns the egress channel descriptor.
func (s *Session) ResponseChannel() string {
	return s.responseChannel
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return s.state
}

func (s *Session) setState(state SessionState) {
	s.state = state
}

// Activity records the client's latest correlated activity.
func (s *Session) Activity(nowMs, correlationID int64) {
	s.lastActivityMs = nowMs
	s.lastCorrelationID = correlationID
}

// TimeOfLastActivityMs returns the last-activity timestamp.
func (s *Session) TimeOfLastActivityMs() int64 {
	return s.lastActivityMs
}

// SetTimeOfLastActivityMs resets the activity timestamp.
func (s *Session) SetTimeOfLastActivityMs(nowMs int64) {
	s.lastActivityMs = nowMs
}

// LastCorrelationID returns the last correlation id seen from the client.
func (s *Session) LastCorrelationID() int64 {
	return s.lastCorrelationID
}

// Close moves the session to its terminal state; idempotent.
func (s *Session) Close() {
	s.state = SessionClosed
}
