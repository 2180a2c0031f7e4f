// File: api/appender.go
// Package api defines the LogAppender contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking append interface over the replicated log publication.
// Every method attempts a single publish and reports refusal as false;
// the tick cadence of the calling agent is the retry back-off.

package api

// LogAppender publishes sequenced records to the replicated log.
// Implementations must never block.
type LogAppender interface {
	// AppendConnectedSession publishes a session-open record.
	AppendConnectedSession(session Session, nowMs int64) bool

	// AppendClosedSession publishes a session-close record.
	AppendClosedSession(session Session, reason CloseReason, nowMs int64) bool

	// AppendMessage publishes a client message record.
	AppendMessage(sessionID, correlationID int64, payload []byte, nowMs int64) bool

	// AppendTimerEvent publishes a timer expiry record.
	AppendTimerEvent(correlationID, nowMs int64) bool

	// AppendActionRequest publishes an operator action request record.
	AppendActionRequest(action ServiceAction, nowMs int64) bool
}
