// File: fake/appender.go
// Package fake provides test doubles for the sequencing contracts.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"github.com/momentics/clusterseq/api"
	"github.com/momentics/clusterseq/core/protocol"
)

// Ensure compile-time interface compliance.
var _ api.LogAppender = (*Appender)(nil)

// Appender captures appended records and can be scripted to refuse.
type Appender struct {
	Records   []*protocol.LogRecord
	Refusals  int  // refuse the next N appends
	RefuseAll bool // refuse every append
}

func (f *Appender) refuse() bool {
	if f.RefuseAll {
		return true
	}
	if f.Refusals > 0 {
		f.Refusals--
		return true
	}
	return false
}

func (f *Appender) capture(record *protocol.LogRecord) bool {
	if f.refuse() {
		return false
	}
	f.Records = append(f.Records, record)
	return true
}

// AppendConnectedSession records a session-open append.
func (f *Appender) AppendConnectedSession(session api.Session, nowMs int64) bool {
	return f.capture(&protocol.LogRecord{
		Kind:             protocol.RecordConnectedSession,
		TimestampMs:      nowMs,
		SessionID:        session.ID(),
		ResponseStreamID: session.ResponseStreamID(),
		ResponseChannel:  session.ResponseChannel(),
	})
}

// AppendClosedSession records a session-close append.
func (f *Appender) AppendClosedSession(session api.Session, reason api.CloseReason, nowMs int64) bool {
	return f.capture(&protocol.LogRecord{
		Kind:        protocol.RecordClosedSession,
		TimestampMs: nowMs,
		SessionID:   session.ID(),
		Code:        int32(reason),
	})
}

// AppendMessage records a client message append.
func (f *Appender) AppendMessage(sessionID, correlationID int64, payload []byte, nowMs int64) bool {
	return f.capture(&protocol.LogRecord{
		Kind:          protocol.RecordClientMessage,
		TimestampMs:   nowMs,
		SessionID:     sessionID,
		CorrelationID: correlationID,
		Payload:       payload,
	})
}

// AppendTimerEvent records a timer expiry append.
func (f *Appender) AppendTimerEvent(correlationID, nowMs int64) bool {
	return f.capture(&protocol.LogRecord{
		Kind:          protocol.RecordTimerEvent,
		TimestampMs:   nowMs,
		CorrelationID: correlationID,
	})
}

// AppendActionRequest records an action request append.
func (f *Appender) AppendActionRequest(action api.ServiceAction, nowMs int64) bool {
	return f.capture(&protocol.LogRecord{
		Kind:        protocol.RecordActionRequest,
		TimestampMs: nowMs,
		Code:        int32(action),
	})
}

// Kinds returns the captured record kinds in append order.
func (f *Appender) Kinds() []protocol.RecordKind {
	kinds := make([]protocol.RecordKind, len(f.Records))
	for i, r := range f.Records {
		kinds[i] = r.Kind
	}
	return kinds
}
