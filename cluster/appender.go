// File: cluster/appender.go
// Package cluster implements the ring-backed log publication.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// LogBuffer is the in-process publication the sequencer appends to; a
// replication transport drains the consumer side. A full ring refuses
// the append, which the sequencer retries on a later tick.

package cluster

import (
	"github.com/momentics/clusterseq/api"
	"github.com/momentics/clusterseq/core/concurrency"
	"github.com/momentics/clusterseq/core/protocol"
)

// Ensure compile-time interface compliance.
var _ api.LogAppender = (*LogBuffer)(nil)

// LogBuffer is a bounded, non-blocking log publication.
type LogBuffer struct {
	ring *concurrency.RingBuffer[*protocol.LogRecord]
}

// NewLogBuffer allocates a publication with the given capacity.
func NewLogBuffer(capacity int) *LogBuffer {
	return &LogBuffer{
		ring: concurrency.NewRingBuffer[*protocol.LogRecord](uint64(capacity)),
	}
}

// AppendConnectedSession publishes a session-open record.
func (l *LogBuffer) AppendConnectedSession(session api.Session, nowMs int64) bool {
	return l.ring.Enqueue(&protocol.LogRecord{
		Kind:             protocol.RecordConnectedSession,
		TimestampMs:      nowMs,
		SessionID:        session.ID(),
		ResponseStreamID: session.ResponseStreamID(),
		ResponseChannel:  session.ResponseChannel(),
	})
}

// AppendClosedSession publishes a session-close record.
func (l *LogBuffer) AppendClosedSession(session api.Session, reason api.CloseReason, nowMs int64) bool {
	return l.ring.Enqueue(&protocol.LogRecord{
		Kind:        protocol.RecordClosedSession,
		TimestampMs: nowMs,
		SessionID:   session.ID(),
		Code:        int32(reason),
	})
}

// AppendMessage publishes a client message record.
func (l *LogBuffer) AppendMessage(sessionID, correlationID int64, payload []byte, nowMs int64) bool {
	if len(payload) > protocol.MaxRecordPayload {
		return false
	}
	return l.ring.Enqueue(&protocol.LogRecord{
		Kind:          protocol.RecordClientMessage,
		TimestampMs:   nowMs,
		SessionID:     sessionID,
		CorrelationID: correlationID,
		Payload:       payload,
	})
}

// AppendTimerEvent publishes a timer expiry record.
func (l *LogBuffer) AppendTimerEvent(correlationID, nowMs int64) bool {
	return l.ring.Enqueue(&protocol.LogRecord{
		Kind:          protocol.RecordTimerEvent,
		TimestampMs:   nowMs,
		CorrelationID: correlationID,
	})
}

// AppendActionRequest publishes an operator action request record.
func (l *LogBuffer) AppendActionRequest(action api.ServiceAction, nowMs int64) bool {
	return l.ring.Enqueue(&protocol.LogRecord{
		Kind:        protocol.RecordActionRequest,
		TimestampMs: nowMs,
		Code:        int32(action),
	})
}

// Read drains up to limit records into fn and returns the count read.
func (l *LogBuffer) Read(fn func(*protocol.LogRecord), limit int) int {
	count := 0
	for count < limit {
		record, ok := l.ring.Dequeue()
		if !ok {
			break
		}
		fn(record)
		count++
	}
	return count
}

// Len returns the number of unread records.
func (l *LogBuffer) Len() int {
	return l.ring.Len()
}

// Cap returns the publication capacity.
func (l *LogBuffer) Cap() int {
	return l.ring.Cap()
}
