// File: core/protocol/records.go
// Package protocol implements the sequenced log record codec.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Records carry a fixed big-endian header followed by the response
// channel and payload as length-prefixed fields. Payload size is
// enforced on both encode and decode to prevent resource exhaustion.

package protocol

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/momentics/clusterseq/api"
)

// MaxRecordPayload defines the maximum payload size of a single record.
const MaxRecordPayload = 1 << 20 // 1 MiB

// recordHeaderLength is the fixed portion before variable fields.
const recordHeaderLength = 4 + 8 + 8 + 8 + 4 + 4

// RecordKind discriminates log record types.
type RecordKind int32

const (
	RecordConnectedSession RecordKind = iota + 1
	RecordClosedSession
	RecordClientMessage
	RecordTimerEvent
	RecordActionRequest
)

// String returns the record mnemonic.
func (k RecordKind) String() string {
	switch k {
	case RecordConnectedSession:
		return "CONNECTED_SESSION"
	case RecordClosedSession:
		return "CLOSED_SESSION"
	case RecordClientMessage:
		return "CLIENT_MESSAGE"
	case RecordTimerEvent:
		return "TIMER_EVENT"
	case RecordActionRequest:
		return "ACTION_REQUEST"
	}
	return "UNKNOWN"
}

// LogRecord is one sequenced entry of the replicated log.
type LogRecord struct {
	Kind             RecordKind
	TimestampMs      int64
	SessionID        int64
	CorrelationID    int64
	ResponseStreamID int32
	Code             int32 // CloseReason or ServiceAction depending on Kind
	ResponseChannel  string
	Payload          []byte
}

// Reason interprets Code as a session close reason.
func (r *LogRecord) Reason() api.CloseReason {
	return api.CloseReason(r.Code)
}

// Action interprets Code as a service action.
func (r *LogRecord) Action() api.ServiceAction {
	return api.ServiceAction(r.Code)
}

// Encode serializes the record, enforcing maximum payload size.
func (r *LogRecord) Encode() ([]byte, error) {
	if len(r.Payload) > MaxRecordPayload {
		return nil, errors.New("record payload exceeds maximum allowed size")
	}
	buf := make([]byte, recordHeaderLength+4+len(r.ResponseChannel)+4+len(r.Payload))
	binary.BigEndian.PutUint32(buf[0:], uint32(r.Kind))
	binary.BigEndian.PutUint64(buf[4:], uint64(r.TimestampMs))
	binary.BigEndian.PutUint64(buf[12:], uint64(r.SessionID))
	binary.BigEndian.PutUint64(buf[20:], uint64(r.CorrelationID))
	binary.BigEndian.PutUint32(buf[28:], uint32(r.ResponseStreamID))
	binary.BigEndian.PutUint32(buf[32:], uint32(r.Code))
	offset := recordHeaderLength
	binary.BigEndian.PutUint32(buf[offset:], uint32(len(r.ResponseChannel)))
	offset += 4
	copy(buf[offset:], r.ResponseChannel)
	offset += len(r.ResponseChannel)
	binary.BigEndian.PutUint32(buf[offset:], uint32(len(r.Payload)))
	offset += 4
	copy(buf[offset:], r.Payload)
	return buf, nil
}

// DecodeLogRecord parses a raw record, enforcing payload size limits.
func DecodeLogRecord(raw []byte) (*LogRecord, error) {
	if len(raw) < recordHeaderLength+8 {
		return nil, errors.New("record too short")
	}
	r := &LogRecord{
		Kind:             RecordKind(binary.BigEndian.Uint32(raw[0:])),
		TimestampMs:      int64(binary.BigEndian.Uint64(raw[4:])),
		SessionID:        int64(binary.BigEndian.Uint64(raw[12:])),
		CorrelationID:    int64(binary.BigEndian.Uint64(raw[20:])),
		ResponseStreamID: int32(binary.BigEndian.Uint32(raw[28:])),
		Code:             int32(binary.BigEndian.Uint32(raw[32:])),
	}
	offset := recordHeaderLength
	channelLen := int(binary.BigEndian.Uint32(raw[offset:]))
	offset += 4
	if len(raw) < offset+channelLen+4 {
		return nil, errors.New("record too short for response channel")
	}
	r.ResponseChannel = string(raw[offset : offset+channelLen])
	offset += channelLen
	payloadLen := int(binary.BigEndian.Uint32(raw[offset:]))
	offset += 4
	if payloadLen > MaxRecordPayload {
		return nil, errors.New("record payload exceeds maximum allowed size")
	}
	if len(raw) < offset+payloadLen {
		return nil, errors.New("record payload truncated")
	}
	r.Payload = make([]byte, payloadLen)
	copy(r.Payload, raw[offset:offset+payloadLen])
	return r, nil
}

// String renders the record in a stable single-line form.
func (r *LogRecord) String() string {
	switch r.Kind {
	case RecordConnectedSession:
		return fmt.Sprintf("CONNECTED_SESSION sessionId=%d streamId=%d channel=%s t=%d",
			r.SessionID, r.ResponseStreamID, r.ResponseChannel, r.TimestampMs)
	case RecordClosedSession:
		return fmt.Sprintf("CLOSED_SESSION sessionId=%d reason=%s t=%d",
			r.SessionID, r.Reason(), r.TimestampMs)
	case RecordClientMessage:
		return fmt.Sprintf("CLIENT_MESSAGE sessionId=%d correlationId=%d payload=%s t=%d",
			r.SessionID, r.CorrelationID, hex.EncodeToString(r.Payload), r.TimestampMs)
	case RecordTimerEvent:
		return fmt.Sprintf("TIMER_EVENT correlationId=%d t=%d", r.CorrelationID, r.TimestampMs)
	case RecordActionRequest:
		return fmt.Sprintf("ACTION_REQUEST action=%s t=%d", r.Action(), r.TimestampMs)
	}
	return fmt.Sprintf("UNKNOWN kind=%d t=%d", int32(r.Kind), r.TimestampMs)
}
