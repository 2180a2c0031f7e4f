// File: core/protocol/ingress.go
// Package protocol defines the ingress frame and egress event types.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import "github.com/momentics/clusterseq/api"

// FrameKind discriminates inbound frame types.
type FrameKind int32

const (
	FrameSessionConnect FrameKind = iota + 1
	FrameSessionClose
	FrameSessionMessage
	FrameKeepAlive
	FrameChallengeResponse
	FrameScheduleTimer
	FrameCancelTimer
)

// String returns the frame mnemonic.
func (k FrameKind) String() string {
	switch k {
	case FrameSessionConnect:
		return "SESSION_CONNECT"
	case FrameSessionClose:
		return "SESSION_CLOSE"
	case FrameSessionMessage:
		return "SESSION_MESSAGE"
	case FrameKeepAlive:
		return "KEEP_ALIVE"
	case FrameChallengeResponse:
		return "CHALLENGE_RESPONSE"
	case FrameScheduleTimer:
		return "SCHEDULE_TIMER"
	case FrameCancelTimer:
		return "CANCEL_TIMER"
	}
	return "UNKNOWN"
}

// IngressFrame is one inbound unit of work from the ingress transport.
// Field population depends on Kind; sizes are fixed by the wire schema.
type IngressFrame struct {
	Kind             FrameKind
	CorrelationID    int64
	SessionID        int64
	ResponseStreamID int32
	ResponseChannel  string
	Credentials      []byte
	Payload          []byte
	DeadlineMs       int64
}

// EgressEvent is delivered to a session's response channel.
type EgressEvent struct {
	Code      api.EventCode
	SessionID int64
	Detail    string
	Challenge []byte
}
