// File: cluster/ingress.go
// Package cluster implements the ingress adapter.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transport threads offer frames into a lock-free ring; the agent
// drains the ring into a single-threaded staging queue and dispatches
// from its head with controlled-acknowledgement semantics. A dispatch
// answering ABORT leaves the same fragment at the head, so the frame
// offered to the sequencer on the next poll is identical.

package cluster

import (
	"github.com/eapache/queue"

	"github.com/momentics/clusterseq/api"
	"github.com/momentics/clusterseq/core/concurrency"
	"github.com/momentics/clusterseq/core/protocol"
)

// IngressAdapter buffers inbound frames and dispatches them to the
// sequencer callbacks on the agent thread.
type IngressAdapter struct {
	ring      *concurrency.RingBuffer[protocol.IngressFrame]
	staged    *queue.Queue
	sequencer *Sequencer
	closed    bool
}

func newIngressAdapter(sequencer *Sequencer, capacity int) *IngressAdapter {
	return &IngressAdapter{
		ring:      concurrency.NewRingBuffer[protocol.IngressFrame](uint64(capacity)),
		staged:    queue.New(),
		sequencer: sequencer,
	}
}

// Offer enqueues a frame from any thread; false means the adapter is
// closed, or the buffer is full and the transport should apply
// backpressure.
func (a *IngressAdapter) Offer(frame protocol.IngressFrame) bool {
	if a.closed {
		return false
	}
	return a.ring.Enqueue(frame)
}

// Poll drains buffered frames into the sequencer. Called on the agent
// thread only.
func (a *IngressAdapter) Poll() int {
	for {
		frame, ok := a.ring.Dequeue()
		if !ok {
			break
		}
		a.staged.Add(frame)
	}

	workCount := 0
	for a.staged.Length() > 0 {
		frame := a.staged.Peek().(protocol.IngressFrame)
		if a.dispatch(frame) == api.ControlledAbort {
			break
		}
		a.staged.Remove()
		workCount++
	}
	return workCount
}

func (a *IngressAdapter) dispatch(frame protocol.IngressFrame) api.ControlledAction {
	switch frame.Kind {
	case protocol.FrameSessionConnect:
		a.sequencer.OnSessionConnect(
			frame.CorrelationID, frame.ResponseStreamID, frame.ResponseChannel, frame.Credentials)
	case protocol.FrameSessionClose:
		a.sequencer.OnSessionClose(frame.SessionID)
	case protocol.FrameSessionMessage:
		return a.sequencer.OnSessionMessage(frame.SessionID, frame.CorrelationID, frame.Payload)
	case protocol.FrameKeepAlive:
		a.sequencer.OnKeepAlive(frame.CorrelationID, frame.SessionID)
	case protocol.FrameChallengeResponse:
		a.sequencer.OnChallengeResponse(frame.CorrelationID, frame.SessionID, frame.Credentials)
	case protocol.FrameScheduleTimer:
		a.sequencer.OnScheduleTimer(frame.CorrelationID, frame.DeadlineMs)
	case protocol.FrameCancelTimer:
		a.sequencer.OnCancelTimer(frame.CorrelationID)
	}
	return api.ControlledContinue
}

// Pending returns the number of frames awaiting dispatch.
func (a *IngressAdapter) Pending() int {
	return a.ring.Len() + a.staged.Length()
}

// Close stops accepting new frames.
func (a *IngressAdapter) Close() {
	a.closed = true
}
