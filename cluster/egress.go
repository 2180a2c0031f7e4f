// File: cluster/egress.go
// Package cluster implements the channel-backed egress publisher.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Clients register their response channel descriptor before
// connecting and read events from the returned channel. All sends are
// non-blocking: a full or unregistered channel refuses the event.

package cluster

import (
	"sync"

	"github.com/momentics/clusterseq/api"
	"github.com/momentics/clusterseq/core/protocol"
)

// Ensure compile-time interface compliance.
var _ api.EgressPublisher = (*ChannelEgress)(nil)

// ChannelEgress publishes egress events over registered Go channels.
type ChannelEgress struct {
	mu       sync.RWMutex
	channels map[string]chan protocol.EgressEvent
	capacity int
}

// NewChannelEgress creates a publisher with per-session buffer capacity.
func NewChannelEgress(capacity int) *ChannelEgress {
	if capacity <= 0 {
		capacity = 16
	}
	return &ChannelEgress{
		channels: make(map[string]chan protocol.EgressEvent),
		capacity: capacity,
	}
}

// Register creates (or returns) the response channel for a descriptor.
func (e *ChannelEgress) Register(channel string) <-chan protocol.EgressEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ch, ok := e.channels[channel]; ok {
		return ch
	}
	ch := make(chan protocol.EgressEvent, e.capacity)
	e.channels[channel] = ch
	return ch
}

// Unregister drops the response channel for a descriptor.
func (e *ChannelEgress) Unregister(channel string) {
	e.mu.Lock()
	delete(e.channels, channel)
	e.mu.Unlock()
}

func (e *ChannelEgress) lookup(channel string) (chan protocol.EgressEvent, bool) {
	e.mu.RLock()
	ch, ok := e.channels[channel]
	e.mu.RUnlock()
	return ch, ok
}

// Connected reports whether the session's response channel is registered.
func (e *ChannelEgress) Connected(session api.Session) bool {
	_, ok := e.lookup(session.ResponseChannel())
	return ok
}

// SendEvent sends an event with a detail string, best-effort.
func (e *ChannelEgress) SendEvent(session api.Session, code api.EventCode, detail string) bool {
	return e.send(session, protocol.EgressEvent{
		Code:      code,
		SessionID: session.ID(),
		Detail:    detail,
	})
}

// SendChallenge sends an authentication challenge payload, best-effort.
func (e *ChannelEgress) SendChallenge(session api.Session, challengeData []byte) bool {
	return e.send(session, protocol.EgressEvent{
		Code:      api.EventChallenge,
		SessionID: session.ID(),
		Challenge: challengeData,
	})
}

func (e *ChannelEgress) send(session api.Session, event protocol.EgressEvent) bool {
	ch, ok := e.lookup(session.ResponseChannel())
	if !ok {
		return false
	}
	select {
	case ch <- event:
		return true
	default:
		return false // channel is full
	}
}
