// File: cluster/consensus.go
// Package cluster implements the consensus-module adapter.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Downstream services acknowledge readiness and action requests from
// their own threads; the agent polls the acknowledgements into the
// sequencer once per tick.

package cluster

import (
	"github.com/momentics/clusterseq/api"
	"github.com/momentics/clusterseq/core/concurrency"
)

// ServiceAck is one acknowledgement from a downstream service.
type ServiceAck struct {
	ServiceID int64
	Action    api.ServiceAction
}

// ConsensusModuleAdapter delivers service acknowledgements to the
// sequencer on the agent thread.
type ConsensusModuleAdapter struct {
	ring      *concurrency.RingBuffer[ServiceAck]
	sequencer *Sequencer
	closed    bool
}

func newConsensusModuleAdapter(sequencer *Sequencer, capacity int) *ConsensusModuleAdapter {
	return &ConsensusModuleAdapter{
		ring:      concurrency.NewRingBuffer[ServiceAck](uint64(capacity)),
		sequencer: sequencer,
	}
}

// Offer enqueues an acknowledgement from any thread.
func (a *ConsensusModuleAdapter) Offer(ack ServiceAck) bool {
	if a.closed {
		return false
	}
	return a.ring.Enqueue(ack)
}

// Poll delivers buffered acknowledgements. An ack that violates the
// state contract is fatal for the agent.
func (a *ConsensusModuleAdapter) Poll() (int, error) {
	workCount := 0
	for {
		ack, ok := a.ring.Dequeue()
		if !ok {
			return workCount, nil
		}
		if err := a.sequencer.OnServiceAck(ack.ServiceID, ack.Action); err != nil {
			return workCount, err
		}
		workCount++
	}
}

// Close stops accepting new acknowledgements.
func (a *ConsensusModuleAdapter) Close() {
	a.closed = true
}
