// File: core/concurrency/runner.go
// Package concurrency hosts the agent duty cycle.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// AgentRunner drives a single api.Agent on one goroutine. The agent is
// thread-confined: every tick, callback, and OnClose runs on the runner
// goroutine. Idle behaviour between ticks is delegated to an
// IdleStrategy; the default doubles a nanosecond sleep while no work is
// reported and resets on the first productive tick.

package concurrency

import (
	"sync/atomic"
	"time"

	"github.com/momentics/clusterseq/api"
)

// BackoffIdleStrategy sleeps with exponential backoff while idle.
type BackoffIdleStrategy struct {
	backoffNs    int64
	maxBackoffNs int64
}

// NewBackoffIdleStrategy returns a strategy capped at maxBackoff.
func NewBackoffIdleStrategy(maxBackoff time.Duration) *BackoffIdleStrategy {
	if maxBackoff <= 0 {
		maxBackoff = time.Millisecond
	}
	return &BackoffIdleStrategy{backoffNs: 1, maxBackoffNs: maxBackoff.Nanoseconds()}
}

// Idle sleeps when workCount is zero, doubling up to the cap.
func (b *BackoffIdleStrategy) Idle(workCount int) {
	if workCount > 0 {
		b.backoffNs = 1
		return
	}
	time.Sleep(time.Duration(b.backoffNs) * time.Nanosecond)
	b.backoffNs *= 2
	if b.backoffNs > b.maxBackoffNs {
		b.backoffNs = b.maxBackoffNs
	}
}

// AgentRunner runs an agent until stopped or until the agent fails.
type AgentRunner struct {
	agent   api.Agent
	idle    api.IdleStrategy
	quitCh  chan struct{}
	doneCh  chan struct{}
	running atomic.Bool
	err     atomic.Value // stores error
}

// NewAgentRunner binds an agent to an idle strategy.
func NewAgentRunner(agent api.Agent, idle api.IdleStrategy) *AgentRunner {
	if idle == nil {
		idle = NewBackoffIdleStrategy(time.Millisecond)
	}
	return &AgentRunner{
		agent:  agent,
		idle:   idle,
		quitCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Run executes the duty cycle until Stop is called or the agent
// returns an error. It is intended to be the body of one goroutine.
func (r *AgentRunner) Run() {
	if !r.running.CompareAndSwap(false, true) {
		return // already running
	}
	defer func() {
		r.agent.OnClose()
		close(r.doneCh)
		r.running.Store(false)
	}()

	for {
		select {
		case <-r.quitCh:
			return
		default:
		}

		workCount, err := r.agent.DoWork()
		if err != nil {
			r.err.Store(err)
			return
		}
		r.idle.Idle(workCount)
	}
}

// Stop signals the duty cycle to exit and waits for completion.
func (r *AgentRunner) Stop() {
	select {
	case <-r.quitCh:
		// already closed
	default:
		close(r.quitCh)
	}
	if r.running.Load() {
		<-r.doneCh
	}
}

// Done returns a channel closed when the duty cycle has exited.
func (r *AgentRunner) Done() <-chan struct{} {
	return r.doneCh
}

// Err returns the fatal agent error, if any.
func (r *AgentRunner) Err() error {
	if v := r.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}
