// File: cluster/timers.go
// Package cluster implements the deadline timer service.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Timers are keyed by correlation id and kept in a binary heap ordered
// by (deadline, correlation id) so simultaneously-due timers fire in a
// deterministic order. A fired timer whose log append is refused stays
// scheduled and is retried on the next poll.

package cluster

import (
	"container/heap"

	"github.com/momentics/clusterseq/api"
)

// Ensure compile-time interface compliance.
var _ api.TimerService = (*TimerService)(nil)

type timerEntry struct {
	correlationID int64
	deadlineMs    int64
	index         int
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadlineMs != h[j].deadlineMs {
		return h[i].deadlineMs < h[j].deadlineMs
	}
	return h[i].correlationID < h[j].correlationID
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// TimerService schedules and fires deadline timers on the agent thread.
type TimerService struct {
	handler api.TimerHandler
	timerQ  timerHeap
	byID    map[int64]*timerEntry
}

// NewTimerService binds the service to an expiry handler.
func NewTimerService(handler api.TimerHandler) *TimerService {
	return &TimerService{
		handler: handler,
		byID:    make(map[int64]*timerEntry),
	}
}

// ScheduleTimer registers a timer, replacing the deadline of an
// existing correlation id.
func (t *TimerService) ScheduleTimer(correlationID, deadlineMs int64) {
	if e, ok := t.byID[correlationID]; ok {
		e.deadlineMs = deadlineMs
		heap.Fix(&t.timerQ, e.index)
		return
	}
	e := &timerEntry{correlationID: correlationID, deadlineMs: deadlineMs}
	heap.Push(&t.timerQ, e)
	t.byID[correlationID] = e
}

// CancelTimer removes a timer; unknown ids are a no-op.
func (t *TimerService) CancelTimer(correlationID int64) {
	e, ok := t.byID[correlationID]
	if !ok {
		return
	}
	heap.Remove(&t.timerQ, e.index)
	delete(t.byID, correlationID)
}

// Poll fires timers due at nowMs. A handler refusal leaves the timer
// scheduled and stops the sweep for this tick.
func (t *TimerService) Poll(nowMs int64) int {
	workCount := 0
	for len(t.timerQ) > 0 {
		top := t.timerQ[0]
		if top.deadlineMs > nowMs {
			break
		}
		if !t.handler(top.correlationID, nowMs) {
			break
		}
		heap.Pop(&t.timerQ)
		delete(t.byID, top.correlationID)
		workCount++
	}
	return workCount
}

// ScheduledCount returns the number of timers currently scheduled.
func (t *TimerService) ScheduledCount() int {
	return len(t.timerQ)
}
