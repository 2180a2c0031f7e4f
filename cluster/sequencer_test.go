// File: cluster/sequencer_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scenario tests for the sequencer tick protocol: startup, session
// lifecycle, control toggles and append-refusal retries.

package cluster_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/clusterseq/api"
	"github.com/momentics/clusterseq/cluster"
	"github.com/momentics/clusterseq/control"
	"github.com/momentics/clusterseq/core/concurrency"
	"github.com/momentics/clusterseq/core/protocol"
	"github.com/momentics/clusterseq/fake"
)

type stepClock struct {
	ms int64
}

func (c *stepClock) TimeMs() int64 {
	return c.ms
}

type fixture struct {
	t        *testing.T
	seq      *cluster.Sequencer
	appender *fake.Appender
	egress   *fake.Egress
	auth     *fake.Authenticator
	clock    *stepClock
	toggle   *concurrency.AtomicCounter
}

func testConfig() control.Config {
	cfg := control.DefaultConfig()
	cfg.ServiceCount = 0
	cfg.MaxConcurrentSessions = 4
	cfg.SessionTimeout = time.Second
	return cfg
}

func newFixture(t *testing.T, cfg control.Config) *fixture {
	t.Helper()
	fx := &fixture{
		t:        t,
		appender: &fake.Appender{},
		egress:   &fake.Egress{},
		auth:     &fake.Authenticator{},
		clock:    &stepClock{ms: 1},
		toggle:   concurrency.NewAtomicCounter(int64(control.ToggleNeutral)),
	}
	seq, err := cluster.NewSequencer(cfg, cluster.Deps{
		Appender:      fx.appender,
		Egress:        fx.egress,
		Authenticator: fx.auth,
		Clock:         fx.clock,
		ControlToggle: fx.toggle,
	})
	require.NoError(t, err)
	fx.seq = seq
	return fx
}

func (fx *fixture) tick() int {
	fx.t.Helper()
	n, err := fx.seq.DoWork()
	require.NoError(fx.t, err)
	return n
}

func (fx *fixture) connect(correlationID int64, channel string) {
	fx.t.Helper()
	require.True(fx.t, fx.seq.Ingress().Offer(protocol.IngressFrame{
		Kind:             protocol.FrameSessionConnect,
		CorrelationID:    correlationID,
		ResponseStreamID: 2,
		ResponseChannel:  channel,
	}))
}

func (fx *fixture) offer(frame protocol.IngressFrame) {
	fx.t.Helper()
	require.True(fx.t, fx.seq.Ingress().Offer(frame))
}

func (fx *fixture) ack(serviceID int64, action api.ServiceAction) {
	fx.t.Helper()
	require.True(fx.t, fx.seq.ServiceAcks().Offer(cluster.ServiceAck{ServiceID: serviceID, Action: action}))
}

// openSession drives one connect through authentication to OPEN.
func (fx *fixture) openSession(correlationID int64, channel string) {
	fx.t.Helper()
	fx.connect(correlationID, channel)
	fx.tick() // ingress -> pending
	fx.tick() // pending -> authenticated -> appended, OPEN
}

func (fx *fixture) indexMatchesRecords() {
	fx.t.Helper()
	assert.Equal(fx.t, int64(len(fx.appender.Records)), fx.seq.MessageIndex().Get(),
		"message index must match successful appends")
}

func TestSequencerStartupRequiresAllServices(t *testing.T) {
	cfg := testConfig()
	cfg.ServiceCount = 2
	fx := newFixture(t, cfg)

	require.Equal(t, cluster.StateInit, fx.seq.State())

	fx.ack(0, api.ActionReady)
	fx.tick()
	assert.Equal(t, cluster.StateInit, fx.seq.State(), "one of two services is not enough")
	assert.Equal(t, 1, fx.seq.ServicesReady())

	fx.ack(1, api.ActionReady)
	fx.tick()
	assert.Equal(t, cluster.StateActive, fx.seq.State())
	assert.Empty(t, fx.appender.Records, "startup emits no log records")
	fx.indexMatchesRecords()
}

func TestSequencerHappySessionLifecycle(t *testing.T) {
	fx := newFixture(t, testConfig())

	fx.connect(100, "x")
	fx.tick()
	pending, active, rejected := fx.seq.SessionCounts()
	assert.Equal(t, []int{1, 0, 0}, []int{pending, active, rejected})

	fx.tick()
	pending, active, _ = fx.seq.SessionCounts()
	assert.Equal(t, 0, pending)
	assert.Equal(t, 1, active)
	require.Equal(t, []protocol.RecordKind{protocol.RecordConnectedSession}, fx.appender.Kinds())
	assert.Equal(t, int64(1), fx.appender.Records[0].SessionID)
	assert.Equal(t, "x", fx.appender.Records[0].ResponseChannel)
	fx.indexMatchesRecords()

	fx.offer(protocol.IngressFrame{
		Kind:          protocol.FrameSessionMessage,
		SessionID:     1,
		CorrelationID: 101,
		Payload:       []byte{0xAB},
	})
	fx.tick()
	require.Equal(t,
		[]protocol.RecordKind{protocol.RecordConnectedSession, protocol.RecordClientMessage},
		fx.appender.Kinds())
	assert.Equal(t, []byte{0xAB}, fx.appender.Records[1].Payload)
	fx.indexMatchesRecords()

	fx.offer(protocol.IngressFrame{Kind: protocol.FrameSessionClose, SessionID: 1})
	fx.tick()
	require.Equal(t,
		[]protocol.RecordKind{
			protocol.RecordConnectedSession,
			protocol.RecordClientMessage,
			protocol.RecordClosedSession,
		},
		fx.appender.Kinds())
	assert.Equal(t, api.CloseReasonUserAction, fx.appender.Records[2].Reason())
	_, active, _ = fx.seq.SessionCounts()
	assert.Equal(t, 0, active)
	fx.indexMatchesRecords()
}

func TestSequencerSessionIDsAreNotReused(t *testing.T) {
	fx := newFixture(t, testConfig())

	fx.openSession(1, "a")
	fx.offer(protocol.IngressFrame{Kind: protocol.FrameSessionClose, SessionID: 1})
	fx.tick()

	fx.openSession(2, "b")
	last := fx.appender.Records[len(fx.appender.Records)-1]
	assert.Equal(t, protocol.RecordConnectedSession, last.Kind)
	assert.Equal(t, int64(2), last.SessionID, "ids increase monotonically, never reused")
}

func TestSequencerOverLimitConnectRejected(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentSessions = 1
	fx := newFixture(t, cfg)

	fx.openSession(1, "a")

	fx.connect(2, "b")
	fx.tick()
	assert.Len(t, fx.egress.Events, 1)
	assert.Equal(t, api.EventError, fx.egress.Events[0].Code)
	assert.Equal(t, cluster.SessionLimitMsg, fx.egress.Events[0].Detail)

	pending, active, rejected := fx.seq.SessionCounts()
	assert.Equal(t, 0, pending)
	assert.Equal(t, 1, active)
	assert.Equal(t, 0, rejected, "rejected session dropped after notification")
	fx.indexMatchesRecords()
}

func TestSequencerAuthenticationRejection(t *testing.T) {
	fx := newFixture(t, testConfig())
	fx.auth.RejectAll = true

	fx.connect(1, "a")
	fx.tick()
	fx.tick()

	require.Len(t, fx.egress.Events, 1)
	assert.Equal(t, api.EventAuthenticationRejected, fx.egress.Events[0].Code)
	assert.Equal(t, cluster.SessionRejectedMsg, fx.egress.Events[0].Detail)
	pending, active, rejected := fx.seq.SessionCounts()
	assert.Equal(t, []int{0, 0, 0}, []int{pending, active, rejected})
	assert.Empty(t, fx.appender.Records, "rejected sessions are never logged")
}

func TestSequencerRejectedSessionAgesOutWhenEgressDown(t *testing.T) {
	fx := newFixture(t, testConfig())
	fx.auth.RejectAll = true
	fx.egress.FailSends = true

	fx.connect(1, "a")
	fx.tick()
	fx.tick()
	_, _, rejected := fx.seq.SessionCounts()
	assert.Equal(t, 1, rejected)

	fx.clock.ms += 1001
	fx.tick()
	_, _, rejected = fx.seq.SessionCounts()
	assert.Equal(t, 0, rejected, "a dead client must not wedge the slot")
}

func TestSequencerIdleTimeout(t *testing.T) {
	fx := newFixture(t, testConfig())
	fx.openSession(1, "a")

	fx.clock.ms += 1001
	fx.tick()

	require.Len(t, fx.egress.Events, 1)
	assert.Equal(t, api.EventError, fx.egress.Events[0].Code)
	assert.Equal(t, cluster.SessionTimeoutMsg, fx.egress.Events[0].Detail)

	kinds := fx.appender.Kinds()
	require.Equal(t, protocol.RecordClosedSession, kinds[len(kinds)-1])
	assert.Equal(t, api.CloseReasonTimeout, fx.appender.Records[len(fx.appender.Records)-1].Reason())
	_, active, _ := fx.seq.SessionCounts()
	assert.Equal(t, 0, active)
	fx.indexMatchesRecords()
}

func TestSequencerTimeoutAppendRefusalDefersClose(t *testing.T) {
	fx := newFixture(t, testConfig())
	fx.openSession(1, "a")

	fx.clock.ms += 1001
	fx.appender.RefuseAll = true
	fx.tick()
	_, active, _ := fx.seq.SessionCounts()
	assert.Equal(t, 1, active, "close record refused, session stays for retry")

	fx.appender.RefuseAll = false
	fx.tick()
	_, active, _ = fx.seq.SessionCounts()
	assert.Equal(t, 0, active)
	last := fx.appender.Records[len(fx.appender.Records)-1]
	assert.Equal(t, api.CloseReasonTimeout, last.Reason())
	fx.indexMatchesRecords()
}

func TestSequencerKeepAliveRefreshesActivity(t *testing.T) {
	fx := newFixture(t, testConfig())
	fx.openSession(1, "a")

	fx.clock.ms += 900
	fx.offer(protocol.IngressFrame{Kind: protocol.FrameKeepAlive, SessionID: 1, CorrelationID: 5})
	fx.tick()

	fx.clock.ms += 900
	fx.tick()
	_, active, _ := fx.seq.SessionCounts()
	assert.Equal(t, 1, active, "keepalive must reset the timeout window")
}

func TestSequencerPromotionAppendRetry(t *testing.T) {
	fx := newFixture(t, testConfig())

	fx.connect(1, "a")
	fx.tick()

	// refuse both the promotion append and the same-tick retry
	fx.appender.Refusals = 2
	fx.tick()
	pending, active, _ := fx.seq.SessionCounts()
	assert.Equal(t, 0, pending)
	assert.Equal(t, 1, active)
	assert.Empty(t, fx.appender.Records)

	fx.tick()
	require.Equal(t, []protocol.RecordKind{protocol.RecordConnectedSession}, fx.appender.Kinds())
	fx.indexMatchesRecords()

	// the session is fully OPEN: messages sequence normally
	fx.offer(protocol.IngressFrame{Kind: protocol.FrameSessionMessage, SessionID: 1, CorrelationID: 9, Payload: []byte{1}})
	fx.tick()
	assert.Equal(t, protocol.RecordClientMessage, fx.appender.Kinds()[1])
}

func TestSequencerPendingSessionTimesOutSilently(t *testing.T) {
	fx := newFixture(t, testConfig())
	fx.auth.Hold = true

	fx.connect(1, "a")
	fx.tick()
	fx.clock.ms += 1001
	fx.tick()

	pending, _, _ := fx.seq.SessionCounts()
	assert.Equal(t, 0, pending)
	assert.Empty(t, fx.egress.Events, "pre-auth timeout sends no event")
	assert.Empty(t, fx.appender.Records)
}

func TestSequencerSnapshotRoundTrip(t *testing.T) {
	fx := newFixture(t, testConfig())

	fx.toggle.Set(int64(control.ToggleSnapshot))
	fx.tick()
	assert.Equal(t, cluster.StateSnapshot, fx.seq.State())
	assert.Equal(t, int64(control.ToggleNeutral), fx.toggle.Get(), "toggle reset on success")
	require.Equal(t, []protocol.RecordKind{protocol.RecordActionRequest}, fx.appender.Kinds())
	assert.Equal(t, api.ActionSnapshot, fx.appender.Records[0].Action())
	fx.indexMatchesRecords()

	fx.ack(0, api.ActionSnapshot)
	fx.tick()
	assert.Equal(t, cluster.StateActive, fx.seq.State())
}

func TestSequencerSnapshotAppendRefusalRetries(t *testing.T) {
	fx := newFixture(t, testConfig())

	fx.appender.Refusals = 1
	fx.toggle.Set(int64(control.ToggleSnapshot))
	fx.tick()
	assert.Equal(t, cluster.StateActive, fx.seq.State(), "state unchanged on refusal")
	assert.Equal(t, int64(control.ToggleSnapshot), fx.toggle.Get(), "toggle survives for retry")
	assert.Empty(t, fx.appender.Records)

	fx.tick()
	assert.Equal(t, cluster.StateSnapshot, fx.seq.State())
	assert.Equal(t, int64(control.ToggleNeutral), fx.toggle.Get())
	fx.indexMatchesRecords()
}

func TestSequencerSuspendResume(t *testing.T) {
	fx := newFixture(t, testConfig())

	fx.toggle.Set(int64(control.ToggleSuspend))
	fx.tick()
	assert.Equal(t, cluster.StateSuspended, fx.seq.State())
	assert.Empty(t, fx.appender.Records, "suspend is not logged")

	// ingress is not drained while suspended
	fx.connect(1, "a")
	fx.tick()
	pending, _, _ := fx.seq.SessionCounts()
	assert.Equal(t, 0, pending)

	fx.toggle.Set(int64(control.ToggleResume))
	fx.tick()
	assert.Equal(t, cluster.StateActive, fx.seq.State())
	pending, _, _ = fx.seq.SessionCounts()
	assert.Equal(t, 1, pending, "buffered connect admitted on the resume tick")
}

func TestSequencerShutdownSignalsBarrier(t *testing.T) {
	fx := newFixture(t, testConfig())

	fx.toggle.Set(int64(control.ToggleShutdown))
	fx.tick()
	assert.Equal(t, cluster.StateShutdown, fx.seq.State())
	assert.Equal(t, api.ActionShutdown, fx.appender.Records[0].Action())

	fx.ack(0, api.ActionShutdown)
	fx.tick()
	assert.Equal(t, cluster.StateClosed, fx.seq.State())
	select {
	case <-fx.seq.Barrier().Signalled():
	default:
		t.Fatal("barrier must be signalled on shutdown ack")
	}
}

func TestSequencerAbortToggleIsSticky(t *testing.T) {
	fx := newFixture(t, testConfig())

	fx.toggle.Set(int64(control.ToggleAbort))
	fx.tick()
	assert.Equal(t, cluster.StateAbort, fx.seq.State())
	assert.Equal(t, int64(control.ToggleAbort), fx.toggle.Get(), "abort toggle is never reset")

	// further ticks before the ack are harmless
	fx.tick()
	assert.Equal(t, cluster.StateAbort, fx.seq.State())

	fx.ack(0, api.ActionAbort)
	fx.tick()
	assert.Equal(t, cluster.StateClosed, fx.seq.State())
	select {
	case <-fx.seq.Barrier().Signalled():
	default:
		t.Fatal("barrier must be signalled on abort ack")
	}
}

func TestSequencerInvalidToggleIsFatal(t *testing.T) {
	fx := newFixture(t, testConfig())

	fx.toggle.Set(99)
	_, err := fx.seq.DoWork()
	assert.ErrorIs(t, err, api.ErrInvalidToggle)
}

func TestSequencerResumeWhileActiveIsFatal(t *testing.T) {
	fx := newFixture(t, testConfig())

	fx.toggle.Set(int64(control.ToggleResume))
	_, err := fx.seq.DoWork()
	assert.ErrorIs(t, err, api.ErrInvalidToggle)
}

func TestSequencerUnexpectedReadyAckIsFatal(t *testing.T) {
	fx := newFixture(t, testConfig())

	fx.ack(0, api.ActionReady)
	_, err := fx.seq.DoWork()
	assert.ErrorIs(t, err, api.ErrUnexpectedAck)
}

func TestServicesReadyNotResetBySnapshot(t *testing.T) {
	cfg := testConfig()
	cfg.ServiceCount = 2
	fx := newFixture(t, cfg)

	fx.ack(0, api.ActionReady)
	fx.ack(1, api.ActionReady)
	fx.tick()
	require.Equal(t, cluster.StateActive, fx.seq.State())

	fx.toggle.Set(int64(control.ToggleSnapshot))
	fx.tick()
	fx.ack(0, api.ActionSnapshot)
	fx.tick()
	assert.Equal(t, cluster.StateActive, fx.seq.State())
	assert.Equal(t, 2, fx.seq.ServicesReady(), "ready count survives a snapshot round trip")
}

func TestSequencerIdleTickDoesNoWork(t *testing.T) {
	fx := newFixture(t, testConfig())

	assert.Equal(t, 0, fx.tick())
	assert.Equal(t, 0, fx.tick(), "repeated NEUTRAL toggles are a no-op")
	assert.Empty(t, fx.appender.Records)
	assert.Equal(t, int64(0), fx.seq.MessageIndex().Get())
}

func TestSequencerMessageForUnknownSessionContinues(t *testing.T) {
	fx := newFixture(t, testConfig())

	fx.offer(protocol.IngressFrame{Kind: protocol.FrameSessionMessage, SessionID: 42, CorrelationID: 1})
	fx.tick()
	assert.Equal(t, 0, fx.seq.Ingress().Pending(), "unknown session advances past the fragment")
	assert.Empty(t, fx.appender.Records)
}

func TestSequencerContainerExclusivity(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentSessions = 2
	fx := newFixture(t, cfg)
	fx.egress.FailSends = true // keep rejected sessions resident

	fx.openSession(1, "a")
	fx.connect(2, "b")
	fx.connect(3, "c")
	fx.tick()

	pending, active, rejected := fx.seq.SessionCounts()
	assert.Equal(t, 1, pending)
	assert.Equal(t, 1, active)
	assert.Equal(t, 1, rejected)
	assert.LessOrEqual(t, pending+active, cfg.MaxConcurrentSessions)
}
