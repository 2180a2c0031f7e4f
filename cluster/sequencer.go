// File: cluster/sequencer.go
// Package cluster implements the Sequencer agent.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The Sequencer is the single-threaded serialization point of the
// cluster leader. Ingress frames, timer expiries, operator toggle
// commands and service acknowledgements flow through one tick loop
// that appends records to the replicated log in a fixed sub-step
// order, making the log a deterministic function of input arrival
// order and tick boundaries. Nothing here blocks; every refusal is
// retried on a later tick.

package cluster

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/momentics/clusterseq/api"
	"github.com/momentics/clusterseq/control"
	"github.com/momentics/clusterseq/core/clock"
	"github.com/momentics/clusterseq/core/concurrency"
)

// Ensure compile-time interface compliance.
var _ api.Agent = (*Sequencer)(nil)

// State is the operational state of the sequencer node.
type State int32

const (
	StateInit State = iota
	StateActive
	StateSuspended
	StateSnapshot
	StateShutdown
	StateAbort
	StateClosed
)

// String returns the state mnemonic.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateActive:
		return "ACTIVE"
	case StateSuspended:
		return "SUSPENDED"
	case StateSnapshot:
		return "SNAPSHOT"
	case StateShutdown:
		return "SHUTDOWN"
	case StateAbort:
		return "ABORT"
	case StateClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// Message details sent with rejected-session egress events.
const (
	SessionLimitMsg    = "Concurrent session limit"
	SessionTimeoutMsg  = "Session inactive"
	SessionRejectedMsg = "Session failed authentication"
)

// Deps wires the sequencer to its collaborators. Appender and Egress
// are required; everything else has a default.
type Deps struct {
	Appender      api.LogAppender
	Egress        api.EgressPublisher
	Authenticator api.Authenticator
	Clock         clock.EpochClock
	ControlToggle api.Counter
	MessageIndex  api.Counter
	Barrier       *concurrency.ShutdownBarrier
	// Conductor, when set, is the ambient messaging client owned by
	// this agent: it is invoked once per tick and its lifecycle covers
	// teardown of the adapters.
	Conductor api.Agent
	Logger    zerolog.Logger
}

// Sequencer imposes a total order on cluster input events.
type Sequencer struct {
	sessionTimeoutMs int64
	maxSessions      int
	serviceCount     int

	epochClock  clock.EpochClock
	cachedClock *clock.CachedClock

	appender      api.LogAppender
	egress        api.EgressPublisher
	authenticator api.Authenticator
	conductor     api.Agent

	timers    *TimerService
	ingress   *IngressAdapter
	consensus *ConsensusModuleAdapter

	messageIndex  api.Counter
	controlToggle api.Counter
	barrier       *concurrency.ShutdownBarrier

	nextSessionID int64
	servicesReady int
	sessionByID   map[int64]*Session
	pending       []*Session
	rejected      []*Session
	proxy         sessionProxy
	state         State

	log zerolog.Logger
}

// NewSequencer builds a sequencer from an immutable configuration.
func NewSequencer(cfg control.Config, deps Deps) (*Sequencer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Appender == nil {
		return nil, fmt.Errorf("%w: appender is required", api.ErrInvalidArgument)
	}
	if deps.Egress == nil {
		return nil, fmt.Errorf("%w: egress publisher is required", api.ErrInvalidArgument)
	}
	if deps.Authenticator == nil {
		deps.Authenticator = AllowAllAuthenticator{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.SystemClock{}
	}
	if deps.ControlToggle == nil {
		deps.ControlToggle = concurrency.NewAtomicCounter(int64(control.ToggleNeutral))
	}
	if deps.MessageIndex == nil {
		deps.MessageIndex = concurrency.NewAtomicCounter(0)
	}
	if deps.Barrier == nil {
		deps.Barrier = concurrency.NewShutdownBarrier()
	}

	s := &Sequencer{
		sessionTimeoutMs: cfg.SessionTimeout.Milliseconds(),
		maxSessions:      cfg.MaxConcurrentSessions,
		serviceCount:     cfg.ServiceCount,
		epochClock:       deps.Clock,
		cachedClock:      clock.NewCachedClock(),
		appender:         deps.Appender,
		egress:           deps.Egress,
		authenticator:    deps.Authenticator,
		conductor:        deps.Conductor,
		messageIndex:     deps.MessageIndex,
		controlToggle:    deps.ControlToggle,
		barrier:          deps.Barrier,
		nextSessionID:    1,
		sessionByID:      make(map[int64]*Session),
		proxy:            sessionProxy{egress: deps.Egress},
		state:            StateInit,
		log:              deps.Logger,
	}
	s.timers = NewTimerService(s.OnTimerEvent)
	s.ingress = newIngressAdapter(s, cfg.IngressCapacity)
	s.consensus = newConsensusModuleAdapter(s, cfg.AckCapacity)

	if s.serviceCount == 0 {
		s.transition(StateActive)
	}
	return s, nil
}

// RoleName identifies the agent for logging and metrics.
func (s *Sequencer) RoleName() string {
	return "sequencer"
}

// Ingress returns the adapter transport threads offer frames into.
func (s *Sequencer) Ingress() *IngressAdapter {
	return s.ingress
}

// ServiceAcks returns the adapter service threads offer acks into.
func (s *Sequencer) ServiceAcks() *ConsensusModuleAdapter {
	return s.consensus
}

// Barrier returns the shutdown barrier signalled on SHUTDOWN/ABORT ack.
func (s *Sequencer) Barrier() *concurrency.ShutdownBarrier {
	return s.barrier
}

// State returns the current operational state.
func (s *Sequencer) State() State {
	return s.state
}

// MessageIndex returns the log position counter.
func (s *Sequencer) MessageIndex() api.Counter {
	return s.messageIndex
}

// SessionCounts returns the sizes of the three session containers.
func (s *Sequencer) SessionCounts() (pending, active, rejected int) {
	return len(s.pending), len(s.sessionByID), len(s.rejected)
}

// ServicesReady returns the number of services that have acked READY.
func (s *Sequencer) ServicesReady() int {
	return s.servicesReady
}

// DoWork performs one tick: refresh the cached clock, service the
// ambient conductor, apply the control toggle, poll service acks, and
// while ACTIVE advance pending sessions, fire timers, drain ingress
// and age sessions, then flush rejected-session notifications.
func (s *Sequencer) DoWork() (int, error) {
	workCount := 0

	s.cachedClock.Update(s.epochClock.TimeMs())
	nowMs := s.cachedClock.TimeMs()

	if s.conductor != nil {
		n, err := s.conductor.DoWork()
		workCount += n
		if err != nil {
			return workCount, err
		}
	}

	n, err := s.checkControlToggle(nowMs)
	workCount += n
	if err != nil {
		return workCount, err
	}

	n, err = s.consensus.Poll()
	workCount += n
	if err != nil {
		return workCount, err
	}

	if s.state == StateActive {
		workCount += s.processPendingSessions(nowMs)
		workCount += s.timers.Poll(nowMs)
		workCount += s.ingress.Poll()
		workCount += s.checkSessions(nowMs)
	}

	s.processRejectedSessions(nowMs)

	return workCount, nil
}

// OnClose tears down sessions and adapters unless the ambient client
// owns its own lifecycle.
func (s *Sequencer) OnClose() {
	if s.conductor != nil {
		return
	}
	for _, session := range s.sessionByID {
		session.Close()
	}
	s.ingress.Close()
	s.consensus.Close()
}

// OnServiceAck handles a downstream service acknowledgement.
func (s *Sequencer) OnServiceAck(serviceID int64, action api.ServiceAction) error {
	switch action {
	case api.ActionReady:
		if s.state != StateInit {
			return fmt.Errorf("%w: READY in state %s", api.ErrUnexpectedAck, s.state)
		}
		if s.servicesReady >= s.serviceCount {
			return fmt.Errorf("%w: %d services", api.ErrServiceOverflow, s.servicesReady)
		}
		s.servicesReady++
		if s.servicesReady == s.serviceCount {
			s.transition(StateActive)
		}
	case api.ActionSnapshot:
		if s.state == StateSnapshot {
			s.transition(StateActive)
		}
	case api.ActionShutdown:
		if s.state == StateShutdown {
			s.transition(StateClosed)
			s.barrier.Signal()
		}
	case api.ActionAbort:
		if s.state == StateAbort {
			s.transition(StateClosed)
			s.barrier.Signal()
		}
	default:
		return fmt.Errorf("%w: action %d from service %d", api.ErrUnexpectedAck, action, serviceID)
	}
	return nil
}

// OnSessionConnect admits a new session or rejects it over the limit.
func (s *Sequencer) OnSessionConnect(
	correlationID int64,
	responseStreamID int32,
	responseChannel string,
	credentialData []byte,
) {
	nowMs := s.cachedClock.TimeMs()
	sessionID := s.nextSessionID
	s.nextSessionID++
	session := NewSession(sessionID, responseStreamID, responseChannel)
	session.Activity(nowMs, correlationID)

	s.authenticator.OnConnectRequest(sessionID, credentialData, nowMs)

	if len(s.pending)+len(s.sessionByID) < s.maxSessions {
		s.pending = append(s.pending, session)
	} else {
		s.rejected = append(s.rejected, session)
	}
}

// OnSessionClose closes a session on client request.
func (s *Sequencer) OnSessionClose(clusterSessionID int64) {
	session, ok := s.sessionByID[clusterSessionID]
	if !ok {
		return
	}
	session.Close()
	if s.appendClosedSession(session, api.CloseReasonUserAction, s.cachedClock.TimeMs()) {
		delete(s.sessionByID, clusterSessionID)
	}
}

// OnSessionMessage sequences a client message. CONTINUE means the
// message was recorded or the session is gone; ABORT means the session
// is not yet OPEN or the log refused, and the same fragment must be
// re-offered.
func (s *Sequencer) OnSessionMessage(
	clusterSessionID, correlationID int64,
	payload []byte,
) api.ControlledAction {
	nowMs := s.cachedClock.TimeMs()
	session, ok := s.sessionByID[clusterSessionID]
	if !ok || session.State() == SessionTimedOut || session.State() == SessionClosed {
		return api.ControlledContinue
	}

	if session.State() == SessionOpen &&
		s.appender.AppendMessage(clusterSessionID, correlationID, payload, nowMs) {
		s.messageIndex.Increment()
		session.Activity(nowMs, correlationID)
		return api.ControlledContinue
	}

	return api.ControlledAbort
}

// OnKeepAlive refreshes a session's activity timestamp.
func (s *Sequencer) OnKeepAlive(correlationID, clusterSessionID int64) {
	if session, ok := s.sessionByID[clusterSessionID]; ok {
		session.Activity(s.cachedClock.TimeMs(), correlationID)
	}
}

// OnChallengeResponse routes a challenge answer to the authenticator
// if the session is still pending and challenged.
func (s *Sequencer) OnChallengeResponse(correlationID, clusterSessionID int64, credentialData []byte) {
	for i := len(s.pending) - 1; i >= 0; i-- {
		session := s.pending[i]
		if session.ID() == clusterSessionID && session.State() == SessionChallenged {
			nowMs := s.cachedClock.TimeMs()
			session.Activity(nowMs, correlationID)
			s.authenticator.OnChallengeResponse(clusterSessionID, credentialData, nowMs)
			break
		}
	}
}

// OnTimerEvent appends a timer expiry record; false keeps the timer
// scheduled.
func (s *Sequencer) OnTimerEvent(correlationID, nowMs int64) bool {
	if s.appender.AppendTimerEvent(correlationID, nowMs) {
		s.messageIndex.Increment()
		return true
	}
	return false
}

// OnScheduleTimer registers or replaces a deadline timer.
func (s *Sequencer) OnScheduleTimer(correlationID, deadlineMs int64) {
	s.timers.ScheduleTimer(correlationID, deadlineMs)
}

// OnCancelTimer cancels a deadline timer.
func (s *Sequencer) OnCancelTimer(correlationID int64) {
	s.timers.CancelTimer(correlationID)
}

func (s *Sequencer) transition(to State) {
	s.log.Info().Stringer("from", s.state).Stringer("to", to).Msg("sequencer state")
	s.state = to
}

func (s *Sequencer) resetToggle(code control.ToggleCode) {
	s.controlToggle.CompareAndSet(int64(code), int64(control.ToggleNeutral))
}

// checkControlToggle applies the first matching toggle rule. A failed
// append leaves state and toggle unchanged for the next tick; a toggle
// that matches no rule is a fatal contract violation.
func (s *Sequencer) checkControlToggle(nowMs int64) (int, error) {
	code := control.ToggleCode(s.controlToggle.Get())

	if code == control.ToggleNeutral {
		return 0, nil
	}

	switch {
	case code == control.ToggleAbort:
		if s.state == StateAbort {
			return 0, nil // appended, awaiting the service ack
		}
		if s.appendActionRequest(api.ActionAbort, nowMs) {
			s.transition(StateAbort)
			return 1, nil
		}
		return 0, nil

	case code == control.ToggleSnapshot && s.state == StateActive:
		if s.appendActionRequest(api.ActionSnapshot, nowMs) {
			s.transition(StateSnapshot)
			s.resetToggle(code)
			return 1, nil
		}
		return 0, nil

	case code == control.ToggleShutdown && s.state == StateActive:
		if s.appendActionRequest(api.ActionShutdown, nowMs) {
			s.transition(StateShutdown)
			s.resetToggle(code)
			return 1, nil
		}
		return 0, nil

	case code == control.ToggleSuspend && s.state == StateActive:
		s.transition(StateSuspended)
		s.resetToggle(code)
		return 1, nil

	case code == control.ToggleResume && s.state == StateSuspended:
		s.transition(StateActive)
		s.resetToggle(code)
		return 1, nil
	}

	return 0, fmt.Errorf("%w: %s in state %s", api.ErrInvalidToggle, code, s.state)
}

// processPendingSessions advances authentication for each pending
// session, newest first so removal is a swap with the tail.
func (s *Sequencer) processPendingSessions(nowMs int64) int {
	workCount := 0

	for i := len(s.pending) - 1; i >= 0; i-- {
		session := s.pending[i]

		if st := session.State(); st == SessionInit || st == SessionConnected {
			if s.egress.Connected(session) {
				session.setState(SessionConnected)
				s.proxy.bind(session)
				s.authenticator.OnConnectedSession(&s.proxy, nowMs)
			}
		}

		if session.State() == SessionChallenged && s.egress.Connected(session) {
			s.proxy.bind(session)
			s.authenticator.OnChallengedSession(&s.proxy, nowMs)
		}

		switch session.State() {
		case SessionAuthenticated:
			s.removePending(i)
			session.SetTimeOfLastActivityMs(nowMs)
			s.sessionByID[session.ID()] = session
			if !s.appendConnectedSession(session, nowMs) {
				// retried from the active map by checkSessions
				session.setState(SessionConnected)
			}
			workCount++

		case SessionRejected:
			s.removePending(i)
			s.rejected = append(s.rejected, session)

		default:
			if nowMs > session.TimeOfLastActivityMs()+s.sessionTimeoutMs {
				s.removePending(i)
				session.Close()
			}
		}
	}

	return workCount
}

// processRejectedSessions drains best-effort rejection notices. A
// session leaves once the event is delivered or the timeout elapses so
// a disconnected client cannot wedge the slot.
func (s *Sequencer) processRejectedSessions(nowMs int64) {
	for i := len(s.rejected) - 1; i >= 0; i-- {
		session := s.rejected[i]

		eventCode := api.EventError
		detail := SessionLimitMsg
		if session.State() == SessionRejected {
			eventCode = api.EventAuthenticationRejected
			detail = SessionRejectedMsg
		}

		if s.egress.SendEvent(session, eventCode, detail) ||
			nowMs > session.TimeOfLastActivityMs()+s.sessionTimeoutMs {
			s.removeRejected(i)
			session.Close()
		}
	}
}

// checkSessions ages the active map and retries deferred appends.
func (s *Sequencer) checkSessions(nowMs int64) int {
	workCount := 0

	for id, session := range s.sessionByID {
		st := session.State()

		if nowMs > session.TimeOfLastActivityMs()+s.sessionTimeoutMs {
			switch st {
			case SessionOpen:
				s.egress.SendEvent(session, api.EventError, SessionTimeoutMsg)
				if s.appendClosedSession(session, api.CloseReasonTimeout, nowMs) {
					delete(s.sessionByID, id)
					workCount++
				} else {
					session.setState(SessionTimedOut)
				}

			case SessionTimedOut, SessionClosed:
				reason := api.CloseReasonUserAction
				if st == SessionTimedOut {
					reason = api.CloseReasonTimeout
				}
				if s.appendClosedSession(session, reason, nowMs) {
					delete(s.sessionByID, id)
					workCount++
				}

			default:
				session.Close()
				delete(s.sessionByID, id)
			}
		} else if st == SessionConnected {
			if s.appendConnectedSession(session, nowMs) {
				workCount++
			}
		}
	}

	return workCount
}

func (s *Sequencer) appendActionRequest(action api.ServiceAction, nowMs int64) bool {
	if s.appender.AppendActionRequest(action, nowMs) {
		s.messageIndex.Increment()
		return true
	}
	return false
}

func (s *Sequencer) appendConnectedSession(session *Session, nowMs int64) bool {
	if s.appender.AppendConnectedSession(session, nowMs) {
		session.setState(SessionOpen)
		s.messageIndex.Increment()
		s.log.Debug().Int64("sessionId", session.ID()).Msg("session open")
		return true
	}
	return false
}

func (s *Sequencer) appendClosedSession(session *Session, reason api.CloseReason, nowMs int64) bool {
	if s.appender.AppendClosedSession(session, reason, nowMs) {
		s.messageIndex.Increment()
		session.Close()
		s.log.Debug().Int64("sessionId", session.ID()).Stringer("reason", reason).Msg("session closed")
		return true
	}
	return false
}

func (s *Sequencer) removePending(i int) {
	last := len(s.pending) - 1
	s.pending[i] = s.pending[last]
	s.pending[last] = nil
	s.pending = s.pending[:last]
}

func (s *Sequencer) removeRejected(i int) {
	last := len(s.rejected) - 1
	s.rejected[i] = s.rejected[last]
	s.rejected[last] = nil
	s.rejected = s.rejected[:last]
}
