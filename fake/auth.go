// File: fake/auth.go
// Package fake provides test doubles for the sequencing contracts.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import "github.com/momentics/clusterseq/api"

// Ensure compile-time interface compliance.
var _ api.Authenticator = (*Authenticator)(nil)

// Authenticator is a scriptable authenticator. By default it
// authenticates every session on the first connected pass.
type Authenticator struct {
	RejectAll bool // reject instead of authenticate
	Hold      bool // take no decision, leaving sessions pending

	ConnectRequests   []int64
	ChallengeAnswers  []int64
	ProcessedSessions []int64
}

// OnConnectRequest records the connect.
func (f *Authenticator) OnConnectRequest(sessionID int64, credentialData []byte, nowMs int64) {
	f.ConnectRequests = append(f.ConnectRequests, sessionID)
}

// OnChallengeResponse records the answer.
func (f *Authenticator) OnChallengeResponse(sessionID int64, credentialData []byte, nowMs int64) {
	f.ChallengeAnswers = append(f.ChallengeAnswers, sessionID)
}

// OnConnectedSession applies the scripted decision.
func (f *Authenticator) OnConnectedSession(proxy api.SessionProxy, nowMs int64) {
	f.ProcessedSessions = append(f.ProcessedSessions, proxy.SessionID())
	f.decide(proxy)
}

// OnChallengedSession applies the scripted decision.
func (f *Authenticator) OnChallengedSession(proxy api.SessionProxy, nowMs int64) {
	f.decide(proxy)
}

func (f *Authenticator) decide(proxy api.SessionProxy) {
	switch {
	case f.Hold:
	case f.RejectAll:
		proxy.Reject()
	default:
		proxy.Authenticate()
	}
}
