// File: cluster/proxy.go
// Package cluster implements the authenticator's session capability.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cluster

import "github.com/momentics/clusterseq/api"

// Ensure compile-time interface compliance.
var _ api.SessionProxy = (*sessionProxy)(nil)

// sessionProxy is rebound to one pending session before each
// authenticator upcall. It is only valid for the duration of the call.
type sessionProxy struct {
	egress  api.EgressPublisher
	session *Session
}

func (p *sessionProxy) bind(session *Session) {
	p.session = session
}

// SessionID identifies the session being processed.
func (p *sessionProxy) SessionID() int64 {
	return p.session.ID()
}

// Challenge sends a challenge payload; the session moves to CHALLENGED
// only once the send succeeds.
func (p *sessionProxy) Challenge(challengeData []byte) bool {
	if p.egress.SendChallenge(p.session, challengeData) {
		p.session.setState(SessionChallenged)
		return true
	}
	return false
}

// Authenticate marks the session authenticated unless already rejected.
func (p *sessionProxy) Authenticate() {
	if p.session.State() != SessionRejected {
		p.session.setState(SessionAuthenticated)
	}
}

// Reject marks the session as failed authentication.
func (p *sessionProxy) Reject() {
	p.session.setState(SessionRejected)
}
