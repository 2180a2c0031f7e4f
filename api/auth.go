// File: api/auth.go
// Package api defines the Authenticator and SessionProxy contracts.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The sequencer treats authentication as opaque: a pluggable
// Authenticator observes connect requests and challenge responses, and
// drives each pending session through a capability proxy scoped to the
// upcall. No long-lived back-reference to the sequencer is handed out.

package api

// SessionProxy is the capability an Authenticator uses to act on one
// pending session. It is only valid for the duration of the upcall.
type SessionProxy interface {
	// SessionID identifies the session being processed.
	SessionID() int64

	// Challenge sends a challenge payload to the client; false means
	// the egress channel refused and the challenge stays pending.
	Challenge(challengeData []byte) bool

	// Authenticate marks the session authenticated.
	Authenticate()

	// Reject marks the session as failed authentication.
	Reject()
}

// Authenticator drives sessions from connected through challenged to
// authenticated or rejected. All upcalls run on the agent thread.
type Authenticator interface {
	// OnConnectRequest observes the credentials of a new connect.
	OnConnectRequest(sessionID int64, credentialData []byte, nowMs int64)

	// OnChallengeResponse observes a challenge answer for a session.
	OnChallengeResponse(sessionID int64, credentialData []byte, nowMs int64)

	// OnConnectedSession processes a session whose response channel is
	// connected and which is not yet challenged.
	OnConnectedSession(proxy SessionProxy, nowMs int64)

	// OnChallengedSession processes a session awaiting its challenge
	// round trip.
	OnChallengedSession(proxy SessionProxy, nowMs int64)
}
