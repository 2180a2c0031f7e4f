// File: cluster/auth.go
// Package cluster ships the built-in authenticators.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Two implementations cover the common deployments: AllowAll for
// closed networks, and a shared-token challenge/response flow for
// everything else. Both run entirely on the agent thread.

package cluster

import (
	"crypto/subtle"

	"github.com/google/uuid"

	"github.com/momentics/clusterseq/api"
)

// Ensure compile-time interface compliance.
var (
	_ api.Authenticator = AllowAllAuthenticator{}
	_ api.Authenticator = (*ChallengeResponseAuthenticator)(nil)
)

// AllowAllAuthenticator authenticates every session immediately.
type AllowAllAuthenticator struct{}

// OnConnectRequest ignores connect credentials.
func (AllowAllAuthenticator) OnConnectRequest(sessionID int64, credentialData []byte, nowMs int64) {
}

// OnChallengeResponse ignores challenge answers.
func (AllowAllAuthenticator) OnChallengeResponse(sessionID int64, credentialData []byte, nowMs int64) {
}

// OnConnectedSession authenticates unconditionally.
func (AllowAllAuthenticator) OnConnectedSession(proxy api.SessionProxy, nowMs int64) {
	proxy.Authenticate()
}

// OnChallengedSession authenticates unconditionally.
func (AllowAllAuthenticator) OnChallengedSession(proxy api.SessionProxy, nowMs int64) {
	proxy.Authenticate()
}

// ChallengeResponseAuthenticator validates a shared token. A connect
// carrying the token is authenticated directly; otherwise the client
// is challenged with a one-time nonce and must answer with the token.
type ChallengeResponseAuthenticator struct {
	token      []byte
	authorized map[int64]bool
	answers    map[int64][]byte
	nonces     map[int64]string
}

// NewChallengeResponseAuthenticator builds an authenticator around a
// shared token.
func NewChallengeResponseAuthenticator(token []byte) *ChallengeResponseAuthenticator {
	return &ChallengeResponseAuthenticator{
		token:      token,
		authorized: make(map[int64]bool),
		answers:    make(map[int64][]byte),
		nonces:     make(map[int64]string),
	}
}

func (a *ChallengeResponseAuthenticator) tokenMatches(credentialData []byte) bool {
	if len(a.token) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(a.token, credentialData) == 1
}

// OnConnectRequest pre-authorizes connects that already carry the token.
func (a *ChallengeResponseAuthenticator) OnConnectRequest(sessionID int64, credentialData []byte, nowMs int64) {
	if a.tokenMatches(credentialData) {
		a.authorized[sessionID] = true
	}
}

// OnChallengeResponse stores the client's answer for the next process pass.
func (a *ChallengeResponseAuthenticator) OnChallengeResponse(sessionID int64, credentialData []byte, nowMs int64) {
	a.answers[sessionID] = credentialData
}

// OnConnectedSession authenticates pre-authorized sessions and
// challenges the rest with a fresh nonce.
func (a *ChallengeResponseAuthenticator) OnConnectedSession(proxy api.SessionProxy, nowMs int64) {
	id := proxy.SessionID()
	if a.authorized[id] {
		a.forget(id)
		proxy.Authenticate()
		return
	}
	if _, pending := a.nonces[id]; pending {
		return // challenge already in flight
	}
	nonce := uuid.NewString()
	if proxy.Challenge(append([]byte("challenge:"), nonce...)) {
		a.nonces[id] = nonce
	}
}

// OnChallengedSession resolves a stored answer against the token.
func (a *ChallengeResponseAuthenticator) OnChallengedSession(proxy api.SessionProxy, nowMs int64) {
	id := proxy.SessionID()
	answer, ok := a.answers[id]
	if !ok {
		return // still waiting on the client
	}
	if a.tokenMatches(answer) {
		a.forget(id)
		proxy.Authenticate()
		return
	}
	a.forget(id)
	proxy.Reject()
}

func (a *ChallengeResponseAuthenticator) forget(sessionID int64) {
	delete(a.authorized, sessionID)
	delete(a.answers, sessionID)
	delete(a.nonces, sessionID)
}
