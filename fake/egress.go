// File: fake/egress.go
// Package fake provides test doubles for the sequencing contracts.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import "github.com/momentics/clusterseq/api"

// Ensure compile-time interface compliance.
var _ api.EgressPublisher = (*Egress)(nil)

// EgressCall is one recorded event send.
type EgressCall struct {
	SessionID int64
	Code      api.EventCode
	Detail    string
}

// Egress records sent events; connectivity and send failures are
// scripted through its fields.
type Egress struct {
	Down      bool // Connected reports false
	FailSends bool // every send refuses

	Events     []EgressCall
	Challenges [][]byte
}

// Connected reports scripted connectivity.
func (f *Egress) Connected(session api.Session) bool {
	return !f.Down
}

// SendEvent records the event unless sends are scripted to fail.
func (f *Egress) SendEvent(session api.Session, code api.EventCode, detail string) bool {
	if f.FailSends {
		return false
	}
	f.Events = append(f.Events, EgressCall{SessionID: session.ID(), Code: code, Detail: detail})
	return true
}

// SendChallenge records the challenge payload unless scripted to fail.
func (f *Egress) SendChallenge(session api.Session, challengeData []byte) bool {
	if f.FailSends {
		return false
	}
	f.Challenges = append(f.Challenges, challengeData)
	return true
}
