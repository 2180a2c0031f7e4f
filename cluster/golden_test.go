// File: cluster/golden_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pins the exact log record sequence of a representative session run
// against a golden file.

package cluster_test

import (
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/momentics/clusterseq/cluster"
	"github.com/momentics/clusterseq/control"
	"github.com/momentics/clusterseq/core/concurrency"
	"github.com/momentics/clusterseq/core/protocol"
	"github.com/momentics/clusterseq/fake"
)

func TestLogSequenceGolden(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.ServiceCount = 0
	cfg.SessionTimeout = time.Second

	appender := cluster.NewLogBuffer(64)
	clk := &stepClock{ms: 100}
	toggle := concurrency.NewAtomicCounter(int64(control.ToggleNeutral))
	seq, err := cluster.NewSequencer(cfg, cluster.Deps{
		Appender:      appender,
		Egress:        &fake.Egress{},
		Authenticator: &fake.Authenticator{},
		Clock:         clk,
		ControlToggle: toggle,
	})
	require.NoError(t, err)

	step := func() {
		_, err := seq.DoWork()
		require.NoError(t, err)
	}
	offer := func(frame protocol.IngressFrame) {
		require.True(t, seq.Ingress().Offer(frame))
	}

	offer(protocol.IngressFrame{
		Kind:             protocol.FrameSessionConnect,
		CorrelationID:    100,
		ResponseStreamID: 2,
		ResponseChannel:  "x",
	})
	step()
	step()

	clk.ms = 150
	offer(protocol.IngressFrame{
		Kind:          protocol.FrameSessionMessage,
		SessionID:     1,
		CorrelationID: 101,
		Payload:       []byte{0xAB},
	})
	step()

	offer(protocol.IngressFrame{Kind: protocol.FrameScheduleTimer, CorrelationID: 7, DeadlineMs: 200})
	step()

	clk.ms = 250
	step()

	offer(protocol.IngressFrame{Kind: protocol.FrameSessionClose, SessionID: 1})
	step()

	clk.ms = 300
	toggle.Set(int64(control.ToggleSnapshot))
	step()

	var lines []string
	appender.Read(func(r *protocol.LogRecord) { lines = append(lines, r.String()) }, 64)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "log_sequence", []byte(strings.Join(lines, "\n")+"\n"))
}
