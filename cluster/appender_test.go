// File: cluster/appender_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cluster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/clusterseq/api"
	"github.com/momentics/clusterseq/cluster"
	"github.com/momentics/clusterseq/core/protocol"
)

func TestLogBufferRefusesWhenFull(t *testing.T) {
	buf := cluster.NewLogBuffer(2)
	session := cluster.NewSession(1, 2, "x")

	require.True(t, buf.AppendConnectedSession(session, 10))
	require.True(t, buf.AppendTimerEvent(7, 11))
	assert.False(t, buf.AppendClosedSession(session, api.CloseReasonTimeout, 12),
		"full publication refuses the append")
	assert.Equal(t, 2, buf.Len())

	var drained []*protocol.LogRecord
	assert.Equal(t, 2, buf.Read(func(r *protocol.LogRecord) { drained = append(drained, r) }, 16))
	require.Len(t, drained, 2)
	assert.Equal(t, protocol.RecordConnectedSession, drained[0].Kind)
	assert.Equal(t, protocol.RecordTimerEvent, drained[1].Kind)

	assert.True(t, buf.AppendClosedSession(session, api.CloseReasonTimeout, 13),
		"drained publication accepts again")
}

func TestLogBufferReadLimit(t *testing.T) {
	buf := cluster.NewLogBuffer(8)
	for i := int64(0); i < 5; i++ {
		require.True(t, buf.AppendTimerEvent(i, 100))
	}

	count := 0
	assert.Equal(t, 3, buf.Read(func(*protocol.LogRecord) { count++ }, 3))
	assert.Equal(t, 3, count)
	assert.Equal(t, 2, buf.Len())
}

func TestLogBufferRejectsOversizePayload(t *testing.T) {
	buf := cluster.NewLogBuffer(8)
	assert.False(t, buf.AppendMessage(1, 1, make([]byte, protocol.MaxRecordPayload+1), 100))
	assert.Equal(t, 0, buf.Len())
}
