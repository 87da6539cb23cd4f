package node

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"raytree/configs"
)

// TestRecoverySnapshotLogLine checks the post-recovery state spec.md §6 asks
// to be logged ("final holder/asked/request_queue/using"): it renders B's
// Snapshot as a compact JSON line with configs.JToString (reconcile itself
// dumps the same Snapshot with JPrint) and reads the fields back with gjson
// rather than unmarshaling into a Go struct, the same lookup style the
// teacher's log-scraping tools use against its own JSON log lines.
func TestRecoverySnapshotLogLine(t *testing.T) {
	useFastTuning(t)
	h := newHarness(t, lineTree(), "A")
	defer h.stop()
	time.Sleep(20 * time.Millisecond)

	h.request("B")
	require.Eventually(t, func() bool { return h.nodes["B"].Snapshot().Using }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !h.nodes["B"].Snapshot().Using }, time.Second, time.Millisecond)

	h.crash("B")
	require.Eventually(t, func() bool {
		return h.nodes["B"].Snapshot().Phase == "Normal"
	}, 2*time.Second, time.Millisecond, "B never completed recovery")

	line := configs.JToString(h.nodes["B"].Snapshot())

	require.Equal(t, "Normal", gjson.Get(line, "phase").String())
	require.Equal(t, "B", gjson.Get(line, "holder").String())
	require.False(t, gjson.Get(line, "using").Bool())
	require.False(t, gjson.Get(line, "asked").Bool())
	require.True(t, gjson.Get(line, "request_queue").IsArray())
	require.Len(t, gjson.Get(line, "request_queue").Array(), 0)
}
