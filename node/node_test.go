package node

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"raytree/configs"
	"raytree/journal"
	"raytree/transport"
	"raytree/wire"
)

// harness wires up an in-memory cluster the way a real orchestrator would:
// one Mem endpoint per node, a bootstrap DeliverLocal to each, and Run
// goroutines draining their mailboxes. Grounded on the teacher's TestKit()
// helpers (network/coordinator/2pc_test.go) that spin up a local cluster
// before every test.
type harness struct {
	nodes map[wire.PeerHandle]*Node
	reg   *transport.Registry
}

func newHarness(t *testing.T, edges map[wire.PeerHandle][]wire.PeerHandle, starter wire.PeerHandle) *harness {
	t.Helper()
	h := &harness{nodes: make(map[wire.PeerHandle]*Node), reg: transport.NewRegistry()}
	id := wire.NodeId(1)
	for self, neighbors := range edges {
		ep := transport.NewMem(h.reg, self)
		n := New(id, ep, journal.Open("", ""))
		h.nodes[self] = n
		go n.Run()
		ep.DeliverLocal(wire.Bootstrap(id, self, neighbors, self == starter))
		id++
	}
	return h
}

func (h *harness) stop() {
	for _, n := range h.nodes {
		n.Stop()
	}
}

func (h *harness) request(self wire.PeerHandle) {
	h.nodes[self].Submit(wire.RequestCommand)
}

func (h *harness) crash(self wire.PeerHandle) {
	h.nodes[self].Submit(wire.CrashCommand)
}

func lineTree() map[wire.PeerHandle][]wire.PeerHandle {
	return map[wire.PeerHandle][]wire.PeerHandle{
		"A": {"B"},
		"B": {"A", "C"},
		"C": {"B"},
	}
}

func starTree() map[wire.PeerHandle][]wire.PeerHandle {
	return map[wire.PeerHandle][]wire.PeerHandle{
		"X":  {"L1", "L2", "L3", "L4"},
		"L1": {"X"},
		"L2": {"X"},
		"L3": {"X"},
		"L4": {"X"},
	}
}

func useFastTuning(t *testing.T) {
	t.Helper()
	prevBoot, prevCS, prevCrash := configs.BootstrapDelay, configs.CriticalSectionTime, configs.CrashTime
	configs.BootstrapDelay = time.Millisecond
	configs.CriticalSectionTime = 20 * time.Millisecond
	configs.CrashTime = 30 * time.Millisecond
	t.Cleanup(func() {
		configs.BootstrapDelay, configs.CriticalSectionTime, configs.CrashTime = prevBoot, prevCS, prevCrash
	})
}

// scenario 1, spec.md §8: line A-B-C, starter A, C requests, C enters CS.
func TestLineTreeSingleRequest(t *testing.T) {
	useFastTuning(t)
	h := newHarness(t, lineTree(), "A")
	defer h.stop()
	time.Sleep(20 * time.Millisecond) // let bootstrap/initialize settle

	h.request("C")
	require.Eventually(t, func() bool {
		return h.nodes["C"].Snapshot().Using
	}, time.Second, time.Millisecond, "C never entered its critical section")

	snapA := h.nodes["A"].Snapshot()
	require.False(t, snapA.Using)
}

// scenario 2: A and C both request; A goes first (A is starter and already
// holds the token), C's turn comes only after A exits.
func TestLineTreeMutualExclusion(t *testing.T) {
	useFastTuning(t)
	h := newHarness(t, lineTree(), "A")
	defer h.stop()
	time.Sleep(20 * time.Millisecond)

	h.request("A")
	h.request("C")

	require.Eventually(t, func() bool {
		return h.nodes["A"].Snapshot().Using
	}, time.Second, time.Millisecond)
	require.False(t, h.nodes["C"].Snapshot().Using, "C must not enter while A holds the token")

	require.Eventually(t, func() bool {
		return h.nodes["C"].Snapshot().Using
	}, time.Second, time.Millisecond, "C never got its turn after A exited")
	require.False(t, h.nodes["A"].Snapshot().Using)
}

// scenario 3: star, leaves request in order, FIFO of X's request_queue.
func TestStarFIFOOrdering(t *testing.T) {
	useFastTuning(t)
	h := newHarness(t, starTree(), "X")
	defer h.stop()
	time.Sleep(20 * time.Millisecond)

	h.request("L1")
	h.request("L2")
	h.request("L3")

	require.Eventually(t, func() bool { return h.nodes["L1"].Snapshot().Using }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return h.nodes["L2"].Snapshot().Using }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return h.nodes["L3"].Snapshot().Using }, time.Second, time.Millisecond)
}

// scenario 4: B crashes idle (no PrivilegeMessage crosses the crash). It
// must recover with holder=self, queue empty, asked=false, using=false.
func TestCrashRecoveryIdle(t *testing.T) {
	useFastTuning(t)
	h := newHarness(t, lineTree(), "A")
	defer h.stop()
	time.Sleep(20 * time.Millisecond)

	h.request("B")
	require.Eventually(t, func() bool { return h.nodes["B"].Snapshot().Using }, time.Second, time.Millisecond)
	// B finishes its CS on its own timer; wait for it to go idle before
	// crashing (spec.md §4.1: CRASH is refused while using == true).
	require.Eventually(t, func() bool { return !h.nodes["B"].Snapshot().Using }, time.Second, time.Millisecond)

	h.crash("B")
	require.Eventually(t, func() bool {
		return h.nodes["B"].Snapshot().Phase == "Normal"
	}, 2*time.Second, time.Millisecond, "B never completed recovery")

	snap := h.nodes["B"].Snapshot()
	require.NotNil(t, snap.Holder)
	require.Equal(t, wire.PeerHandle("B"), *snap.Holder)
	require.Empty(t, snap.RequestQueue)
	require.False(t, snap.Asked)
	require.False(t, snap.Using)
}

// scenario 6: star center crashes with two leaves' requests outstanding;
// once X is back in Normal, no peer may appear more than once in its
// request_queue.
func TestCrashRecoveryCenterWithPendingRequests(t *testing.T) {
	useFastTuning(t)
	h := newHarness(t, starTree(), "X")
	defer h.stop()
	time.Sleep(20 * time.Millisecond)

	h.request("L1")
	require.Eventually(t, func() bool { return h.nodes["L1"].Snapshot().Using }, time.Second, time.Millisecond)

	h.request("L2")
	h.request("L3")
	// L2/L3's REQUESTs are in flight toward X when X crashes.
	h.crash("X")

	require.Eventually(t, func() bool {
		return h.nodes["X"].Snapshot().Phase == "Normal"
	}, 2*time.Second, time.Millisecond, "X never completed recovery")

	seen := map[wire.PeerHandle]int{}
	for _, p := range h.nodes["X"].Snapshot().RequestQueue {
		seen[p]++
	}
	for peer, count := range seen {
		require.LessOrEqual(t, count, 1, "peer %v appeared more than once in X's request_queue", peer)
	}
}
