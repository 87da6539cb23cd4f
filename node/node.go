// Package node implements the Raymond per-node state machine and its crash
// recovery extension, spec.md §3–§4. Every Node runs as a single-threaded
// cooperative actor (spec.md §5): Run drains one mailbox, handling each
// message to completion before the next, so every method in this package
// below Run is safe to treat as single-threaded and lock-free.
package node

import (
	mapset "github.com/deckarep/golang-set"

	"raytree/configs"
	"raytree/journal"
	"raytree/transport"
	"raytree/wire"
)

// Node is one process's view of the tree mutual exclusion protocol,
// spec.md §3's "Node (per-process state)".
type Node struct {
	id   wire.NodeId
	self wire.PeerHandle

	transport transport.Endpoint
	journal   *journal.Journal

	neighbors mapset.Set // of wire.PeerHandle

	// Protocol state. All of it is owned exclusively by the Run goroutine.
	holder       *wire.PeerHandle
	requestQueue []wire.PeerHandle
	using        bool // meaningful only when phase != Crashed
	asked        bool // meaningful only when phase != Crashed
	phase        uint8

	adviseBuffer map[wire.PeerHandle]wire.Advisory

	isStarter bool

	stop chan struct{}

	// observe, if set, is notified alongside every journal.Write — the hook
	// driver/safety_test.go uses to catch a CS-safety violation the instant
	// it happens rather than by polling Snapshot.
	observe func(kind string)
}

// SetObserver installs fn to be called alongside every journaled
// transition (journal.KindEnterCS, KindExitCS, KindCrash, KindRecovery).
// The field is not synchronized with Run: call this before Run starts, or
// at least before the node is given any command, since every journaled
// transition follows from a command.
func (n *Node) SetObserver(fn func(kind string)) {
	n.observe = fn
}

func (n *Node) emit(kind string) {
	if n.observe != nil {
		n.observe(kind)
	}
}

// New creates a Node bound to a transport endpoint. It starts Uninitialized
// and does nothing until a BootstrapMessage arrives (spec.md §3's
// Lifecycle, §6's BootstrapMessage).
func New(id wire.NodeId, ep transport.Endpoint, j *journal.Journal) *Node {
	return &Node{
		id:           id,
		self:         ep.Self(),
		transport:    ep,
		journal:      j,
		neighbors:    mapset.NewSet(),
		requestQueue: make([]wire.PeerHandle, 0),
		phase:        configs.Uninitialized,
		adviseBuffer: make(map[wire.PeerHandle]wire.Advisory),
		stop:         make(chan struct{}),
	}
}

func (n *Node) ID() wire.NodeId { return n.id }

// Submit delivers a UserInput command to this node, the external
// REQUEST/CRASH command channel spec.md §6 describes.
func (n *Node) Submit(cmd wire.Command) {
	n.transport.DeliverLocal(wire.UserInput(n.id, n.self, cmd))
}

func (n *Node) Phase() uint8 { return n.phase }

// Snapshot is a read-only copy of a node's visible state, for tests and for
// the recovery-completion log dump spec.md §6 asks for.
type Snapshot struct {
	ID           wire.NodeId        `json:"id"`
	Phase        string             `json:"phase"`
	Holder       *wire.PeerHandle   `json:"holder"`
	RequestQueue []wire.PeerHandle  `json:"request_queue"`
	Using        bool               `json:"using"`
	Asked        bool               `json:"asked"`
}

func (n *Node) Snapshot() Snapshot {
	q := make([]wire.PeerHandle, len(n.requestQueue))
	copy(q, n.requestQueue)
	return Snapshot{
		ID:           n.id,
		Phase:        configs.PhaseName(n.phase),
		Holder:       n.holder,
		RequestQueue: q,
		Using:        n.using,
		Asked:        n.asked,
	}
}

// Run drains the mailbox until Stop is called. It is the only goroutine
// ever allowed to touch a Node's protocol state.
func (n *Node) Run() {
	for {
		select {
		case env := <-n.transport.Inbox():
			n.handle(env)
		case <-n.stop:
			return
		}
	}
}

func (n *Node) Stop() {
	close(n.stop)
}

// send delivers msg to "to" synchronously, from the actor goroutine itself.
// Unlike the teacher's fire-and-forget "go txn.from.sendXxx(...)" dispatch,
// this cannot be backgrounded: spec.md §4.4 requires FIFO delivery per
// ordered (sender, receiver) pair, and handing two outbound sends to two
// goroutines would let the scheduler reorder them ahead of the transport.
// Both Endpoint implementations cache one connection per destination, so
// this is a fast, typically non-blocking call.
func (n *Node) send(to wire.PeerHandle, msg wire.Envelope) {
	if err := n.transport.Send(to, msg); err != nil {
		configs.Warn(false, "send failed: "+err.Error())
	}
}
