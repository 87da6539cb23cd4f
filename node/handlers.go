package node

import (
	"raytree/configs"
	"raytree/journal"
	"raytree/wire"
)

// handle dispatches one inbound envelope to its handler, spec.md §4.1's
// handler table plus the crash (§4.2) and recovery (§4.3) extensions. It is
// only ever called from Run, so it owns n's state without locking.
func (n *Node) handle(env wire.Envelope) {
	switch env.Mark {
	case wire.MarkBootstrap:
		n.onBootstrap(env)
	case wire.MarkInitialize:
		n.onInitialize(env)
	case wire.MarkRequest:
		n.onRequest(env)
	case wire.MarkPrivilege:
		n.onPrivilege(env)
	case wire.MarkExitCS:
		n.onExitCS(env)
	case wire.MarkUserInput:
		n.onUserInput(env)
	case wire.MarkRestart:
		n.onRestart(env)
	case wire.MarkAdvise:
		n.onAdvise(env)
	case wire.MarkRecovery:
		n.onRecoveryTimer(env)
	default:
		configs.Warn(false, "unknown envelope mark: "+env.Mark)
	}
}

func (n *Node) onBootstrap(env wire.Envelope) {
	if n.phase != configs.Uninitialized {
		configs.Warn(false, "duplicate BootstrapMessage ignored")
		return
	}
	for _, peer := range env.Neighbors {
		n.neighbors.Add(peer)
	}
	n.isStarter = env.IsStarter
	configs.NodePrintf(uint64(n.id), "bootstrap: %d neighbors, starter=%v", n.neighbors.Cardinality(), n.isStarter)
	if n.isStarter {
		n.transport.ScheduleSelf(configs.BootstrapDelay, wire.Initialize(n.id, n.self))
	}
}

// onInitialize is spec.md §4.1's InitializeMessage handler. The starter's
// own self-delivered Initialize (sender == self) is handled identically: it
// sets holder := self and floods the real neighbors, since the "except S"
// exclusion in the flood skips self for the starter and the parent edge for
// everyone else.
func (n *Node) onInitialize(env wire.Envelope) {
	if n.phase == configs.Crashed {
		return
	}
	from := env.SenderAddr
	wasUninitialized := n.phase == configs.Uninitialized
	n.holder = ptr(from)
	if wasUninitialized {
		n.phase = configs.Normal
	}
	configs.NodePrintf(uint64(n.id), "RECEIVE initialize from %v, holder=%v", from, from)
	if !wasUninitialized {
		return
	}
	n.neighbors.Each(func(p interface{}) bool {
		peer := p.(wire.PeerHandle)
		if peer != from {
			n.send(peer, wire.Initialize(n.id, n.self))
		}
		return false
	})
}

func (n *Node) onRequest(env wire.Envelope) {
	if n.phase == configs.Crashed {
		return
	}
	from := env.SenderAddr
	configs.NodePrintf(uint64(n.id), "RECEIVE request from %v", from)
	n.requestQueue = append(n.requestQueue, from)
	if n.phase == configs.Recovering {
		return
	}
	n.assignPrivilege()
	n.makeRequest()
}

// onPrivilege is spec.md §4.1's PrivilegeMessage handler, special-cased per
// §7/§9 to still run while Recovering (but not while Crashed) so the
// recovery reasoner's holds_privilege detection works.
func (n *Node) onPrivilege(env wire.Envelope) {
	if n.phase == configs.Crashed {
		return
	}
	configs.NodePrintf(uint64(n.id), "RECEIVE privilege from %v", env.SenderAddr)
	n.holder = ptr(n.self)
	if n.phase == configs.Recovering {
		return
	}
	n.assignPrivilege()
	n.makeRequest()
}

func (n *Node) onExitCS(wire.Envelope) {
	if n.phase != configs.Normal {
		// stale timer from before a crash wiped using to unknown; spec.md §5.
		return
	}
	configs.NodePrintf(uint64(n.id), "EXIT critical section")
	n.journal.Write(journal.Event{NodeID: uint64(n.id), Kind: journal.KindExitCS})
	n.emit(journal.KindExitCS)
	n.using = false
	n.assignPrivilege()
	n.makeRequest()
}

func (n *Node) onUserInput(env wire.Envelope) {
	switch env.CommandID {
	case wire.RequestCommand:
		n.onUserRequest()
	case wire.CrashCommand:
		n.onUserCrash()
	}
}

func (n *Node) onUserRequest() {
	switch n.phase {
	case configs.Normal:
		n.requestQueue = append(n.requestQueue, n.self)
		n.assignPrivilege()
		n.makeRequest()
	case configs.Crashed:
		configs.Warn(false, "REQUEST refused: node is crashed")
	case configs.Recovering:
		// the append happens now (spec.md §4.1: "queue the append but
		// defer the two calls"); assign_privilege/make_request run once
		// reconciliation completes, via reconcile's own step 5.
		n.requestQueue = append(n.requestQueue, n.self)
	default:
		configs.Warn(false, "REQUEST refused: node is uninitialized")
	}
}

func (n *Node) onUserCrash() {
	if n.phase != configs.Normal || n.using {
		configs.Warn(false, "CRASH refused: node not idle in Normal phase")
		return
	}
	n.enterCrashed()
}

func ptr(p wire.PeerHandle) *wire.PeerHandle { return &p }
