package node

import (
	"raytree/configs"
	"raytree/journal"
	"raytree/wire"
)

// onRestart answers a RestartMessage with this node's current view of its
// edge to the restarting neighbor, spec.md §4.3. It never pauses or alters
// state: a concurrent token movement can still happen around it.
func (n *Node) onRestart(env wire.Envelope) {
	if n.phase == configs.Crashed {
		return
	}
	x := env.SenderAddr
	a := wire.Advisory{
		XIsHolderOfY:     n.holder != nil && *n.holder == x,
		XInYRequestQueue: contains(n.requestQueue, x),
		YAsked:           n.asked,
	}
	configs.NodePrintf(uint64(n.id), "RECEIVE restart from %v, advising %s", x, configs.JToString(a))
	n.send(x, wire.Advise(n.id, n.self, a))
}

// onAdvise collects one neighbor's advisory; once every neighbor has
// reported, it runs reconcile exactly once.
func (n *Node) onAdvise(env wire.Envelope) {
	if n.phase != configs.Recovering {
		configs.Warn(false, "advise received outside Recovering, ignored")
		return
	}
	if env.Advisory == nil {
		configs.Warn(false, "advise envelope missing payload")
		return
	}
	from := env.SenderAddr
	n.adviseBuffer[from] = *env.Advisory
	configs.NodePrintf(uint64(n.id), "RECEIVE advise from %v (%d/%d)", from, len(n.adviseBuffer), n.neighbors.Cardinality())
	if len(n.adviseBuffer) < n.neighbors.Cardinality() {
		return
	}
	n.reconcile()
}

// reconcile is spec.md §4.3's reconciliation algorithm, run exactly once
// per recovery: it rebuilds holder/asked from the collected advise_buffer
// and resumes normal operation.
func (n *Node) reconcile() {
	n.using = false
	n.asked = false

	holdsPrivilege := n.holder != nil && *n.holder == n.self
	if !holdsPrivilege {
		n.holder = ptr(n.self) // provisional; overwritten below unless every neighbor says otherwise
	}

	selfAppended := contains(n.requestQueue, n.self)
	n.neighbors.Each(func(p interface{}) bool {
		peer := p.(wire.PeerHandle)
		a, ok := n.adviseBuffer[peer]
		if !ok {
			configs.Warn(false, "reconcile: missing advisory from "+string(peer))
			return false
		}
		if !a.XIsHolderOfY {
			if holdsPrivilege {
				// stale: peer's view predates a PrivilegeMessage that
				// already delivered the token to us through it.
				n.asked = true
				if !selfAppended {
					n.requestQueue = append(n.requestQueue, n.self)
					selfAppended = true
				}
			} else {
				n.holder = ptr(peer)
				if a.XInYRequestQueue {
					n.asked = true
					if !selfAppended {
						n.requestQueue = append(n.requestQueue, n.self)
						selfAppended = true
					}
				}
			}
		} else if a.YAsked && !contains(n.requestQueue, peer) {
			n.requestQueue = append(n.requestQueue, peer)
		}
		return false
	})

	n.adviseBuffer = make(map[wire.PeerHandle]wire.Advisory)
	n.phase = configs.Normal
	configs.NodePrintf(uint64(n.id), "RECOVERY complete")
	snap := n.Snapshot()
	configs.JPrint(snap)
	n.journal.Write(journal.Event{NodeID: uint64(n.id), Kind: journal.KindRecovery, Detail: snap})
	n.emit(journal.KindRecovery)

	n.assignPrivilege()
	n.makeRequest()
}

func contains(queue []wire.PeerHandle, p wire.PeerHandle) bool {
	for _, q := range queue {
		if q == p {
			return true
		}
	}
	return false
}
