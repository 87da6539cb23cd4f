package node

import (
	"raytree/configs"
	"raytree/journal"
	"raytree/wire"
)

// enterCrashed is spec.md §4.2's CRASH protocol entry. Preconditions
// (phase == Normal, using == false) are checked by the caller, onUserCrash.
func (n *Node) enterCrashed() {
	configs.NodePrintf(uint64(n.id), "CRASH")
	n.journal.Write(journal.Event{NodeID: uint64(n.id), Kind: journal.KindCrash})
	n.emit(journal.KindCrash)
	n.phase = configs.Crashed
	n.holder = nil
	n.using = false
	n.asked = false
	n.requestQueue = n.requestQueue[:0]
	n.adviseBuffer = make(map[wire.PeerHandle]wire.Advisory)
	n.transport.ScheduleSelf(configs.CrashTime, wire.RecoveryTimer(n.id, n.self))
}

// onRecoveryTimer fires CRASH_TIME after the crash and begins recovery,
// spec.md §4.2's last paragraph.
func (n *Node) onRecoveryTimer(wire.Envelope) {
	if n.phase != configs.Crashed {
		// a stale timer: e.g. recovery already completed through some other
		// path. Nothing in this protocol produces that today, but handlers
		// must be robust against stale self-messages per spec.md §5.
		return
	}
	n.phase = configs.Recovering
	configs.NodePrintf(uint64(n.id), "RECOVERING: sending restart to %d neighbors", n.neighbors.Cardinality())
	n.neighbors.Each(func(p interface{}) bool {
		n.send(p.(wire.PeerHandle), wire.Restart(n.id, n.self))
		return false
	})
}
