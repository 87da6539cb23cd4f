package node

import (
	"raytree/configs"
	"raytree/journal"
	"raytree/wire"
)

// assignPrivilege is spec.md §4.1's assign_privilege: preconditions holder
// == self, using == false, request_queue non-empty. Invoked after any state
// change that could enable forwarding the token.
func (n *Node) assignPrivilege() {
	if n.holder == nil || *n.holder != n.self || n.using || len(n.requestQueue) == 0 {
		return
	}
	head := n.requestQueue[0]
	n.requestQueue = n.requestQueue[1:]
	n.holder = ptr(head)
	n.asked = false
	if head == n.self {
		n.using = true
		configs.NodePrintf(uint64(n.id), "ENTER critical section")
		n.journal.Write(journal.Event{NodeID: uint64(n.id), Kind: journal.KindEnterCS})
		n.emit(journal.KindEnterCS)
		n.transport.ScheduleSelf(configs.CriticalSectionTime, wire.ExitCS(n.id, n.self))
		return
	}
	n.send(head, wire.Privilege(n.id, n.self))
}

// makeRequest is spec.md §4.1's make_request: preconditions holder != self,
// request_queue non-empty, asked == false, holder initialized.
func (n *Node) makeRequest() {
	if n.holder == nil {
		configs.Warn(false, "make_request invoked before initialization")
		return
	}
	if *n.holder == n.self || len(n.requestQueue) == 0 || n.asked {
		return
	}
	n.send(*n.holder, wire.Request(n.id, n.self))
	n.asked = true
}
