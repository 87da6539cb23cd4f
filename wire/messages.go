// Package wire defines the messages that travel between nodes (and from a
// node to itself, for timers) and their JSON wire encoding. It is the direct
// analog of the teacher's FC/network package: one envelope type carrying a
// Mark plus whichever payload that Mark needs, the same shape as the
// teacher's network.PaGossip.
package wire

import "time"

// NodeId uniquely identifies a node, spec.md §3.
type NodeId uint64

// PeerHandle is an opaque, comparable address for one peer. transport.TCP
// uses "host:port" strings; transport.Mem uses a small synthetic id. Either
// way PeerHandle is just a string, so it is comparable and hashable as
// spec.md §9 requires.
type PeerHandle string

// Command identifies the two UserInput commands spec.md §6 defines.
type Command uint8

const (
	RequestCommand Command = iota
	CrashCommand
)

// Mark values, one per wire message kind (spec.md §6). Self-only marks
// (ExitCS, Recovery) never cross the network but share the envelope/Mark
// plumbing so a node's mailbox is a single uniform channel.
const (
	MarkBootstrap  string = "bootstrap"
	MarkInitialize string = "initialize"
	MarkRequest    string = "request"
	MarkPrivilege  string = "privilege"
	MarkRestart    string = "restart"
	MarkAdvise     string = "advise"
	MarkExitCS     string = "exit_cs"
	MarkRecovery   string = "recovery"
	MarkUserInput  string = "user_input"
)

// Advisory is a neighbor's report about the state of its edge to the
// recovering node, spec.md §4.3.
type Advisory struct {
	XIsHolderOfY    bool `json:"x_is_holder_of_y"`
	XInYRequestQueue bool `json:"x_in_y_request_queue"`
	YAsked          bool `json:"y_asked"`
}

// Envelope is the one message type that crosses the transport (and the
// self-scheduling timer path). Only the fields relevant to Mark are set;
// the rest are zero values, mirroring the teacher's sparse PaGossip/Gossip
// structs.
//
// SenderID is carried purely for the log surface (spec.md §6: "each
// carrying sender id for logging"). SenderAddr is the PeerHandle a reply
// should be sent to — the transport address a NodeId alone can't recover
// on its own, since a node's neighbor set (spec.md §3) is a set of
// PeerHandle, not NodeId.
type Envelope struct {
	Mark       string     `json:"mark"`
	SenderID   NodeId     `json:"sender_id"`
	SenderAddr PeerHandle `json:"sender_addr"`
	SentAt     time.Time  `json:"sent_at"`

	// MarkBootstrap payload.
	Neighbors []PeerHandle `json:"neighbors,omitempty"`
	IsStarter bool         `json:"is_starter,omitempty"`

	// MarkAdvise payload.
	Advisory *Advisory `json:"advisory,omitempty"`

	// MarkUserInput payload.
	CommandID Command `json:"command_id,omitempty"`
}

func Bootstrap(from NodeId, fromAddr PeerHandle, neighbors []PeerHandle, isStarter bool) Envelope {
	return Envelope{Mark: MarkBootstrap, SenderID: from, SenderAddr: fromAddr, Neighbors: neighbors, IsStarter: isStarter, SentAt: time.Now()}
}

func Initialize(from NodeId, fromAddr PeerHandle) Envelope {
	return Envelope{Mark: MarkInitialize, SenderID: from, SenderAddr: fromAddr, SentAt: time.Now()}
}

func Request(from NodeId, fromAddr PeerHandle) Envelope {
	return Envelope{Mark: MarkRequest, SenderID: from, SenderAddr: fromAddr, SentAt: time.Now()}
}

func Privilege(from NodeId, fromAddr PeerHandle) Envelope {
	return Envelope{Mark: MarkPrivilege, SenderID: from, SenderAddr: fromAddr, SentAt: time.Now()}
}

func Restart(from NodeId, fromAddr PeerHandle) Envelope {
	return Envelope{Mark: MarkRestart, SenderID: from, SenderAddr: fromAddr, SentAt: time.Now()}
}

func Advise(from NodeId, fromAddr PeerHandle, a Advisory) Envelope {
	return Envelope{Mark: MarkAdvise, SenderID: from, SenderAddr: fromAddr, Advisory: &a, SentAt: time.Now()}
}

func ExitCS(self NodeId, selfAddr PeerHandle) Envelope {
	return Envelope{Mark: MarkExitCS, SenderID: self, SenderAddr: selfAddr, SentAt: time.Now()}
}

func RecoveryTimer(self NodeId, selfAddr PeerHandle) Envelope {
	return Envelope{Mark: MarkRecovery, SenderID: self, SenderAddr: selfAddr, SentAt: time.Now()}
}

func UserInput(self NodeId, selfAddr PeerHandle, cmd Command) Envelope {
	return Envelope{Mark: MarkUserInput, SenderID: self, SenderAddr: selfAddr, CommandID: cmd, SentAt: time.Now()}
}
