// Package transport implements spec.md §4.4's message transport contract:
// fire-and-forget point-to-point send with FIFO-per-ordered-pair delivery,
// plus a "deliver to self after a delay" timer. Two implementations are
// provided: TCP (cmd/raytree-server, real processes over real sockets) and
// Mem (cmd/raytree-sim and node/ tests, one process, no sockets).
package transport

import (
	"bufio"
	"io"
	"net"
	"time"

	"raytree/configs"
	"raytree/wire"
)

// Endpoint is the transport surface a single node sees: somewhere to send
// to its neighbors, somewhere to schedule a message to itself, and an inbox
// to read from. Node state machines (node.Node) depend only on this
// interface, never on TCP or in-memory details directly — the same
// leaves-first layering spec.md §2 describes.
type Endpoint interface {
	// Self returns this endpoint's own address.
	Self() wire.PeerHandle

	// Send delivers msg to the peer at "to". It is fire-and-forget: no
	// error is returned to the caller for delivery failures once msg has
	// been handed to the transport, matching spec.md §4.4's "no durable
	// queues" contract. A non-nil error here means msg could not even be
	// queued for delivery (e.g. encode failure), a programmer error.
	Send(to wire.PeerHandle, msg wire.Envelope) error

	// ScheduleSelf arranges for msg to be delivered to this endpoint's own
	// Inbox after the given delay. The delivery cannot be cancelled,
	// spec.md §5 ("there is none" re: cancellation).
	ScheduleSelf(after time.Duration, msg wire.Envelope)

	// DeliverLocal hands msg straight to this endpoint's own Inbox with no
	// delay and no network hop — the bootstrap orchestrator (spec.md §6's
	// "BootstrapMessage delivered once to each node") uses this, since it
	// is an external collaborator, not a peer node with its own Endpoint.
	DeliverLocal(msg wire.Envelope)

	// Inbox is the FIFO mailbox a node's run loop reads from.
	Inbox() <-chan wire.Envelope

	// Close releases any sockets/goroutines. It is not idempotent: both
	// implementations close an internal channel, so a second call panics.
	Close() error
}

// scheduleSelf is the shared timer implementation every Endpoint uses: it is
// independent of whether Send goes over a socket or a channel, since a
// self-message never leaves the process.
func scheduleSelf(inbox chan<- wire.Envelope, after time.Duration, msg wire.Envelope) {
	time.AfterFunc(after, func() {
		inbox <- msg
	})
}

// readEnvelopes drains newline-delimited wire envelopes off conn into inbox
// until conn closes. Both TCP and Mem read loops share this: TCP hands it a
// real socket, Mem hands it one half of a net.Pipe, and either way the
// framing and decode logic is identical.
func readEnvelopes(conn net.Conn, inbox chan<- wire.Envelope) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			env, decErr := wire.Decode(line[:len(line)-1])
			if decErr != nil {
				configs.Warn(false, "malformed envelope dropped: "+decErr.Error())
			} else {
				inbox <- env
			}
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			configs.Warn(false, "connection read failed: "+err.Error())
			return
		}
	}
}
