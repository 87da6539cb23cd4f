package transport

import (
	"fmt"
	"net"
	"sync"
	"time"

	"raytree/configs"
	"raytree/wire"
)

// Registry is a process-wide directory of in-memory endpoints, keyed by
// PeerHandle, so that one Mem endpoint can reach another without a real
// socket. cmd/raytree-sim and node/ tests each create their own registry
// and build one Mem per simulated node against it.
type Registry struct {
	mu    sync.RWMutex
	peers map[wire.PeerHandle]*Mem
}

func NewRegistry() *Registry {
	return &Registry{peers: make(map[wire.PeerHandle]*Mem)}
}

// Mem is an in-process transport. Unlike a trivial "write straight into the
// peer's channel" design, Mem connects two endpoints with a net.Pipe and
// reuses the exact same framed read loop TCP uses (readEnvelopes), so the
// in-memory path is exercised by, and held to, the same net.Conn contract a
// real socket gives the TCP transport for free — see mem_test.go, which
// runs golang.org/x/net/nettest's conformance suite against net.Pipe pairs,
// the same kind of connection this type builds.
type Mem struct {
	self wire.PeerHandle
	reg  *Registry
	in   chan wire.Envelope

	accept chan net.Conn

	connLatch sync.Mutex
	conns     map[wire.PeerHandle]net.Conn
}

// NewMem registers a new in-memory endpoint for self under reg and starts
// its accept loop.
func NewMem(reg *Registry, self wire.PeerHandle) *Mem {
	m := &Mem{
		self:   self,
		reg:    reg,
		in:     make(chan wire.Envelope, configs.MailboxCapacity),
		accept: make(chan net.Conn, configs.MailboxCapacity),
		conns:  make(map[wire.PeerHandle]net.Conn),
	}
	reg.mu.Lock()
	reg.peers[self] = m
	reg.mu.Unlock()
	go m.acceptLoop()
	return m
}

func (m *Mem) Self() wire.PeerHandle { return m.self }

func (m *Mem) Inbox() <-chan wire.Envelope { return m.in }

func (m *Mem) ScheduleSelf(after time.Duration, msg wire.Envelope) {
	scheduleSelf(m.in, after, msg)
}

func (m *Mem) DeliverLocal(msg wire.Envelope) {
	m.in <- msg
}

func (m *Mem) acceptLoop() {
	for conn := range m.accept {
		go readEnvelopes(conn, m.in)
	}
}

// dial returns the cached pipe connection to "to", creating one (and
// handing its other half to "to"'s accept loop) on first use.
func (m *Mem) dial(to wire.PeerHandle) (net.Conn, error) {
	m.connLatch.Lock()
	defer m.connLatch.Unlock()
	if conn, ok := m.conns[to]; ok {
		return conn, nil
	}
	m.reg.mu.RLock()
	dst, ok := m.reg.peers[to]
	m.reg.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown peer %v", to)
	}
	local, remote := net.Pipe()
	dst.accept <- remote
	m.conns[to] = local
	return local, nil
}

func (m *Mem) Send(to wire.PeerHandle, msg wire.Envelope) error {
	conn, err := m.dial(to)
	if err != nil {
		configs.Warn(false, fmt.Sprintf("send to unknown peer %v dropped", to))
		return nil
	}
	line, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	if _, err := conn.Write(line); err != nil {
		configs.Warn(false, "mem send to "+string(to)+" failed: "+err.Error())
	}
	return nil
}

func (m *Mem) Close() error {
	m.reg.mu.Lock()
	delete(m.reg.peers, m.self)
	m.reg.mu.Unlock()
	close(m.accept)
	m.connLatch.Lock()
	for _, c := range m.conns {
		_ = c.Close()
	}
	m.connLatch.Unlock()
	return nil
}
