package transport

import (
	"net"
	"time"

	"raytree/configs"
	"raytree/locks"
	"raytree/wire"
)

// TCP is a real point-to-point transport: one listener accepting inbound
// connections, one cached outbound connection per destination so that
// messages sent to the same peer preserve FIFO order for free (they all
// ride the same TCP byte stream). Grounded on the teacher's
// network/participant/conn.go Comm type.
type TCP struct {
	self     wire.PeerHandle
	listener net.Listener
	inbox    chan wire.Envelope
	done     chan struct{}

	connLatch *locks.RWLock
	conns     map[wire.PeerHandle]net.Conn
}

// NewTCP binds a listener at self and starts accepting connections. Callers
// must call Close when done.
func NewTCP(self wire.PeerHandle) (*TCP, error) {
	listener, err := net.Listen("tcp", string(self))
	if err != nil {
		return nil, err
	}
	t := &TCP{
		self:      wire.PeerHandle(listener.Addr().String()),
		listener:  listener,
		inbox:     make(chan wire.Envelope, configs.MailboxCapacity),
		done:      make(chan struct{}),
		connLatch: locks.NewLocker(),
		conns:     make(map[wire.PeerHandle]net.Conn),
	}
	go t.acceptLoop()
	return t, nil
}

func (t *TCP) Self() wire.PeerHandle { return t.self }

func (t *TCP) Inbox() <-chan wire.Envelope { return t.inbox }

func (t *TCP) ScheduleSelf(after time.Duration, msg wire.Envelope) {
	scheduleSelf(t.inbox, after, msg)
}

func (t *TCP) DeliverLocal(msg wire.Envelope) {
	t.inbox <- msg
}

func (t *TCP) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
				configs.Warn(false, "accept failed: "+err.Error())
				return
			}
		}
		go readEnvelopes(conn, t.inbox)
	}
}

// getConn returns the cached connection to "to", dialing and caching a new
// one if none exists yet. The read-then-upgrade pattern is the reason
// locks.RWLock exists: most calls just need to read the cache.
func (t *TCP) getConn(to wire.PeerHandle) (net.Conn, error) {
	t.connLatch.RLock()
	if conn, ok := t.conns[to]; ok {
		t.connLatch.RUnlock()
		return conn, nil
	}
	if t.connLatch.UpgradeLock() {
		// now holding the write lock; re-check since another goroutine
		// may have dialed while we waited.
		if conn, ok := t.conns[to]; ok {
			t.connLatch.Unlock()
			return conn, nil
		}
		conn, err := net.DialTimeout("tcp", string(to), configs.DialTimeout)
		if err != nil {
			t.connLatch.Unlock()
			return nil, err
		}
		t.conns[to] = conn
		t.connLatch.Unlock()
		return conn, nil
	}
	t.connLatch.RUnlock()
	// another reader holds the lock, so the upgrade was refused; fall back
	// to a direct, uncached dial rather than spin, since sends are rare
	// enough that this is not a hot path.
	return net.DialTimeout("tcp", string(to), configs.DialTimeout)
}

func (t *TCP) Send(to wire.PeerHandle, msg wire.Envelope) error {
	line, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	conn, err := t.getConn(to)
	if err != nil {
		configs.Warn(false, "send to "+string(to)+" failed: "+err.Error())
		return nil
	}
	if dl, ok := conn.(interface{ SetWriteDeadline(time.Time) error }); ok {
		_ = dl.SetWriteDeadline(time.Now().Add(configs.WriteTimeout))
	}
	if _, err := conn.Write(line); err != nil {
		configs.Warn(false, "write to "+string(to)+" failed: "+err.Error())
	}
	return nil
}

func (t *TCP) Close() error {
	close(t.done)
	t.connLatch.Lock()
	for _, c := range t.conns {
		_ = c.Close()
	}
	t.connLatch.Unlock()
	return t.listener.Close()
}
