package driver

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"raytree/journal"
	"raytree/node"
	"raytree/transport"
	"raytree/wire"
)

// Cluster is every node started by one BootstrapTree call, keyed by
// PeerHandle, so a caller (cmd/raytree-sim, tests) can issue UserInput
// commands and read back Snapshots.
type Cluster struct {
	Nodes map[wire.PeerHandle]*node.Node
}

// BootstrapTree starts one Node per entry in top.Neighbors, wires them to
// the given endpoint factory, and delivers each its BootstrapMessage. It
// uses errgroup the way the rest of the pack does for "start N things,
// surface the first failure" (teacher's own fc-server instead used a bare
// goroutine-per-participant with no error propagation; errgroup is the
// ecosystem upgrade the pack's other repos reach for).
func BootstrapTree(ctx context.Context, top Topology, newEndpoint func(self wire.PeerHandle) (transport.Endpoint, error)) (*Cluster, error) {
	g, _ := errgroup.WithContext(ctx)
	cluster := &Cluster{Nodes: make(map[wire.PeerHandle]*node.Node, len(top.Neighbors))}
	var mu sync.Mutex

	var id wire.NodeId = 1
	for self, neighbors := range top.Neighbors {
		self, neighbors, nid := self, neighbors, id
		id++
		g.Go(func() error {
			ep, err := newEndpoint(self)
			if err != nil {
				return fmt.Errorf("bootstrap %v: %w", self, err)
			}
			n := node.New(nid, ep, journal.Open("logs", string(self)))
			mu.Lock()
			cluster.Nodes[self] = n
			mu.Unlock()
			go n.Run()
			ep.DeliverLocal(wire.Bootstrap(nid, self, neighbors, self == top.Starter))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cluster, nil
}

func (c *Cluster) Stop() {
	for _, n := range c.Nodes {
		n.Stop()
	}
}
