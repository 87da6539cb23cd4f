package driver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/magiconair/properties/assert"
	"github.com/stretchr/testify/require"
	lock "github.com/viney-shih/go-lock"

	"raytree/configs"
	"raytree/journal"
	"raytree/transport"
	"raytree/wire"
)

// starTopology builds a center-plus-n-leaves tree, the shape of spec.md §8
// scenario 6.
func starTopology(n int) (Topology, []wire.PeerHandle) {
	top := Topology{Starter: "X", Neighbors: map[wire.PeerHandle][]wire.PeerHandle{"X": {}}}
	leaves := make([]wire.PeerHandle, 0, n)
	for i := 0; i < n; i++ {
		leaf := wire.PeerHandle(fmt.Sprintf("L%d", i))
		leaves = append(leaves, leaf)
		top.Neighbors["X"] = append(top.Neighbors["X"], leaf)
		top.Neighbors[leaf] = []wire.PeerHandle{"X"}
	}
	return top, leaves
}

// TestSafetyUnderRandomWorkload drives a star cluster with a randomized
// REQUEST/CRASH workload (driver.Workload, go-ycsb generators) and guards
// every ENTER/EXIT critical-section transition with a shared CASMutex
// (viney-shih/go-lock), the runtime detector for spec.md §8's "at all time
// t, at most one node has using == true". A failed TryLock means two nodes
// were in their critical section at once.
func TestSafetyUnderRandomWorkload(t *testing.T) {
	configs.BootstrapDelay = time.Millisecond
	configs.CriticalSectionTime = 5 * time.Millisecond
	configs.CrashTime = 15 * time.Millisecond

	top, leaves := starTopology(4)
	reg := transport.NewRegistry()
	cluster, err := BootstrapTree(context.Background(), top, func(self wire.PeerHandle) (transport.Endpoint, error) {
		return transport.NewMem(reg, self), nil
	})
	require.NoError(t, err)
	defer cluster.Stop()

	csGuard := lock.NewCASMutex()
	var violations int32
	for _, n := range cluster.Nodes {
		n := n
		n.SetObserver(func(kind string) {
			switch kind {
			case journal.KindEnterCS:
				if !csGuard.TryLockWithTimeout(0) {
					atomic.AddInt32(&violations, 1)
					return
				}
			case journal.KindExitCS:
				csGuard.Unlock()
			}
		})
	}

	time.Sleep(20 * time.Millisecond) // let bootstrap/initialize settle

	all := append([]wire.PeerHandle{"X"}, leaves...)
	w := NewWorkload(all, 0.15, 0.9, time.Millisecond, 4*time.Millisecond, func(peer wire.PeerHandle, cmd wire.Command) {
		cluster.Nodes[peer].Submit(cmd)
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(context.Background(), 40)
	}()
	wg.Wait()

	time.Sleep(50 * time.Millisecond) // drain in-flight recovery/CS traffic

	assert.Equal(t, atomic.LoadInt32(&violations), int32(0), "concurrent critical section entries detected")
}
