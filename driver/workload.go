package driver

import (
	"context"
	"math/rand"
	"time"

	"github.com/pingcap/go-ycsb/pkg/generator"

	"raytree/wire"
)

// Workload is the randomized REQUEST/CRASH stress driver SPEC_FULL.md's
// domain stack assigns to go-ycsb's generators: which node acts next is
// Zipfian-skewed (some nodes request far more than others, the same role
// the teacher's benchmark/ycsb.go gives Zipfian for key selection), and the
// inter-arrival delay is drawn from a Uniform range.
type Workload struct {
	peers       []wire.PeerHandle
	nodePick    *generator.Zipfian
	delayPick   *generator.Uniform
	crashChance float64
	rng         *rand.Rand
	issue       func(peer wire.PeerHandle, cmd wire.Command)
}

// NewWorkload builds a driver over peers. crashChance is the probability
// any given issued command is CRASH rather than REQUEST. minDelay/maxDelay
// bound the pause between commands.
func NewWorkload(peers []wire.PeerHandle, crashChance, skew float64, minDelay, maxDelay time.Duration, issue func(wire.PeerHandle, wire.Command)) *Workload {
	return &Workload{
		peers:       peers,
		nodePick:    generator.NewZipfianWithRange(0, int64(len(peers)-1), skew),
		delayPick:   generator.NewUniform(int64(minDelay), int64(maxDelay)),
		crashChance: crashChance,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		issue:       issue,
	}
}

// Run issues n commands, honoring ctx cancellation between each.
func (w *Workload) Run(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}
		peer := w.peers[w.nodePick.Next(w.rng)]
		cmd := wire.RequestCommand
		if w.rng.Float64() < w.crashChance {
			cmd = wire.CrashCommand
		}
		w.issue(peer, cmd)
		time.Sleep(time.Duration(w.delayPick.Next(w.rng)))
	}
}
