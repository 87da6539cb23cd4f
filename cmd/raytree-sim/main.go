// Command raytree-sim runs an entire tree in one process over the
// in-memory transport, driving it with a randomized REQUEST/CRASH workload.
// It exists for demoing and stress-running a tree read from a topology file
// without spinning up real sockets, the in-process counterpart to
// raytree-server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"raytree/configs"
	"raytree/driver"
	"raytree/transport"
	"raytree/wire"
)

var (
	topoPath    string
	debug       bool
	useWAL      bool
	commands    int
	crashChance float64
	skew        float64
)

func init() {
	flag.StringVar(&topoPath, "topology", "topology.json", "path to the tree topology file")
	flag.BoolVar(&debug, "debug", false, "log debug info")
	flag.BoolVar(&useWAL, "wal", false, "enable the diagnostic WAL journal")
	flag.IntVar(&commands, "commands", 100, "number of REQUEST/CRASH commands to issue")
	flag.Float64Var(&crashChance, "crash-chance", 0.1, "probability any given issued command is CRASH rather than REQUEST")
	flag.Float64Var(&skew, "skew", 0.9, "Zipfian skew for which node acts next")
	flag.Usage = func() { flag.PrintDefaults() }
}

func main() {
	flag.Parse()
	configs.SetLogVerbosity(debug)
	configs.UseWAL = useWAL

	top, err := driver.LoadTopology(topoPath)
	configs.CheckError(err)

	reg := transport.NewRegistry()
	cluster, err := driver.BootstrapTree(context.Background(), top, func(self wire.PeerHandle) (transport.Endpoint, error) {
		return transport.NewMem(reg, self), nil
	})
	configs.CheckError(err)
	defer cluster.Stop()

	time.Sleep(configs.BootstrapDelay * 5) // let bootstrap/initialize settle

	peers := make([]wire.PeerHandle, 0, len(cluster.Nodes))
	for p := range cluster.Nodes {
		peers = append(peers, p)
	}

	w := driver.NewWorkload(peers, crashChance, skew, 5*time.Millisecond, 30*time.Millisecond, func(peer wire.PeerHandle, cmd wire.Command) {
		cluster.Nodes[peer].Submit(cmd)
	})
	w.Run(context.Background(), commands)

	time.Sleep(200 * time.Millisecond) // drain trailing traffic before reporting

	fmt.Fprintln(os.Stderr, "raytree-sim: final state")
	for p, n := range cluster.Nodes {
		configs.JPrint(map[string]interface{}{"peer": p, "snapshot": n.Snapshot()})
	}
}
