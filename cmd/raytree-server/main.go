// Command raytree-server runs a single Raymond tree-mutex node as its own
// OS process, communicating with its neighbors over real TCP sockets. It is
// the real-deployment counterpart to raytree-sim's in-process simulation,
// grounded on the teacher's fc-server/main.go flag-driven process entry
// point.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"raytree/configs"
	"raytree/driver"
	"raytree/journal"
	"raytree/node"
	"raytree/transport"
	"raytree/wire"
)

var (
	addr       string
	topoPath   string
	nodeID     uint64
	debug      bool
	useWAL     bool
	bootDelay  time.Duration
	csTime     time.Duration
	crashTime  time.Duration
	logToFile  bool
)

func init() {
	flag.StringVar(&addr, "addr", "127.0.0.1:5001", "the address this node listens on; must match its key in the topology file")
	flag.StringVar(&topoPath, "topology", "topology.json", "path to the tree topology file")
	flag.Uint64Var(&nodeID, "id", 1, "this node's NodeId")
	flag.BoolVar(&debug, "debug", false, "log debug info")
	flag.BoolVar(&useWAL, "wal", false, "enable the diagnostic WAL journal")
	flag.DurationVar(&bootDelay, "bootstrap-delay", configs.BootstrapDelay, "delay before the starter initializes itself")
	flag.DurationVar(&csTime, "cs-time", configs.CriticalSectionTime, "simulated critical section duration")
	flag.DurationVar(&crashTime, "crash-time", configs.CrashTime, "simulated crash duration")
	flag.BoolVar(&logToFile, "log-to-file", false, "write log lines to logs/ instead of stdout")
	flag.Usage = func() { flag.PrintDefaults() }
}

func main() {
	flag.Parse()

	configs.SetLogVerbosity(debug)
	configs.UseWAL = useWAL
	configs.BootstrapDelay = bootDelay
	configs.CriticalSectionTime = csTime
	configs.CrashTime = crashTime
	configs.LogToFile = logToFile
	if logToFile {
		configs.CheckError(os.MkdirAll("logs", 0o755))
		f, err := os.OpenFile(fmt.Sprintf("logs/node-%d.log", nodeID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		configs.CheckError(err)
		defer f.Close()
		log.SetOutput(f)
	}

	top, err := driver.LoadTopology(topoPath)
	configs.CheckError(err)

	self := wire.PeerHandle(addr)
	neighbors, ok := top.Neighbors[self]
	if !ok {
		log.Fatalf("address %s not found in topology %s", addr, topoPath)
	}

	ep, err := transport.NewTCP(self)
	if err != nil {
		log.Fatalf("listen on %s: %v", addr, err)
	}
	defer ep.Close()

	j := journal.Open("logs", fmt.Sprintf("node-%d", nodeID))
	defer j.Close()

	n := node.New(wire.NodeId(nodeID), ep, j)
	go n.Run()

	ep.DeliverLocal(wire.Bootstrap(wire.NodeId(nodeID), self, neighbors, self == top.Starter))

	fmt.Fprintf(os.Stderr, "raytree-server: node %d listening on %s (starter=%v)\n", nodeID, ep.Self(), self == top.Starter)
	fmt.Fprintln(os.Stderr, "type 'r' + ENTER to REQUEST, 'c' + ENTER to CRASH, ENTER alone to exit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "r":
			n.Submit(wire.RequestCommand)
		case "c":
			n.Submit(wire.CrashCommand)
		case "":
			return
		}
	}
}
