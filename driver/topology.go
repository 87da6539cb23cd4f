// Package driver holds the external collaborators spec.md §1 places out of
// scope for the protocol core: the bootstrap orchestrator that builds tree
// topology and hands each node its neighbor set, and the workload generator
// that injects REQUEST/CRASH commands. Grounded on the teacher's
// network/coordinator's loadConfig + fc-server/main.go process wiring.
package driver

import (
	"io/ioutil"

	"github.com/goccy/go-json"

	"raytree/wire"
)

// Topology is the JSON shape of a tree's adjacency map plus the starter id,
// the direct analog of the teacher's participants-map config file.
type Topology struct {
	Starter   wire.PeerHandle                    `json:"starter"`
	Neighbors map[wire.PeerHandle][]wire.PeerHandle `json:"neighbors"`
}

// LoadTopology reads and parses a topology file, mirroring the teacher's
// loadConfig (network/coordinator/main.go): read the file, json.Unmarshal,
// panic via configs.CheckError semantics on failure (callers call
// configs.CheckError(err) themselves since this package stays decoupled
// from process-exit policy).
func LoadTopology(path string) (Topology, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return Topology{}, err
	}
	var t Topology
	if err := json.Unmarshal(raw, &t); err != nil {
		return Topology{}, err
	}
	return t, nil
}
