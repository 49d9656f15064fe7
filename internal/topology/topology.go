// Package topology discovers the NUMA node/CPU layout of the host and
// answers node-affinity queries for the rest of the allocator.
// Platform-specific discovery lives in topology_linux.go and
// topology_fallback.go.
package topology

import "errors"

// ErrTopologyUnavailable names the condition of a platform exposing no
// usable NUMA information. Discover does not return it: in that case it
// returns a single-node topology and a nil error.
var ErrTopologyUnavailable = errors.New("topology: unavailable")

// Topology describes the node/CPU layout discovered at startup.
type Topology struct {
	NumNodes int
	NumCPUs  int

	cpuToNode []int
	nodeCPUs  [][]int
}

// CPUToNode returns the NUMA node owning cpu, or 0 if unknown.
func (t *Topology) CPUToNode(cpu int) int {
	if cpu < 0 || cpu >= len(t.cpuToNode) {
		return 0
	}
	return t.cpuToNode[cpu]
}

// CPUsOnNode returns the CPU list reported for node.
func (t *Topology) CPUsOnNode(node int) []int {
	if node < 0 || node >= len(t.nodeCPUs) {
		return nil
	}
	return t.nodeCPUs[node]
}

// singleNode builds a degenerate one-node topology covering numCPUs
// CPUs, used whenever per-platform discovery fails or isn't supported.
func singleNode(numCPUs int) *Topology {
	if numCPUs < 1 {
		numCPUs = 1
	}
	cpus := make([]int, numCPUs)
	cpuToNode := make([]int, numCPUs)
	for i := range cpus {
		cpus[i] = i
	}
	return &Topology{
		NumNodes:  1,
		NumCPUs:   numCPUs,
		cpuToNode: cpuToNode,
		nodeCPUs:  [][]int{cpus},
	}
}
