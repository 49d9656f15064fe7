// +build !linux

package topology

import "runtime"

// Discover returns a single-node topology: non-Linux platforms have no
// portable sysfs-equivalent NUMA enumeration available to this shim.
func Discover() (*Topology, error) {
	return singleNode(runtime.NumCPU()), nil
}

// CurrentNode always reports node 0 on platforms without NUMA
// discovery.
func (t *Topology) CurrentNode() int {
	return 0
}
