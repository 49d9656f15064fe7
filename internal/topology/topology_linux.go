// +build linux

package topology

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

const nodeRoot = "/sys/devices/system/node"

// Discover walks /sys/devices/system/node to build the node/CPU map.
// It falls back to a single-node view when the sysfs tree is absent,
// which is the common case inside containers and non-Linux CI runners
// with a Linux GOOS cross-build.
func Discover() (*Topology, error) {
	entries, err := os.ReadDir(nodeRoot)
	if err != nil {
		return singleNode(runtime.NumCPU()), nil
	}

	var nodeIDs []int
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "node") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "node"))
		if err != nil {
			continue
		}
		nodeIDs = append(nodeIDs, id)
	}
	if len(nodeIDs) == 0 {
		return singleNode(runtime.NumCPU()), nil
	}
	sort.Ints(nodeIDs)

	maxCPU := -1
	nodeCPUs := make([][]int, len(nodeIDs))
	for i, id := range nodeIDs {
		cpus, err := parseCPUList(filepath.Join(nodeRoot, "node"+strconv.Itoa(id), "cpulist"))
		if err != nil {
			continue
		}
		nodeCPUs[i] = cpus
		for _, c := range cpus {
			if c > maxCPU {
				maxCPU = c
			}
		}
	}
	if maxCPU < 0 {
		return singleNode(runtime.NumCPU()), nil
	}

	cpuToNode := make([]int, maxCPU+1)
	for i, cpus := range nodeCPUs {
		for _, c := range cpus {
			cpuToNode[c] = i
		}
	}

	return &Topology{
		NumNodes:  len(nodeIDs),
		NumCPUs:   maxCPU + 1,
		cpuToNode: cpuToNode,
		nodeCPUs:  nodeCPUs,
	}, nil
}

// CurrentNode reports the NUMA node of the CPU the calling goroutine's
// OS thread currently runs on.
func (t *Topology) CurrentNode() int {
	cpu, ok := currentCPU()
	if !ok {
		return 0
	}
	return t.CPUToNode(cpu)
}

// currentCPU asks the kernel, via getcpu(2), which CPU the calling
// thread is executing on.
func currentCPU() (int, bool) {
	var cpu, node uint32
	_, _, errno := unix.RawSyscall(unix.SYS_GETCPU, uintptr(unsafe.Pointer(&cpu)), uintptr(unsafe.Pointer(&node)), 0)
	if errno != 0 {
		return 0, false
	}
	return int(cpu), true
}

// parseCPUList parses a Linux cpulist file such as "0-3,8,10-11".
func parseCPUList(path string) ([]int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return nil, nil
	}
	var cpus []int
	for _, part := range strings.Split(s, ",") {
		lo, hi, err := splitRange(part)
		if err != nil {
			continue
		}
		for c := lo; c <= hi; c++ {
			cpus = append(cpus, c)
		}
	}
	return cpus, nil
}

func splitRange(part string) (int, int, error) {
	if i := strings.IndexByte(part, '-'); i >= 0 {
		lo, err := strconv.Atoi(part[:i])
		if err != nil {
			return 0, 0, err
		}
		hi, err := strconv.Atoi(part[i+1:])
		if err != nil {
			return 0, 0, err
		}
		return lo, hi, nil
	}
	v, err := strconv.Atoi(part)
	if err != nil {
		return 0, 0, err
	}
	return v, v, nil
}
