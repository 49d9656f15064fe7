// Package numalloc is the public facade for the NUMA-aware, thread-
// cached, size-class segregated allocator: a per-node pool of bump-
// allocated VM, refilled in batches into lock-free per-goroutine
// caches, with a dedicated path for allocations too large for the
// size-class ladder.
package numalloc

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/noahbean33/memory-allocator/internal/header"
	"github.com/noahbean33/memory-allocator/internal/largeblock"
	"github.com/noahbean33/memory-allocator/internal/nodepool"
	"github.com/noahbean33/memory-allocator/internal/sizeclass"
	"github.com/noahbean33/memory-allocator/internal/threadcache"
	"github.com/noahbean33/memory-allocator/internal/topology"
)

// ErrAlreadyInitialized is returned by Init when the package-level
// singleton has already been constructed.
var ErrAlreadyInitialized = errors.New("numalloc: already initialized")

// Allocator is an independent instance of the NUMA-aware allocator.
// Most callers use the package-level singleton (Init/Allocate/Free/...)
// instead of constructing one directly; New exists so tests can build
// allocators of their own. Every Allocator shares the one process-wide
// per-goroutine cache registry, so a goroutine that uses two Allocators
// takes small blocks for both from the same cache.
type Allocator struct {
	topo      *topology.Topology
	nodePools []*nodepool.NodePool
	logger    *logrus.Logger

	mu sync.Mutex
}

// New discovers the host topology and reserves perNodeBytes of
// first-touched storage on every discovered NUMA node.
func New(perNodeBytes uintptr, opts ...Option) (*Allocator, error) {
	topo, err := topology.Discover()
	if err != nil {
		return nil, fmt.Errorf("numalloc: topology discovery: %w", err)
	}

	a := &Allocator{topo: topo, logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(a)
	}

	pools := make([]*nodepool.NodePool, 0, topo.NumNodes)
	for node := 0; node < topo.NumNodes; node++ {
		np, err := nodepool.New(node, perNodeBytes)
		if err != nil {
			for _, p := range pools {
				_ = p.Release()
			}
			return nil, fmt.Errorf("numalloc: node pool %d: %w", node, err)
		}
		pools = append(pools, np)
	}
	a.nodePools = pools
	return a, nil
}

func (a *Allocator) currentNode() int {
	return a.topo.CurrentNode()
}

func (a *Allocator) nodePoolFor(node int) *nodepool.NodePool {
	if node < 0 || node >= len(a.nodePools) {
		return a.nodePools[0]
	}
	return a.nodePools[node]
}

// Allocate returns n bytes of zero-initialized storage, or nil if the
// request cannot be satisfied. A request of n == 0 returns nil.
func (a *Allocator) Allocate(n uintptr) unsafe.Pointer {
	if n == 0 {
		return nil
	}

	class, isLarge := sizeclass.ClassOf(n)
	node := a.currentNode()

	if isLarge {
		p, err := largeblock.Allocate(n, node)
		if err != nil {
			a.logger.WithError(err).Warn("numalloc: large allocation failed")
			return nil
		}
		return p
	}

	cache := threadcache.Get(node)
	if p := cache.PopSmall(class); p != nil {
		zero(p, sizeclass.SizeOf(class))
		return p
	}

	p, err := a.refill(cache, class)
	if err != nil {
		a.logger.WithError(err).Warn("numalloc: node pool exhausted")
		return nil
	}
	cache.Allocs++
	zero(p, sizeclass.SizeOf(class))
	return p
}

// refill pulls a fresh batch from the thread's home node pool,
// installs the remainder into the cache, and returns the first block.
func (a *Allocator) refill(cache *threadcache.Cache, class int) (unsafe.Pointer, error) {
	pool := a.nodePoolFor(cache.Node)
	first, rest, err := pool.RefillBatch(class)
	if err != nil {
		return nil, err
	}
	cache.InstallBatch(class, rest)
	return first, nil
}

// Free returns a previously allocated pointer to the allocator. It is
// a no-op for nil. Per the allocator's cross-thread-free contract, the
// block is always serviced by the freeing goroutine's own cache, even
// if a different goroutine originally allocated it; no coalescing or
// remote-free reconciliation is performed.
func (a *Allocator) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}

	h := header.FromUser(p)
	if h.Class == header.LargeClass {
		if err := largeblock.Free(p); err != nil {
			a.logger.WithError(err).Warn("numalloc: large free failed")
		}
		return
	}

	cache := threadcache.Get(a.currentNode())
	cache.PushSmall(int(h.Class), p)
}

// Zeroed allocates storage for num elements of size bytes each,
// returning nil on overflow or allocation failure.
func (a *Allocator) Zeroed(num, size uintptr) unsafe.Pointer {
	if num == 0 || size == 0 {
		return nil
	}
	if num > (^uintptr(0))/size {
		return nil
	}
	return a.Allocate(num * size)
}

// Resize returns storage for n bytes, preserving min(old capacity, n)
// bytes of p's contents. A nil p behaves like Allocate; n == 0 frees p
// and returns nil.
func (a *Allocator) Resize(p unsafe.Pointer, n uintptr) unsafe.Pointer {
	if p == nil {
		return a.Allocate(n)
	}
	if n == 0 {
		a.Free(p)
		return nil
	}

	h := header.FromUser(p)
	oldCap := oldCapacity(h)
	newP := a.Allocate(n)
	if newP == nil {
		return nil
	}
	copyBytes(newP, p, minUintptr(oldCap, n))
	a.Free(p)
	return newP
}

func oldCapacity(h *header.Header) uintptr {
	if h.Class == header.LargeClass {
		return uintptr(h.Size) - header.HeaderSize
	}
	return uintptr(h.Size)
}

// ThreadStats reports the calling goroutine's cache counters: small
// blocks handed out (cache hits and refills alike) and small blocks
// freed into the cache.
func (a *Allocator) ThreadStats() (allocs, frees uint64) {
	cache, ok := threadcache.Lookup()
	if !ok {
		return 0, 0
	}
	return cache.Allocs, cache.Frees
}

// PrintTopology logs a minimal diagnostic summary of the discovered
// NUMA layout. This is a diagnostic dump through the logging channel,
// not a formatted report.
func (a *Allocator) PrintTopology() {
	a.logger.WithField("nodes", a.topo.NumNodes).WithField("cpus", a.topo.NumCPUs).Info("numalloc: topology")
	for node := 0; node < a.topo.NumNodes; node++ {
		a.logger.WithField("node", node).WithField("cpus", a.topo.CPUsOnNode(node)).Info("numalloc: node")
	}
}

// Cleanup releases every node pool's backing storage. The Allocator
// must not be used afterward.
func (a *Allocator) Cleanup() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	for _, p := range a.nodePools {
		if err := p.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.nodePools = nil
	a.topo = nil
	return firstErr
}

func zero(p unsafe.Pointer, n uintptr) {
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		b[i] = 0
	}
}

func copyBytes(dst, src unsafe.Pointer, n uintptr) {
	d := unsafe.Slice((*byte)(dst), n)
	s := unsafe.Slice((*byte)(src), n)
	copy(d, s)
}

func minUintptr(a, b uintptr) uintptr {
	if a < b {
		return a
	}
	return b
}
