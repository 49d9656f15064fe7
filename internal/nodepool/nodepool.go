// Package nodepool implements the per-NUMA-node bump-allocated VM
// pool that backs thread-cache refills. Large blocks do not come from
// it; they are mapped directly by package largeblock.
package nodepool

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/noahbean33/memory-allocator/internal/header"
	"github.com/noahbean33/memory-allocator/internal/sizeclass"
	"github.com/noahbean33/memory-allocator/internal/vmshim"
)

// RefillBatchSize is the number of blocks pulled from a node pool into
// a thread cache on a single miss.
const RefillBatchSize = 64

// ErrNodeExhausted is returned when a node pool's reservation has been
// fully consumed.
var ErrNodeExhausted = errors.New("nodepool: exhausted")

// NodePool is a monotonically growing bump allocator backed by one
// first-touched VM region on a single NUMA node.
type NodePool struct {
	id   int
	base unsafe.Pointer
	size uintptr

	mu   sync.Mutex
	used uintptr
}

// New reserves and first-touches size bytes of storage on node. It
// prefers the combined reserve+commit+bind primitive and falls back to
// a plain mapping plus a separate bind call only when that primitive
// fails outright.
func New(node int, size uintptr) (*NodePool, error) {
	if size >= vmshim.HugePageSize {
		size = alignUp(size, vmshim.HugePageSize)
	} else {
		size = alignUp(size, uintptr(vmshim.PageSize()))
	}

	addr, err := vmshim.AllocOnNode(size, node)
	if err != nil {
		addr, err = vmshim.MapAnon(size, size >= vmshim.HugePageSize)
		if err != nil {
			return nil, fmt.Errorf("nodepool: map node %d: %w", node, err)
		}
		if err := vmshim.BindPages(addr, size, node); err != nil {
			return nil, fmt.Errorf("nodepool: bind node %d: %w", node, err)
		}
	}
	return &NodePool{id: node, base: unsafe.Pointer(addr), size: size}, nil
}

// ID returns the NUMA node this pool is bound to.
func (p *NodePool) ID() int { return p.id }

// Used returns the number of bytes handed out so far.
func (p *NodePool) Used() uintptr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.used
}

// Release returns the pool's backing VM to the OS.
func (p *NodePool) Release() error {
	return vmshim.Release(uintptr(p.base), p.size)
}

// reserveBatch bumps the pool watermark by n bytes and returns the
// start address of the reserved span.
func (p *NodePool) reserveBatch(n uintptr) (unsafe.Pointer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.used+n > p.size {
		return nil, ErrNodeExhausted
	}
	start := unsafe.Add(p.base, p.used)
	p.used += n
	return start, nil
}

// RefillBatch carves RefillBatchSize blocks of class's size out of the
// pool, links them into a singly-linked free stack threaded through
// each block's user storage, pops the top entry as first, and returns
// the remaining stack as rest. The popped block is never reachable
// from rest, so installing rest into a thread cache cannot
// double-track the block the caller is about to use.
func (p *NodePool) RefillBatch(class int) (first, rest unsafe.Pointer, err error) {
	blockSize := header.HeaderSize + sizeclass.SizeOf(class)
	span, err := p.reserveBatch(blockSize * RefillBatchSize)
	if err != nil {
		return nil, nil, err
	}

	var stack unsafe.Pointer
	for i := uintptr(0); i < RefillBatchSize; i++ {
		headerAddr := unsafe.Add(span, i*blockSize)
		header.Write(headerAddr, header.Header{
			Size:  uint64(sizeclass.SizeOf(class)),
			Class: int32(class),
			Node:  int32(p.id),
		})
		userPtr := header.UserPointer(headerAddr)
		*(*unsafe.Pointer)(userPtr) = stack
		stack = userPtr
	}

	first = stack
	rest = *(*unsafe.Pointer)(first)
	*(*unsafe.Pointer)(first) = nil
	return first, rest, nil
}

func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}
