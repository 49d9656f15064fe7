// Package threadcache implements the per-thread (per-goroutine) free
// list cache that services the allocator's fast path without taking
// any lock.
package threadcache

import (
	"unsafe"

	"github.com/noahbean33/memory-allocator/internal/sizeclass"
)

// Cache holds one free-list head per size class for a single logical
// thread, plus running counters used by ThreadStats.
type Cache struct {
	Node int

	heads  [sizeclass.NumClasses]unsafe.Pointer
	Allocs uint64
	Frees  uint64
}

func newCache(node int) *Cache {
	return &Cache{Node: node}
}

// PopSmall removes and returns the head of class's free list, or nil
// on a cache miss.
func (c *Cache) PopSmall(class int) unsafe.Pointer {
	head := c.heads[class]
	if head == nil {
		return nil
	}
	c.heads[class] = *(*unsafe.Pointer)(head)
	c.Allocs++
	return head
}

// PushSmall returns p to the front of class's free list.
func (c *Cache) PushSmall(class int, p unsafe.Pointer) {
	*(*unsafe.Pointer)(p) = c.heads[class]
	c.heads[class] = p
	c.Frees++
}

// InstallBatch puts the stack rooted at head in front of class's free
// list, keeping any blocks already on it; used after a node-pool refill.
func (c *Cache) InstallBatch(class int, head unsafe.Pointer) {
	if head == nil {
		return
	}
	tail := head
	for {
		next := *(*unsafe.Pointer)(tail)
		if next == nil {
			break
		}
		tail = next
	}
	*(*unsafe.Pointer)(tail) = c.heads[class]
	c.heads[class] = head
}
