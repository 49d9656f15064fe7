// Package largeblock implements the allocation path for requests too
// big for the size-class ladder: a dedicated VM mapping per
// allocation, huge-page backed where possible.
package largeblock

import (
	"fmt"
	"unsafe"

	"github.com/noahbean33/memory-allocator/internal/header"
	"github.com/noahbean33/memory-allocator/internal/vmshim"
)

// Allocate maps a fresh region sized to hold n user bytes plus the
// block header, first-touches it on node, and returns the user
// pointer.
func Allocate(n uintptr, node int) (unsafe.Pointer, error) {
	m := n + header.HeaderSize
	var total uintptr
	if m >= vmshim.HugePageSize {
		total = alignUp(m, vmshim.HugePageSize)
	} else {
		total = alignUp(m, uintptr(vmshim.PageSize()))
	}
	addr, err := vmshim.MapAnon(total, total >= vmshim.HugePageSize)
	if err != nil {
		return nil, fmt.Errorf("largeblock: map: %w", err)
	}
	if err := vmshim.BindPages(addr, total, node); err != nil {
		return nil, fmt.Errorf("largeblock: bind: %w", err)
	}

	headerAddr := unsafe.Pointer(addr)
	header.Write(headerAddr, header.Header{
		Size:  uint64(total),
		Class: header.LargeClass,
		Node:  int32(node),
	})
	return header.UserPointer(headerAddr), nil
}

// Free releases the mapping backing a previously returned large
// pointer.
func Free(userPtr unsafe.Pointer) error {
	h := header.FromUser(userPtr)
	return vmshim.Release(uintptr(header.HeaderAddr(userPtr)), uintptr(h.Size))
}

func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}
