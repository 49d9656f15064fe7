// Package arena implements the secondary reserve/commit linear arena:
// a single contiguous virtual-address reservation that grows its
// committed region in fixed increments and is carved up with a plain
// bump pointer, sharing the vmshim substrate with the main allocator.
package arena

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/noahbean33/memory-allocator/internal/vmshim"
)

// Sentinel errors.
var (
	ErrArenaCreateFailed = errors.New("arena: create failed")
	ErrOutOfReserve      = errors.New("arena: out of reserve")
)

const arenaMagic = 0x41524e41 // "ARNA"

type arenaHeader struct {
	magic       uint64
	reserveSize uint64
	commitUnit  uint64
}

// headerSize is the bump pointer's starting position, reserving room
// for arenaHeader at the base of the mapping.
const headerSize = unsafe.Sizeof(arenaHeader{})

const wordAlign = unsafe.Alignof(uintptr(0))

// Arena is a single reserve/commit linear allocation region.
type Arena struct {
	base        unsafe.Pointer
	reserveSize uintptr
	commitUnit  uintptr
	position    uintptr
	committed   uintptr
}

// Create reserves reserveSize bytes of address space and eagerly
// commits the first commitUnit bytes (clamped to reserveSize).
func Create(reserveSize, commitUnit uintptr) (*Arena, error) {
	reserveSize = alignUp(reserveSize, uintptr(vmshim.PageSize()))
	commitUnit = alignUp(commitUnit, uintptr(vmshim.PageSize()))
	if commitUnit > reserveSize {
		commitUnit = reserveSize
	}

	base, err := vmshim.Reserve(reserveSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArenaCreateFailed, err)
	}
	if err := vmshim.Commit(base, commitUnit); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArenaCreateFailed, err)
	}

	a := &Arena{
		base:        unsafe.Pointer(base),
		reserveSize: reserveSize,
		commitUnit:  commitUnit,
		position:    headerSize,
		committed:   commitUnit,
	}
	h := (*arenaHeader)(a.base)
	*h = arenaHeader{magic: arenaMagic, reserveSize: uint64(reserveSize), commitUnit: uint64(commitUnit)}
	return a, nil
}

// Alloc bumps the arena pointer by n bytes, committing additional
// commitUnit-sized chunks as needed, and returns zero-filled storage.
// It returns nil, ErrOutOfReserve if n would exceed the reservation.
func (a *Arena) Alloc(n uintptr) (unsafe.Pointer, error) {
	return a.AllocAligned(n, wordAlign)
}

// AllocAligned behaves like Alloc but aligns the returned address to
// align. An align that is zero or not a power of two is replaced by
// word alignment.
func (a *Arena) AllocAligned(n uintptr, align uintptr) (unsafe.Pointer, error) {
	if align == 0 || align&(align-1) != 0 {
		align = wordAlign
	}
	start := alignUp(a.position, align)
	end := start + n
	if end > a.reserveSize {
		return nil, ErrOutOfReserve
	}
	if end > a.committed {
		newCommitted := alignUp(end, a.commitUnit)
		if newCommitted > a.reserveSize {
			newCommitted = a.reserveSize
		}
		if err := vmshim.Commit(uintptr(a.base)+a.committed, newCommitted-a.committed); err != nil {
			return nil, fmt.Errorf("arena: commit: %w", err)
		}
		a.committed = newCommitted
	}

	p := unsafe.Add(a.base, start)
	zero(p, n)
	a.position = end
	return p, nil
}

// Reset rewinds the bump pointer to the start of usable storage
// without releasing committed pages, so subsequent allocations reuse
// them.
func (a *Arena) Reset() {
	a.position = headerSize
}

// GetPosition returns the current bump-pointer offset, usable as a
// save point for SetPosition.
func (a *Arena) GetPosition() uintptr {
	return a.position
}

// SetPosition restores a previously captured watermark.
func (a *Arena) SetPosition(p uintptr) error {
	if p < headerSize || p > a.reserveSize {
		return fmt.Errorf("arena: position %d out of range", p)
	}
	a.position = p
	return nil
}

// Destroy releases the arena's full reservation back to the OS.
func (a *Arena) Destroy() error {
	return vmshim.Release(uintptr(a.base), a.reserveSize)
}

func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

func zero(p unsafe.Pointer, n uintptr) {
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		b[i] = 0
	}
}
