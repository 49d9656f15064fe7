// Package header encodes the fixed-size metadata word stored
// immediately before every user pointer returned by the allocator,
// allowing free() to classify a block in O(1) without consulting any
// side table.
package header

import "unsafe"

// LargeClass marks a header as belonging to the large-allocation path
// rather than a size class.
const LargeClass int32 = -1

// Header is the metadata stored just before the user-visible pointer.
type Header struct {
	Size  uint64 // class size for small blocks; whole mapping length, header included, for large blocks
	Class int32  // size-class index, or LargeClass
	Node  int32  // NUMA node the backing storage was drawn from
}

// HeaderSize is the fixed header footprint prepended to every block.
const HeaderSize = unsafe.Sizeof(Header{})

// Write stores h at headerAddr.
func Write(headerAddr unsafe.Pointer, h Header) {
	*(*Header)(headerAddr) = h
}

// At reinterprets headerAddr as a *Header without copying.
func At(headerAddr unsafe.Pointer) *Header {
	return (*Header)(headerAddr)
}

// FromUser recovers the header for a previously returned user pointer.
func FromUser(userPtr unsafe.Pointer) *Header {
	return At(HeaderAddr(userPtr))
}

// UserPointer returns the user-visible pointer for a block whose
// header begins at headerAddr.
func UserPointer(headerAddr unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(headerAddr, HeaderSize)
}

// HeaderAddr returns the header address for a block whose user pointer
// is userPtr.
func HeaderAddr(userPtr unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(userPtr, -int(HeaderSize))
}
