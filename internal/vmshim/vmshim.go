// Package vmshim is the platform virtual-memory shim: the only layer
// in the allocator that talks to the operating system for address
// space reservation, commit, huge pages, and first-touch node binding.
// Platform-specific implementations live in vmshim_linux.go and
// vmshim_fallback.go.
package vmshim

import (
	"errors"
	"os"
)

// Sentinel errors surfaced by the platform implementations.
var (
	ErrReserveFailed = errors.New("vmshim: reserve failed")
	ErrCommitFailed  = errors.New("vmshim: commit failed")
	ErrProtectFailed = errors.New("vmshim: protect failed")
)

// HugePageSize is the size of a transparent/explicit huge page on the
// platforms this shim targets. Requests below this size never attempt
// a huge mapping.
const HugePageSize = 2 * 1024 * 1024

var pageSize = uint32(os.Getpagesize())

// PageSize returns the native OS page size.
func PageSize() uint32 { return pageSize }

// AllocOnNode reserves, commits, and binds a size-byte region on node
// in one step, per §4.1's alloc_on_node convenience. Callers whose
// platform primitive fails should fall back to MapAnon+BindPages.
func AllocOnNode(size uintptr, node int) (uintptr, error) {
	addr, err := Reserve(size)
	if err != nil {
		return 0, err
	}
	if err := Commit(addr, size); err != nil {
		_ = Release(addr, size)
		return 0, err
	}
	if err := BindPages(addr, size, node); err != nil {
		_ = Release(addr, size)
		return 0, err
	}
	return addr, nil
}
