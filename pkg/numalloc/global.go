package numalloc

import (
	"sync"
	"unsafe"

	"github.com/noahbean33/memory-allocator/internal/threadcache"
)

var (
	globalMu sync.Mutex
	global   *Allocator
)

// Init constructs the process-wide allocator singleton. It returns
// ErrAlreadyInitialized if called twice without an intervening
// Cleanup; a plain mutex-guarded pointer is used instead of sync.Once
// so that Cleanup followed by Init can succeed again.
func Init(perNodeBytes uintptr, opts ...Option) error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		return ErrAlreadyInitialized
	}
	a, err := New(perNodeBytes, opts...)
	if err != nil {
		return err
	}
	global = a
	return nil
}

func currentGlobal() *Allocator {
	globalMu.Lock()
	defer globalMu.Unlock()
	return global
}

// Allocate delegates to the process-wide singleton. It returns nil if
// Init has not been called.
func Allocate(n uintptr) unsafe.Pointer {
	a := currentGlobal()
	if a == nil {
		return nil
	}
	return a.Allocate(n)
}

// Free delegates to the process-wide singleton. It is a no-op if Init
// has not been called.
func Free(p unsafe.Pointer) {
	if a := currentGlobal(); a != nil {
		a.Free(p)
	}
}

// Zeroed delegates to the process-wide singleton.
func Zeroed(num, size uintptr) unsafe.Pointer {
	a := currentGlobal()
	if a == nil {
		return nil
	}
	return a.Zeroed(num, size)
}

// Resize delegates to the process-wide singleton.
func Resize(p unsafe.Pointer, n uintptr) unsafe.Pointer {
	a := currentGlobal()
	if a == nil {
		return nil
	}
	return a.Resize(p, n)
}

// ThreadStats delegates to the process-wide singleton.
func ThreadStats() (allocs, frees uint64) {
	a := currentGlobal()
	if a == nil {
		return 0, 0
	}
	return a.ThreadStats()
}

// PrintTopology delegates to the process-wide singleton.
func PrintTopology() {
	if a := currentGlobal(); a != nil {
		a.PrintTopology()
	}
}

// Cleanup tears down the process-wide singleton, releasing its node
// pools and clearing every registered thread cache so a subsequent
// Init starts from a clean slate.
func Cleanup() error {
	globalMu.Lock()
	a := global
	global = nil
	globalMu.Unlock()

	if a == nil {
		return nil
	}
	err := a.Cleanup()
	threadcache.Reset()
	return err
}
