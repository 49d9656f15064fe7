// +build linux

package vmshim

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Reserve carves out a contiguous range of virtual address space
// without committing physical pages behind it. The returned region is
// backed by an anonymous, inaccessible (PROT_NONE) mapping so later
// Commit calls only need to widen protection.
func Reserve(size uintptr) (uintptr, error) {
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrReserveFailed, err)
	}
	return uintptr(unsafe.Pointer(&b[0])), nil
}

// Commit makes [addr, addr+size) readable and writable.
func Commit(addr, size uintptr) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	if err := unix.Mprotect(b, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	return nil
}

// Release returns the full reservation to the OS.
func Release(addr, size uintptr) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return unix.Munmap(b)
}

// MapAnon maps a fresh, already-committed anonymous region sized size,
// optionally attempting a huge-page backing when hugePreferred is set
// and size is huge-page aligned. It falls back to a regular mapping
// with a transparent-huge-page madvise hint on failure.
func MapAnon(size uintptr, hugePreferred bool) (uintptr, error) {
	flags := unix.MAP_ANON | unix.MAP_PRIVATE
	if hugePreferred && size >= HugePageSize && size%HugePageSize == 0 {
		b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, flags|unix.MAP_HUGETLB)
		if err == nil {
			return uintptr(unsafe.Pointer(&b[0])), nil
		}
	}
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrReserveFailed, err)
	}
	_ = unix.Madvise(b, unix.MADV_HUGEPAGE)
	return uintptr(unsafe.Pointer(&b[0])), nil
}

// BindPages first-touches every page of [addr, addr+size) while the
// calling OS thread is pinned to a CPU on node, so the kernel's
// first-touch placement policy lands the pages on that node. This is
// a best-effort approximation: golang.org/x/sys/unix has no mbind(2)
// binding, so explicit placement relies entirely on first-touch.
func BindPages(addr, size uintptr, node int) error {
	cpu, ok := firstCPUForNode(node)
	if !ok {
		firstTouch(addr, size)
		return nil
	}
	withCPUAffinity(cpu, func() {
		firstTouch(addr, size)
	})
	return nil
}

func firstTouch(addr, size uintptr) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	for i := 0; i < len(b); i += int(pageSize) {
		b[i] = 0
	}
}

// withCPUAffinity pins the calling goroutine's OS thread to cpu for
// the duration of fn, restoring the previous affinity mask afterward.
func withCPUAffinity(cpu int, fn func()) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		fn()
		return
	}
	var want unix.CPUSet
	want.Set(cpu)
	if err := unix.SchedSetaffinity(0, &want); err != nil {
		fn()
		return
	}
	fn()
	_ = unix.SchedSetaffinity(0, &prev)
}

// firstCPUForNode reads the lowest-numbered CPU in
// /sys/devices/system/node/nodeN/cpulist.
func firstCPUForNode(node int) (int, bool) {
	path := fmt.Sprintf("/sys/devices/system/node/node%d/cpulist", node)
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return 0, false
	}
	first := strings.SplitN(s, ",", 2)[0]
	first = strings.SplitN(first, "-", 2)[0]
	cpu, err := strconv.Atoi(first)
	if err != nil {
		return 0, false
	}
	return cpu, true
}
