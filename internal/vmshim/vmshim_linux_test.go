// +build linux

package vmshim

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestReserveCommitRelease(t *testing.T) {
	size := uintptr(4 * int(pageSize))
	addr, err := Reserve(size)
	require.NoError(t, err)
	defer Release(addr, size)

	require.NoError(t, Commit(addr, size))

	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	b[0] = 0xAB
	require.Equal(t, byte(0xAB), b[0])
}

func TestMapAnonZeroed(t *testing.T) {
	size := uintptr(pageSize)
	addr, err := MapAnon(size, false)
	require.NoError(t, err)
	defer Release(addr, size)

	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	for _, v := range b {
		require.Equal(t, byte(0), v)
	}
}

func TestBindPagesFirstTouches(t *testing.T) {
	size := uintptr(pageSize)
	addr, err := MapAnon(size, false)
	require.NoError(t, err)
	defer Release(addr, size)

	require.NoError(t, BindPages(addr, size, 0))
}

func TestAllocOnNodeReservesCommitsAndBinds(t *testing.T) {
	size := uintptr(4 * int(pageSize))
	addr, err := AllocOnNode(size, 0)
	require.NoError(t, err)
	defer Release(addr, size)

	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	b[0] = 0xCD
	require.Equal(t, byte(0xCD), b[0])
}
