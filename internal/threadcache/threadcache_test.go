package threadcache

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestPushPopOrder(t *testing.T) {
	c := newCache(0)
	storage := make([]byte, 3*8)

	p0 := unsafe.Pointer(&storage[0])
	p1 := unsafe.Pointer(&storage[8])
	p2 := unsafe.Pointer(&storage[16])

	c.PushSmall(0, p0)
	c.PushSmall(0, p1)
	c.PushSmall(0, p2)

	require.Equal(t, p2, c.PopSmall(0))
	require.Equal(t, p1, c.PopSmall(0))
	require.Equal(t, p0, c.PopSmall(0))
	require.Nil(t, c.PopSmall(0))
}

func TestInstallBatchPrependsAndPreservesExisting(t *testing.T) {
	c := newCache(0)
	storage := make([]byte, 4*8)

	existing := unsafe.Pointer(&storage[0])
	c.PushSmall(1, existing)

	a := unsafe.Pointer(&storage[8])
	b := unsafe.Pointer(&storage[16])
	*(*unsafe.Pointer)(a) = b
	*(*unsafe.Pointer)(b) = nil

	c.InstallBatch(1, a)

	require.Equal(t, a, c.PopSmall(1))
	require.Equal(t, b, c.PopSmall(1))
	require.Equal(t, existing, c.PopSmall(1))
	require.Nil(t, c.PopSmall(1))
}

func TestStatsCounters(t *testing.T) {
	c := newCache(0)
	storage := make([]byte, 8)
	p := unsafe.Pointer(&storage[0])

	c.PushSmall(0, p)
	require.Equal(t, uint64(1), c.Frees)

	c.PopSmall(0)
	require.Equal(t, uint64(1), c.Allocs)
}
