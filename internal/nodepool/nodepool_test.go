package nodepool

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/noahbean33/memory-allocator/internal/header"
)

func TestRefillBatchSizesHeaderAndCount(t *testing.T) {
	blockSize := header.HeaderSize + 64
	pool, err := New(0, blockSize*RefillBatchSize*2)
	require.NoError(t, err)
	defer pool.Release()

	first, rest, err := pool.RefillBatch(2) // class 2 -> 64 bytes
	require.NoError(t, err)
	require.NotNil(t, first)

	h := header.FromUser(first)
	require.Equal(t, int32(2), h.Class)
	require.Equal(t, uint64(64), h.Size)

	count := 1
	cur := rest
	for cur != nil {
		count++
		cur = *(*unsafe.Pointer)(cur)
	}
	require.Equal(t, RefillBatchSize, count)
}

func TestRefillBatchDoesNotDoubleTrackFirst(t *testing.T) {
	blockSize := header.HeaderSize + 16
	pool, err := New(0, blockSize*RefillBatchSize*2)
	require.NoError(t, err)
	defer pool.Release()

	first, rest, err := pool.RefillBatch(0)
	require.NoError(t, err)

	cur := rest
	for cur != nil {
		require.NotEqual(t, first, cur, "first block must not be reachable from the installed free-list head")
		cur = *(*unsafe.Pointer)(cur)
	}
}

func TestRefillBatchExhaustion(t *testing.T) {
	blockSize := header.HeaderSize + 2048
	pool, err := New(0, blockSize*RefillBatchSize) // page rounding leaves room for one class-7 batch, not two
	require.NoError(t, err)
	defer pool.Release()

	_, _, err = pool.RefillBatch(7)
	require.NoError(t, err)

	_, _, err = pool.RefillBatch(7)
	require.ErrorIs(t, err, ErrNodeExhausted)
}
