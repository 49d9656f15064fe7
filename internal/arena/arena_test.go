package arena

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestAllocReturnsZeroedDistinctRegions(t *testing.T) {
	a, err := Create(1<<20, 64*1024)
	require.NoError(t, err)
	defer a.Destroy()

	p1, err := a.Alloc(16)
	require.NoError(t, err)
	p2, err := a.Alloc(16)
	require.NoError(t, err)
	require.NotEqual(t, p1, p2)

	b := unsafe.Slice((*byte)(p1), 16)
	for _, v := range b {
		require.Equal(t, byte(0), v)
	}
}

func TestManySmallAllocationsThenReset(t *testing.T) {
	a, err := Create(1<<20, 64*1024)
	require.NoError(t, err)
	defer a.Destroy()

	for i := 0; i < 10000; i++ {
		p, err := a.Alloc(16)
		require.NoError(t, err)
		require.NotNil(t, p)
	}

	a.Reset()

	p, err := a.Alloc(512)
	require.NoError(t, err)
	require.Equal(t, headerSize, a.GetPosition()-512)
	b := unsafe.Slice((*byte)(p), 512)
	for _, v := range b {
		require.Equal(t, byte(0), v)
	}
}

func TestAllocBeyondReserveFailsWithoutPanicking(t *testing.T) {
	a, err := Create(64*1024, 64*1024)
	require.NoError(t, err)
	defer a.Destroy()

	p, err := a.Alloc(1 << 20)
	require.Nil(t, p)
	require.ErrorIs(t, err, ErrOutOfReserve)

	// The arena must remain usable after a failed allocation.
	p2, err := a.Alloc(64)
	require.NoError(t, err)
	require.NotNil(t, p2)
}

func TestSetPositionRoundTrip(t *testing.T) {
	a, err := Create(1<<20, 64*1024)
	require.NoError(t, err)
	defer a.Destroy()

	_, err = a.Alloc(128)
	require.NoError(t, err)
	mark := a.GetPosition()

	_, err = a.Alloc(128)
	require.NoError(t, err)

	require.NoError(t, a.SetPosition(mark))
	require.Equal(t, mark, a.GetPosition())

	require.Error(t, a.SetPosition(0))
}

func TestAllocAlignedFallsBackOnNonPowerOfTwo(t *testing.T) {
	a, err := Create(1<<20, 64*1024)
	require.NoError(t, err)
	defer a.Destroy()

	p, err := a.AllocAligned(16, 3)
	require.NoError(t, err)
	require.NotNil(t, p)
}
