package sizeclass

import "testing"

func TestClassOfLadder(t *testing.T) {
	cases := []struct {
		n     uintptr
		class int
	}{
		{1, 0},
		{16, 0},
		{17, 1},
		{2048, 7},
	}
	for _, c := range cases {
		class, isLarge := ClassOf(c.n)
		if isLarge {
			t.Fatalf("ClassOf(%d): unexpectedly large", c.n)
		}
		if class != c.class {
			t.Errorf("ClassOf(%d) = %d, want %d", c.n, class, c.class)
		}
	}
}

func TestClassOfLarge(t *testing.T) {
	class, isLarge := ClassOf(MaxSmallSize + 1)
	if !isLarge || class != LargeClass {
		t.Fatalf("ClassOf(MaxSmallSize+1) = (%d, %v), want large", class, isLarge)
	}
}

func TestSizeOfRoundTrip(t *testing.T) {
	for i := 0; i < NumClasses; i++ {
		size := SizeOf(i)
		class, isLarge := ClassOf(size)
		if isLarge || class != i {
			t.Errorf("SizeOf(%d)=%d then ClassOf = (%d,%v), want (%d,false)", i, size, class, isLarge, i)
		}
	}
}

func TestSizeOfOutOfRange(t *testing.T) {
	if SizeOf(-1) != 0 || SizeOf(NumClasses) != 0 {
		t.Fatal("SizeOf should return 0 for out-of-range classes")
	}
}
