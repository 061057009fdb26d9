package physmem

import "testing"

func collect(it RegionIterator) []Region {
	var out []Region

	it.Reset()
	for it.MoveNext() {
		out = append(out, it.Current())
	}

	return out
}

func TestSliceIterator(tt *testing.T) {
	tt.Parallel()

	r1, _ := NewRegion(0x0, 0x1000)
	r2, _ := NewRegion(0x2000, 0x1000)

	it := NewSliceIterator([]Region{r1, r2})

	got := collect(it)
	if len(got) != 2 || got[0] != r1 || got[1] != r2 {
		tt.Fatalf("unexpected sequence: %v", got)
	}

	// Reset allows replay.
	got2 := collect(it)
	if len(got2) != 2 {
		tt.Fatalf("replay failed: %v", got2)
	}
}

func TestSliceIterator_CurrentPanicsOutsideElement(tt *testing.T) {
	tt.Parallel()

	defer func() {
		if recover() == nil {
			tt.Fatal("expected panic calling Current before MoveNext")
		}
	}()

	it := NewSliceIterator(nil)
	it.Current()
}

func TestConcatIterator(tt *testing.T) {
	tt.Parallel()

	r1, _ := NewRegion(0x0, 0x1000)
	r2, _ := NewRegion(0x2000, 0x1000)
	r3, _ := NewRegion(0x4000, 0x1000)

	a := NewSliceIterator([]Region{r1, r2})
	b := NewSliceIterator([]Region{r3})

	cat := NewConcatIterator(a, b)

	got := collect(cat)
	want := []Region{r1, r2, r3}

	if len(got) != len(want) {
		tt.Fatalf("want %v, got %v", want, got)
	}

	for i := range want {
		if got[i] != want[i] {
			tt.Errorf("index %d: want %s, got %s", i, want[i], got[i])
		}
	}
}

func TestConcatIterator_EmptyFirst(tt *testing.T) {
	tt.Parallel()

	r1, _ := NewRegion(0x4000, 0x1000)

	a := NewSliceIterator(nil)
	b := NewSliceIterator([]Region{r1})

	cat := NewConcatIterator(a, b)

	got := collect(cat)
	if len(got) != 1 || got[0] != r1 {
		tt.Fatalf("expected single region from second iterator, got %v", got)
	}
}
