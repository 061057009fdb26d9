package physmem

import (
	"errors"
	"testing"
)

func TestNewRegion(tt *testing.T) {
	tt.Parallel()

	tcs := []struct {
		name   string
		base   PhysAddr
		length PhysSize
		expErr error
	}{
		{name: "ok", base: 0x1000, length: 0x1000},
		{name: "zero length", base: 0, length: 0, expErr: ErrInvalidRegion},
		{name: "overflow", base: MaxPhysAddr - 1, length: 0x10, expErr: ErrInvalidRegion},
		{name: "exact top", base: MaxPhysAddr, length: 1},
	}

	for _, tc := range tcs {
		tc := tc

		tt.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, err := NewRegion(tc.base, tc.length)

			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Fatalf("expected %v, got %v", tc.expErr, err)
				}

				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if r.Base() != tc.base {
				t.Errorf("base: want %s, got %s", tc.base, r.Base())
			}

			if r.Last() != tc.base+PhysAddr(tc.length)-1 {
				t.Errorf("last: want %s, got %s", tc.base+PhysAddr(tc.length)-1, r.Last())
			}
		})
	}
}

func TestRegion_Clip(tt *testing.T) {
	tt.Parallel()

	a, _ := NewRegion(0x1000, 0x2000) // [0x1000, 0x2fff]
	b, _ := NewRegion(0x1800, 0x1000) // [0x1800, 0x27ff]

	ok := a.Clip(b)
	if !ok {
		tt.Fatal("expected overlap")
	}

	if a.Base() != 0x1800 || a.Last() != 0x27ff {
		tt.Errorf("clipped region wrong: %s", a)
	}

	c, _ := NewRegion(0x1000, 0x100)
	d, _ := NewRegion(0x2000, 0x100)

	if c.Clip(d) {
		tt.Fatal("expected disjoint regions not to clip")
	}

	if c.Base() != 0x1000 || c.Last() != 0x10ff {
		tt.Errorf("disjoint clip must leave region unchanged, got %s", c)
	}
}

func TestRegion_ClipSelf(tt *testing.T) {
	tt.Parallel()

	r, _ := NewRegion(0x4000, 0x400)
	before := r

	if !r.Clip(r) {
		tt.Fatal("clip(r, r) must be non-empty")
	}

	if r != before {
		tt.Errorf("clip(r, r) must equal r, got %s want %s", r, before)
	}
}

func TestRegion_MakePageAligned(tt *testing.T) {
	tt.Parallel()

	r, _ := NewRegion(0x1001, 0x10)
	aligned := r.MakePageAligned()

	if uint64(aligned.Base())%uint64(PageSize) != 0 {
		tt.Errorf("base not page aligned: %s", aligned)
	}

	if (uint64(aligned.Last())+1)%uint64(PageSize) != 0 {
		tt.Errorf("last+1 not page aligned: %s", aligned)
	}

	if aligned.Base() > r.Base() || aligned.Last() < r.Last() {
		tt.Errorf("aligned region %s must be a superset of %s", aligned, r)
	}
}

func TestRegion_Advance(tt *testing.T) {
	tt.Parallel()

	r, _ := NewRegion(0x1000, 0x1000)
	length := r.Length()

	ok := r.Advance()
	if !ok {
		tt.Fatal("expected advance to succeed")
	}

	if r.Base() != 0x2000 || r.Length() != length {
		tt.Errorf("advance shifted wrong: %s", r)
	}

	top, _ := NewRegion(MaxPhysAddr, 1)
	if top.Advance() {
		tt.Error("advance at top of address space must fail")
	}
}

func TestRegion_Below(tt *testing.T) {
	tt.Parallel()

	r, _ := NewRegion(0x1000, 0x100)

	if !r.Below(0x1101) {
		tt.Error("expected region below 0x1101")
	}

	if r.Below(0x1000) {
		tt.Error("region base is not below its own base")
	}
}
