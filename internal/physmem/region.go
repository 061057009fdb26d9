package physmem

import (
	"errors"
	"fmt"
)

// ErrInvalidRegion is returned when a region's bounds would violate an
// invariant: zero length, or a span that would cross MaxPhysAddr.
var ErrInvalidRegion = errors.New("physmem: invalid region")

// Region is a closed interval [base, last] in physical address space. The
// invariants base <= last <= MaxPhysAddr and length = last-base+1 >= 1 hold
// for every Region that NewRegion returns; a Region can never span the
// entire address space (length is at most MaxPhysAddr, one byte short,
// since base must be at least 0 and last at most MaxPhysAddr would require
// length = MaxPhysAddr+1).
type Region struct {
	base PhysAddr
	last PhysAddr
}

// NewRegion creates a Region spanning length bytes starting at base. It
// fails if length is zero or if the region would extend past MaxPhysAddr.
func NewRegion(base PhysAddr, length PhysSize) (Region, error) {
	if length == 0 {
		return Region{}, fmt.Errorf("%w: zero length", ErrInvalidRegion)
	}

	if length-1 > PhysSize(MaxPhysAddr-base) {
		return Region{}, fmt.Errorf("%w: base %s length %#x overflows", ErrInvalidRegion, base, length)
	}

	return Region{base: base, last: base + PhysAddr(length-1)}, nil
}

// Base returns the region's first address.
func (r Region) Base() PhysAddr { return r.base }

// Last returns the region's final (inclusive) address.
func (r Region) Last() PhysAddr { return r.last }

// Length returns the number of bytes the region covers.
func (r Region) Length() PhysSize { return PhysSize(r.last-r.base) + 1 }

// Below reports whether the region ends strictly before addr.
func (r Region) Below(addr PhysAddr) bool { return r.last < addr }

// Empty reports whether the region has no bounds set (the zero value).
func (r Region) Empty() bool { return r.last == 0 && r.base == 0 }

// Clip intersects r with other in place, returning whether the result is
// non-empty. If the two regions are disjoint, r is left unchanged and Clip
// returns false.
func (r *Region) Clip(other Region) bool {
	base := r.base
	if other.base > base {
		base = other.base
	}

	last := r.last
	if other.last < last {
		last = other.last
	}

	if base > last {
		return false
	}

	r.base, r.last = base, last

	return true
}

// MakePageAligned grows the region outward, never shrinking it, so both
// ends align to PageSize.
func (r Region) MakePageAligned() Region {
	base := PageAlignDown(r.base)
	last := PageAlignDown(r.last) + PhysAddr(PageSize-1)

	return Region{base: base, last: last}
}

// Advance slides the region to [last+1, last+length], preserving its current
// length. It reports false, leaving r unchanged, if the new region would not
// fit below MaxPhysAddr.
func (r *Region) Advance() bool {
	length := r.Length()

	if r.last == MaxPhysAddr {
		return false
	}

	newBase := r.last + 1
	if length-1 > PhysSize(MaxPhysAddr-newBase) {
		return false
	}

	r.base = newBase
	r.last = newBase + PhysAddr(length-1)

	return true
}

func (r Region) String() string {
	return fmt.Sprintf("[%s, %s] (%#x bytes)", r.base, r.last, uint64(r.Length()))
}
