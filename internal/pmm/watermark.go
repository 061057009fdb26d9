package pmm

import (
	"fmt"

	"github.com/smoynes/bootcore/internal/ksync"
	"github.com/smoynes/bootcore/internal/physmem"
)

// windowWords is the number of bitmap words the watermark allocator's window
// bitmap is statically sized to hold. The window therefore always covers
// exactly windowWords*wordBits frames, and advance (spec §4.6) is a pure
// address increment: the window's length never changes, only its base.
const windowWords = 16

// windowPages is the number of frames one window covers.
const windowPages = windowWords * wordBits

// WatermarkAllocator is the allocator stage one of boot runs on: it slides a
// fixed-size bitmap-backed window across physical memory, handing out pages
// one at a time with no support for freeing. It exists because the real
// frame database's backing storage has to come from somewhere, and stage one
// runs before there is anywhere else to get it from (§4.6).
//
// The window's bitmap storage is a fixed-size array embedded in the
// allocator itself, rebuilt in place every time the window slides — there is
// no heap allocation on the allocation path, which matters since this
// allocator runs before any other allocator exists to serve one.
//
// It is guarded by a plain Lock rather than lock-free atomics alone: a
// window transition touches every bit of the bitmap at once, which is well
// beyond what a single CAS can make atomic, so the whole rebuild is
// serialized. The bits within a live window are still flipped with the
// bitmap allocator's own CAS loop; the Lock exists for rebuilds, not for bit
// twiddling (§5).
type WatermarkAllocator struct {
	lock *ksync.Lock

	window  physmem.Region
	storage [windowWords]ksync.Cell
	bitmap  *BitmapAllocator

	ram  physmem.RegionIterator
	used physmem.RegionIterator

	withheldPages uint64
	exhausted     bool
}

// NewWatermarkAllocator builds a watermark allocator whose first window
// starts at physical address 0. ram is the RegionIterator over usable
// memory; used is the RegionIterator over everything that must never be
// handed out — reserved firmware ranges concatenated with boot modules and
// the kernel's own image (spec §4.6) — and may be nil if there is nothing to
// exclude. gate is the interrupt-disabling capability backing the
// allocator's lock.
func NewWatermarkAllocator(gate ksync.InterruptGate, ram, used physmem.RegionIterator) (*WatermarkAllocator, error) {
	first, err := physmem.NewRegion(0, physmem.PhysSize(windowPages)*physmem.PageSize)
	if err != nil {
		return nil, fmt.Errorf("pmm: sizing first window: %w", err)
	}

	w := &WatermarkAllocator{
		lock:   ksync.New(gate, false),
		window: first,
		ram:    ram,
		used:   used,
	}

	if err := w.rebuildWindow(); err != nil {
		return nil, err
	}

	return w, nil
}

// Allocate hands out the next free frame within the current window,
// advancing to successive windows as each is exhausted (spec §4.6). The
// colour hint every real allocate(colour_hint) call accepts is ignored here,
// the same way the bitmap allocator beneath it ignores one: nothing in this
// core yet steers allocation by cache colour. It never returns physical
// address 0.
func (w *WatermarkAllocator) Allocate() (physmem.PhysAddr, error) {
	tok := w.lock.Acquire()
	defer w.lock.Release(tok)

	for {
		if addr, err := w.bitmap.Allocate(); err == nil {
			return addr, nil
		}

		if !w.window.Advance() {
			return 0, fmt.Errorf("pmm: watermark allocator reached the top of physical memory")
		}

		if err := w.rebuildWindow(); err != nil {
			return 0, err
		}

		if w.exhausted {
			return 0, fmt.Errorf("pmm: no more usable RAM regions")
		}
	}
}

// WithheldPages reports how many pages have been excluded from allocation so
// far: the null frame, plus every frame the used iterator claimed while a
// window it overlapped was live.
func (w *WatermarkAllocator) WithheldPages() uint64 {
	return w.withheldPages
}

// rebuildWindow reinitializes the bitmap over the current window: every
// frame starts allocated, RAM frees what it actually covers, and the used
// iterator re-claims whatever RAM handed back (spec §4.6, steps 1-3).
func (w *WatermarkAllocator) rebuildWindow() error {
	for i := range w.storage {
		w.storage[i].Store(^uint64(0))
	}

	w.bitmap = newBitmapAllocatorOverWords(w.window.Base(), windowPages, w.storage[:])

	anyRAM := false

	w.ram.Reset()

	for w.ram.MoveNext() {
		region := w.ram.Current()

		if !region.Below(w.window.Base()) {
			anyRAM = true
		}

		if isect := region; isect.Clip(w.window) {
			w.freeIntersection(isect)
		}
	}

	if w.used != nil {
		w.used.Reset()

		for w.used.MoveNext() {
			if isect := w.used.Current(); isect.Clip(w.window) {
				w.claimIntersection(isect)
			}
		}
	}

	if w.window.Base() == 0 {
		w.claimFrame(0)
	}

	w.exhausted = !anyRAM

	return nil
}

// freeIntersection marks every frame of r, grown outward to whole frames, as
// free in the window bitmap.
func (w *WatermarkAllocator) freeIntersection(r physmem.Region) {
	aligned := r.MakePageAligned()
	if !aligned.Clip(w.window) {
		return
	}

	npages := uint64(aligned.Length()) / uint64(physmem.PageSize)
	base := aligned.Base()

	for i := uint64(0); i < npages; i++ {
		addr := base + physmem.PhysAddr(i)*physmem.PhysAddr(physmem.PageSize)
		// Overlapping RAM regions would double-free the same frame; that is
		// a malformed boot-info input, not a watermark-allocator bug, so the
		// error is silently ignored here rather than surfaced mid-rebuild.
		_ = w.bitmap.Free(addr)
	}
}

// claimIntersection marks every frame of r, grown outward to whole frames, as
// allocated in the window bitmap, counting each newly-withheld frame.
func (w *WatermarkAllocator) claimIntersection(r physmem.Region) {
	aligned := r.MakePageAligned()
	if !aligned.Clip(w.window) {
		return
	}

	npages := uint64(aligned.Length()) / uint64(physmem.PageSize)
	base := aligned.Base()

	for i := uint64(0); i < npages; i++ {
		w.claimFrame(base + physmem.PhysAddr(i)*physmem.PhysAddr(physmem.PageSize))
	}
}

// claimFrame marks the single frame at addr allocated, counting it as
// withheld if it was not already claimed (e.g. by an overlapping used
// region, or frame zero coinciding with reserved memory).
func (w *WatermarkAllocator) claimFrame(addr physmem.PhysAddr) {
	if err := w.bitmap.AllocateSpecific(addr); err == nil {
		w.withheldPages++
	}
}
