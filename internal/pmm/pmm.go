// Package pmm implements the kernel's two-stage physical memory manager
// (spec §4.6): a watermark allocator that bootstraps the machine before any
// bookkeeping storage exists, handing off to a bitmap-backed frame database
// once the kernel has somewhere to put one.
package pmm

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/smoynes/bootcore/internal/ksync"
	"github.com/smoynes/bootcore/internal/physmem"
)

// ErrStageTwoNotReady is returned by operations that require the bitmap
// allocator, before InitStageTwo has run.
var ErrStageTwoNotReady = errors.New("pmm: stage two not initialized")

// ErrAlreadyStageTwo is returned if InitStageTwo is called more than once.
var ErrAlreadyStageTwo = errors.New("pmm: stage two already initialized")

// ErrStorageTooSmall is returned by InitStageTwo when the caller's storage
// cannot hold a bit for every one of totalPages frames.
var ErrStorageTooSmall = errors.New("pmm: stage two storage too small")

// Stats summarizes the allocator's current state for diagnostics.
type Stats struct {
	TotalPages    uint64
	FreePages     uint64
	ReservedPages uint64

	// FramesWithheld counts pages the watermark allocator never made
	// allocatable at all: the null frame at address 0, and whole pages
	// carved away by reserved memory and boot modules while sliding (§12).
	FramesWithheld uint64
}

// PhysicalMemoryManager is the façade the rest of the kernel allocates
// through. It starts in stage one (watermark only) and transitions to stage
// two (bitmap, with free support) exactly once, via InitStageTwo.
type PhysicalMemoryManager struct {
	watermark *WatermarkAllocator
	bitmap    *BitmapAllocator
	stage2    ksync.FlagCell

	totalPages    uint64
	reservedPages uint64
}

// InitStageOne saves the RAM, reserved, and module iterators, concatenating
// reserved then modules into the single "used" iterator the watermark
// allocator excludes (spec §4.6), and builds the watermark allocator over
// ram. modules may be nil if the boot loader reported none. bootinfo's
// BootInfo.ModuleRegions covers the running kernel's own image only when
// the caller passes that image as one of its extra regions.
//
// It returns the byte size the caller must reserve for stage two's frame
// database, computed from the highest frame number the RAM iterator
// reports, alongside the manager itself. It must be called exactly once,
// before any page is allocated.
func InitStageOne(gate ksync.InterruptGate, ram, reserved, modules physmem.RegionIterator) (*PhysicalMemoryManager, uint64, error) {
	var used physmem.RegionIterator

	switch {
	case reserved != nil && modules != nil:
		used = physmem.NewConcatIterator(reserved, modules)
	case reserved != nil:
		used = reserved
	case modules != nil:
		used = modules
	}

	totalPages := highestFrameCount(ram)

	w, err := NewWatermarkAllocator(gate, ram, used)
	if err != nil {
		return nil, 0, fmt.Errorf("pmm: stage one: %w", err)
	}

	bitmapBytes := (totalPages + 7) / 8

	return &PhysicalMemoryManager{watermark: w, totalPages: totalPages}, bitmapBytes, nil
}

// highestFrameCount scans every region ram yields to find the frame count
// implied by the highest address reported, then rewinds the iterator so
// stage one's own pass over it starts from the beginning. It returns 0 if
// ram yields no regions at all.
func highestFrameCount(ram physmem.RegionIterator) uint64 {
	ram.Reset()

	var highest physmem.PhysAddr

	seen := false

	for ram.MoveNext() {
		if r := ram.Current(); !seen || r.Last() > highest {
			highest = r.Last()
			seen = true
		}
	}

	ram.Reset()

	if !seen {
		return 0
	}

	return (uint64(highest) + uint64(physmem.PageSize)) / uint64(physmem.PageSize)
}

// InitStageTwo replaces the watermark allocator with a bitmap-backed frame
// database over the totalPages frame count InitStageOne already computed,
// using storage as its backing words (spec §4.6: "init_stage_two(buf, size)
// ... replaces the watermark allocator with a full page-frame database
// backed by buf" — the full database design is deferred in this core, so a
// bitmap allocator stands in for it). size is the byte-size contract
// InitStageOne returned, checked here as a sanity bound on storage rather
// than re-derived: a caller that sized its buffer from a stale or
// mismatched InitStageOne call is a bug this guards against, not a case to
// silently tolerate.
//
// Frames the watermark allocator already handed out or withheld are not
// re-excluded from the new bitmap: tracking that handoff is part of the
// full frame-database design this core defers, so any caller relying on
// InitStageTwo to recover or protect watermark-era allocations must do so
// itself, before publishing the PhysicalMemoryManager any wider. After this
// call, Allocate and Free both go through the bitmap.
func (p *PhysicalMemoryManager) InitStageTwo(storage []ksync.Cell, base physmem.PhysAddr, size uint64) error {
	if p.stage2.Load() {
		return ErrAlreadyStageTwo
	}

	wantBytes := (p.totalPages + 7) / 8
	if size < wantBytes {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrStorageTooSmall, wantBytes, size)
	}

	needed := (p.totalPages + wordBits - 1) / wordBits
	if uint64(len(storage)) < needed {
		return fmt.Errorf("%w: need %d words, got %d", ErrStorageTooSmall, needed, len(storage))
	}

	words := storage[:needed]
	for i := range words {
		words[i].Store(0)
	}

	p.bitmap = newBitmapAllocatorOverWords(base, p.totalPages, words)
	p.stage2.Store(true)

	return nil
}

// Allocate hands out one free physical page, going through the bitmap
// allocator once stage two is live, or the watermark allocator before then.
func (p *PhysicalMemoryManager) Allocate() (physmem.PhysAddr, error) {
	if p.stage2.Load() {
		return p.bitmap.Allocate()
	}

	return p.watermark.Allocate()
}

// Free releases a page previously returned by Allocate. It is only valid
// once stage two has started — the watermark allocator never reclaims.
func (p *PhysicalMemoryManager) Free(addr physmem.PhysAddr) error {
	if !p.stage2.Load() {
		return ErrStageTwoNotReady
	}

	return p.bitmap.Free(addr)
}

// Stats reports the manager's current state. Before stage two, only
// FramesWithheld is meaningful, since the watermark allocator keeps no
// global page count. ReservedPages is always zero after stage two in this
// core: it would report the frames the full frame-database design reserves
// for its own bookkeeping, a design this core defers (see InitStageTwo).
func (p *PhysicalMemoryManager) Stats() Stats {
	if !p.stage2.Load() {
		return Stats{FramesWithheld: p.watermark.WithheldPages()}
	}

	free := uint64(0)

	for i := range p.bitmap.words {
		word := p.bitmap.words[i].Load()
		free += uint64(bits.OnesCount64(^word))
	}

	// The tail of the last word may cover pages past totalPages; those
	// were never free to begin with, so drop them from the count.
	tailBits := uint64(len(p.bitmap.words))*wordBits - p.totalPages
	if tailBits > 0 && free >= tailBits {
		free -= tailBits
	}

	return Stats{
		TotalPages:     p.totalPages,
		FreePages:      free,
		ReservedPages:  p.reservedPages,
		FramesWithheld: p.watermark.WithheldPages(),
	}
}
