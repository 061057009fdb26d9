package pmm

import (
	"testing"

	"github.com/smoynes/bootcore/internal/ksync"
	"github.com/smoynes/bootcore/internal/physmem"
)

type fakeGate struct{ enabled bool }

func (g *fakeGate) DisableInterrupts() bool {
	was := g.enabled
	g.enabled = false

	return was
}
func (g *fakeGate) RestoreInterrupts(was bool) { g.enabled = was }

func mustRegion(tt *testing.T, base physmem.PhysAddr, length physmem.PhysSize) physmem.Region {
	tt.Helper()

	r, err := physmem.NewRegion(base, length)
	if err != nil {
		tt.Fatalf("NewRegion(%s, %#x): %v", base, length, err)
	}

	return r
}

func TestBitmapAllocator_AllocateFree(tt *testing.T) {
	tt.Parallel()

	a := NewBitmapAllocator(0x100000, 4)

	p1, err := a.Allocate()
	if err != nil {
		tt.Fatalf("Allocate: %v", err)
	}

	p2, err := a.Allocate()
	if err != nil {
		tt.Fatalf("Allocate: %v", err)
	}

	if p1 == p2 {
		tt.Fatalf("expected distinct pages, got %s twice", p1)
	}

	if err := a.Free(p1); err != nil {
		tt.Fatalf("Free: %v", err)
	}

	if err := a.Free(p1); err == nil {
		tt.Fatalf("expected double free to error")
	}

	p3, err := a.Allocate()
	if err != nil {
		tt.Fatalf("Allocate after free: %v", err)
	}

	if p3 != p1 {
		tt.Errorf("expected freed page to be reused, want %s got %s", p1, p3)
	}
}

func TestBitmapAllocator_ExhaustsAndReportsOutOfMemory(tt *testing.T) {
	tt.Parallel()

	a := NewBitmapAllocator(0, 2)

	if _, err := a.Allocate(); err != nil {
		tt.Fatal(err)
	}

	if _, err := a.Allocate(); err != nil {
		tt.Fatal(err)
	}

	if _, err := a.Allocate(); err == nil {
		tt.Fatal("expected out of memory")
	}
}

func TestBitmapAllocator_AllocateSpecific(tt *testing.T) {
	tt.Parallel()

	a := NewBitmapAllocator(0, 4)
	target := physmem.PhysAddr(2 * physmem.PageSize)

	if err := a.AllocateSpecific(target); err != nil {
		tt.Fatalf("AllocateSpecific: %v", err)
	}

	if err := a.AllocateSpecific(target); err == nil {
		tt.Fatal("expected second AllocateSpecific on same page to fail")
	}
}

func TestWatermarkAllocator_BumpsThroughWindow(tt *testing.T) {
	tt.Parallel()

	ram := physmem.NewSliceIterator([]physmem.Region{mustRegion(tt, 0, physmem.PhysSize(3)*physmem.PageSize)})

	w, err := NewWatermarkAllocator(&fakeGate{enabled: true}, ram, nil)
	if err != nil {
		tt.Fatalf("NewWatermarkAllocator: %v", err)
	}

	p1, err := w.Allocate()
	if err != nil {
		tt.Fatalf("Allocate: %v", err)
	}

	p2, err := w.Allocate()
	if err != nil {
		tt.Fatalf("Allocate: %v", err)
	}

	if p2 != p1+physmem.PhysAddr(physmem.PageSize) {
		tt.Errorf("expected sequential bump allocation, got %s then %s", p1, p2)
	}
}

func TestWatermarkAllocator_SlidesAcrossWindows(tt *testing.T) {
	tt.Parallel()

	ram := physmem.NewSliceIterator([]physmem.Region{
		mustRegion(tt, 0, physmem.PhysSize(windowPages+1)*physmem.PageSize),
	})

	w, err := NewWatermarkAllocator(&fakeGate{enabled: true}, ram, nil)
	if err != nil {
		tt.Fatalf("NewWatermarkAllocator: %v", err)
	}

	var last physmem.PhysAddr

	// Frame 0 is withheld, so the first window yields windowPages-1 frames.
	for i := 0; i < windowPages-1; i++ {
		addr, err := w.Allocate()
		if err != nil {
			tt.Fatalf("Allocate %d: %v", i, err)
		}

		last = addr
	}

	if last != physmem.PhysAddr(windowPages-1)*physmem.PhysAddr(physmem.PageSize) {
		tt.Fatalf("expected the first window fully consumed, last alloc %s", last)
	}

	next, err := w.Allocate()
	if err != nil {
		tt.Fatalf("Allocate after sliding to next window: %v", err)
	}

	want := physmem.PhysAddr(windowPages) * physmem.PhysAddr(physmem.PageSize)
	if next != want {
		tt.Errorf("want first frame of second window %s, got %s", want, next)
	}
}

func TestWatermarkAllocator_ExcludesReserved(tt *testing.T) {
	tt.Parallel()

	ram := physmem.NewSliceIterator([]physmem.Region{mustRegion(tt, 0, physmem.PhysSize(4)*physmem.PageSize)})
	reserved := physmem.NewSliceIterator([]physmem.Region{mustRegion(tt, 0, physmem.PhysSize(2)*physmem.PageSize)})

	w, err := NewWatermarkAllocator(&fakeGate{enabled: true}, ram, reserved)
	if err != nil {
		tt.Fatalf("NewWatermarkAllocator: %v", err)
	}

	p1, err := w.Allocate()
	if err != nil {
		tt.Fatalf("Allocate: %v", err)
	}

	if p1 != physmem.PhysAddr(2*physmem.PageSize) {
		tt.Errorf("expected allocation to start after reserved front, got %s", p1)
	}
}

func TestWatermarkAllocator_OutOfMemory(tt *testing.T) {
	tt.Parallel()

	// One page of RAM above frame 0, which is never handed out.
	ram := physmem.NewSliceIterator([]physmem.Region{mustRegion(tt, physmem.PhysAddr(physmem.PageSize), physmem.PageSize)})

	w, err := NewWatermarkAllocator(&fakeGate{enabled: true}, ram, nil)
	if err != nil {
		tt.Fatalf("NewWatermarkAllocator: %v", err)
	}

	if _, err := w.Allocate(); err != nil {
		tt.Fatal(err)
	}

	if _, err := w.Allocate(); err == nil {
		tt.Fatal("expected out of memory once RAM regions are exhausted")
	}
}

func TestInitStageOne_ExcludesModulesAndKernelImage(tt *testing.T) {
	tt.Parallel()

	// Frame 0 and the module's frames 1-2 are withheld, leaving frames 3 and 4.
	ram := physmem.NewSliceIterator([]physmem.Region{mustRegion(tt, 0, physmem.PhysSize(5)*physmem.PageSize)})
	modules := physmem.NewSliceIterator([]physmem.Region{mustRegion(tt, physmem.PhysAddr(physmem.PageSize), physmem.PhysSize(2)*physmem.PageSize)})

	p, _, err := InitStageOne(&fakeGate{enabled: true}, ram, nil, modules)
	if err != nil {
		tt.Fatalf("InitStageOne: %v", err)
	}

	addr, err := p.Allocate()
	if err != nil {
		tt.Fatalf("Allocate: %v", err)
	}

	if addr == physmem.PhysAddr(physmem.PageSize) || addr == physmem.PhysAddr(2*physmem.PageSize) {
		tt.Fatalf("expected the module's frames withheld, got %s", addr)
	}

	next, err := p.Allocate()
	if err != nil {
		tt.Fatalf("Allocate: %v", err)
	}

	if next == physmem.PhysAddr(physmem.PageSize) || next == physmem.PhysAddr(2*physmem.PageSize) {
		tt.Fatalf("expected the module's frames withheld, got %s", next)
	}

	if p.Stats().FramesWithheld == 0 {
		tt.Errorf("expected the module region to count toward withheld frames")
	}
}

func TestPhysicalMemoryManager_StageTransition(tt *testing.T) {
	tt.Parallel()

	ram := physmem.NewSliceIterator([]physmem.Region{mustRegion(tt, 0, physmem.PhysSize(1024)*physmem.PageSize)})

	p, stageTwoBytes, err := InitStageOne(&fakeGate{enabled: true}, ram, nil, nil)
	if err != nil {
		tt.Fatalf("InitStageOne: %v", err)
	}

	if _, err := p.Allocate(); err != nil {
		tt.Fatalf("stage one Allocate: %v", err)
	}

	if err := p.Free(0); err == nil {
		tt.Fatal("expected Free to fail before stage two")
	}

	storage := make([]ksync.Cell, (stageTwoBytes+7)/8)
	if err := p.InitStageTwo(storage, 0, stageTwoBytes); err != nil {
		tt.Fatalf("InitStageTwo: %v", err)
	}

	addr, err := p.Allocate()
	if err != nil {
		tt.Fatalf("stage two Allocate: %v", err)
	}

	if err := p.Free(addr); err != nil {
		tt.Fatalf("stage two Free: %v", err)
	}

	stats := p.Stats()
	if stats.TotalPages != 1024 {
		tt.Errorf("want 1024 total pages computed from the RAM iterator, got %d", stats.TotalPages)
	}
}
