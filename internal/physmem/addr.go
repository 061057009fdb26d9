// Package physmem defines the physical-address data model shared by the
// boot-info translator and the physical memory manager: addresses, regions,
// and the region iterators used to walk bootloader-reported memory maps.
package physmem

import "fmt"

// PhysAddr is an unsigned physical address, sized to hold any address the
// target architecture can report. PageSize-aligned arithmetic on PhysAddr
// saturates at MaxPhysAddr rather than wrapping.
type PhysAddr uint64

// PhysSize is a length in bytes of physical address space, using the same
// width as PhysAddr.
type PhysSize uint64

// MaxPhysAddr is the highest physical address this core will ever describe:
// the top of a 32-bit x86 physical address space (no PAE). A region's last
// byte must never exceed it.
const MaxPhysAddr PhysAddr = 0xFFFFFFFF

// PageSize is the architecture's page and frame size in bytes.
const PageSize PhysSize = 0x1000

func (a PhysAddr) String() string {
	return fmt.Sprintf("0x%08x", uint64(a))
}

// addSaturating adds n to a, clamping the result to MaxPhysAddr instead of
// wrapping past it.
func addSaturating(a PhysAddr, n PhysSize) PhysAddr {
	if n > PhysSize(MaxPhysAddr-a) {
		return MaxPhysAddr
	}

	return a + PhysAddr(n)
}

// PageAlignDown rounds addr down to the nearest page boundary.
func PageAlignDown(addr PhysAddr) PhysAddr {
	return addr &^ PhysAddr(PageSize-1)
}

// PageAlignUp rounds addr up to the nearest page boundary, saturating at
// MaxPhysAddr.
func PageAlignUp(addr PhysAddr) PhysAddr {
	aligned := PageAlignDown(addr)
	if aligned == addr {
		return addr
	}

	return addSaturating(aligned, PageSize)
}
