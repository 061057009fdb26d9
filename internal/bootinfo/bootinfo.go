// Package bootinfo translates the boot loader's Multiboot-style information
// structure into the core's own representation: a normalized command line,
// RAM/reserved region iterators, and a module list, all built from a
// byte-exact copy of the structure rather than live references into it
// (spec §4.5) — the loader's memory is reclaimed once the PMM takes over,
// so nothing downstream may hold a pointer into it past this translation.
package bootinfo

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/smoynes/bootcore/internal/physmem"
)

// Magic is the value the boot loader leaves in a fixed register to prove it
// actually ran, identifying the structure's format.
const Magic uint32 = 0x2BADB002

// maxCmdLine is the most bytes read for one command line, the kernel's or a
// module's. A longer line is truncated to this length rather than rejected;
// each line is copied into its own Go string, not into a shared
// statically-reserved buffer.
const maxCmdLine = 1024

// ErrBadMagic is returned when the loader's magic value doesn't match.
var ErrBadMagic = errors.New("bootinfo: bad magic value")

// ErrWindowTooSmall is returned when the raw info structure claims a field
// lying outside the low-memory window the translator was given.
var ErrWindowTooSmall = errors.New("bootinfo: field outside low memory window")

// flag bits in the raw Multiboot-style info structure's Flags field.
const (
	flagMemory  = 1 << 0
	flagCmdLine = 1 << 2
	flagMods    = 1 << 3
	flagMmap    = 1 << 6
)

// Module describes one boot module the loader placed in memory alongside
// the kernel image — an initrd, a second-stage binary, anything the loader
// was told to carry along.
type Module struct {
	Region  physmem.Region
	CmdLine string
}

// BootInfo is the core's normalized view of everything the loader handed
// off: the kernel command line, the regions of usable RAM and reserved
// memory the firmware reported, and the modules loaded alongside it.
type BootInfo struct {
	CommandLine string
	RAM         physmem.RegionIterator
	Reserved    physmem.RegionIterator
	Modules     []Module
}

// ModuleRegions returns a RegionIterator over every module's region the boot
// loader reported, followed by extra. The loader's own module list never
// includes the running kernel image — the loader does not load the kernel
// the way it loads an initrd — so the PMM must never be handed info.Modules
// alone and call it complete: the caller passes the kernel's own link-time
// extents as extra so they are excluded from allocation exactly like any
// other module (spec §4.6, §12).
func (info *BootInfo) ModuleRegions(extra ...physmem.Region) physmem.RegionIterator {
	regions := make([]physmem.Region, 0, len(info.Modules)+len(extra))

	for _, m := range info.Modules {
		regions = append(regions, m.Region)
	}

	regions = append(regions, extra...)

	return physmem.NewSliceIterator(regions)
}

// SliceWindow is the low-memory byte window the translator reads the raw
// info structure and everything it points into from: a flat,
// identity-mapped range addressed from base, which is what the boot loader
// always leaves in place regardless of platform.
type SliceWindow struct {
	base physmem.PhysAddr
	data []byte
}

// NewSliceWindow builds a window over data, whose first byte is at base.
func NewSliceWindow(base physmem.PhysAddr, data []byte) SliceWindow {
	return SliceWindow{base: base, data: data}
}

// Bytes returns the length bytes at addr, or an error if any part of the
// range lies outside the window.
func (w SliceWindow) Bytes(addr physmem.PhysAddr, length int) ([]byte, error) {
	if addr < w.base {
		return nil, ErrWindowTooSmall
	}

	off := int(addr - w.base)
	if off < 0 || off+length > len(w.data) {
		return nil, ErrWindowTooSmall
	}

	return w.data[off : off+length], nil
}

// Translate validates magic and parses the raw info structure at infoAddr
// within win into a BootInfo. It never retains win or any slice derived
// from it; every string and region is copied out before returning.
func Translate(magic uint32, infoAddr physmem.PhysAddr, win SliceWindow) (*BootInfo, error) {
	if magic != Magic {
		return nil, fmt.Errorf("%w: got %#08x", ErrBadMagic, magic)
	}

	raw, err := win.Bytes(infoAddr, rawInfoSize)
	if err != nil {
		return nil, fmt.Errorf("bootinfo: reading info header: %w", err)
	}

	flags := binary.LittleEndian.Uint32(raw[0:4])

	info := &BootInfo{
		RAM:      physmem.NewSliceIterator(nil),
		Reserved: physmem.NewSliceIterator(nil),
	}

	if flags&flagCmdLine != 0 {
		ptr := physmem.PhysAddr(binary.LittleEndian.Uint32(raw[16:20]))
		info.CommandLine, err = readCString(win, ptr, maxCmdLine)

		if err != nil {
			return nil, fmt.Errorf("bootinfo: reading command line: %w", err)
		}
	}

	if flags&flagMmap != 0 {
		mmapLen := binary.LittleEndian.Uint32(raw[44:48])
		mmapAddr := physmem.PhysAddr(binary.LittleEndian.Uint32(raw[48:52]))

		ram, reserved, err := readMemoryMap(win, mmapAddr, mmapLen)
		if err != nil {
			return nil, fmt.Errorf("bootinfo: reading memory map: %w", err)
		}

		info.RAM = physmem.NewSliceIterator(ram)
		info.Reserved = physmem.NewSliceIterator(reserved)
	} else if flags&flagMemory != 0 {
		lowerKB := binary.LittleEndian.Uint32(raw[4:8])
		upperKB := binary.LittleEndian.Uint32(raw[8:12])

		ram, err := buildFallbackRAM(lowerKB, upperKB)
		if err != nil {
			return nil, fmt.Errorf("bootinfo: building fallback RAM map: %w", err)
		}

		info.RAM = physmem.NewSliceIterator(ram)
	}

	if flags&flagMods != 0 {
		count := binary.LittleEndian.Uint32(raw[20:24])
		addr := physmem.PhysAddr(binary.LittleEndian.Uint32(raw[24:28]))

		info.Modules, err = readModules(win, addr, count)
		if err != nil {
			return nil, fmt.Errorf("bootinfo: reading modules: %w", err)
		}
	}

	return info, nil
}

// rawInfoSize is the byte size of the fixed-layout prefix of the raw info
// structure this translator reads fields from.
const rawInfoSize = 52

func readCString(win SliceWindow, addr physmem.PhysAddr, max int) (string, error) {
	if addr == 0 {
		return "", nil
	}

	if remaining := win.remaining(addr); remaining < max {
		max = remaining
	}

	buf, err := win.Bytes(addr, max)
	if err != nil {
		return "", err
	}

	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}

	return string(buf), nil
}

// remaining returns how many bytes lie between addr and the end of the
// window, or 0 if addr is outside it.
func (w SliceWindow) remaining(addr physmem.PhysAddr) int {
	if addr < w.base {
		return 0
	}

	off := int(addr - w.base)
	if off > len(w.data) {
		return 0
	}

	return len(w.data) - off
}

func readMemoryMap(win SliceWindow, addr physmem.PhysAddr, length uint32) (ram, reserved []physmem.Region, err error) {
	buf, err := win.Bytes(addr, int(length))
	if err != nil {
		return nil, nil, err
	}

	off := 0
	for off+4 <= len(buf) {
		entrySize := binary.LittleEndian.Uint32(buf[off : off+4])
		entryStart := off + 4

		if entryStart+20 > len(buf) {
			break
		}

		base := binary.LittleEndian.Uint64(buf[entryStart : entryStart+8])
		size := binary.LittleEndian.Uint64(buf[entryStart+8 : entryStart+16])
		kind := binary.LittleEndian.Uint32(buf[entryStart+16 : entryStart+20])

		if size > 0 {
			baseAddr := physmem.PhysAddr(base)
			length := physmem.PhysSize(size)

			// A firmware-reported entry that would run past the top of
			// physical address space is clamped to end there rather than
			// dropped outright: the bytes below MaxPhysAddr are still real,
			// usable (or reserved) memory, and silently discarding the
			// whole entry would hand out — or fail to reserve — frames the
			// entry never actually described.
			if baseAddr <= physmem.MaxPhysAddr {
				if maxLen := physmem.PhysSize(physmem.MaxPhysAddr-baseAddr) + 1; length > maxLen {
					length = maxLen
				}

				region, rerr := physmem.NewRegion(baseAddr, length)
				if rerr == nil {
					if kind == 1 {
						ram = append(ram, region)
					} else {
						reserved = append(reserved, region)
					}
				}
			}
		}

		off += int(entrySize) + 4
	}

	return ram, reserved, nil
}

func buildFallbackRAM(lowerKB, upperKB uint32) ([]physmem.Region, error) {
	var regions []physmem.Region

	if lowerKB > 0 {
		r, err := physmem.NewRegion(0, physmem.PhysSize(lowerKB)*1024)
		if err != nil {
			return nil, err
		}

		regions = append(regions, r)
	}

	if upperKB > 0 {
		r, err := physmem.NewRegion(0x100000, physmem.PhysSize(upperKB)*1024)
		if err != nil {
			return nil, err
		}

		regions = append(regions, r)
	}

	return regions, nil
}

const moduleEntrySize = 16

func readModules(win SliceWindow, addr physmem.PhysAddr, count uint32) ([]Module, error) {
	buf, err := win.Bytes(addr, int(count)*moduleEntrySize)
	if err != nil {
		return nil, err
	}

	mods := make([]Module, 0, count)

	for i := uint32(0); i < count; i++ {
		entry := buf[i*moduleEntrySize : (i+1)*moduleEntrySize]

		start := binary.LittleEndian.Uint32(entry[0:4])
		end := binary.LittleEndian.Uint32(entry[4:8])
		cmdPtr := physmem.PhysAddr(binary.LittleEndian.Uint32(entry[8:12]))

		if end < start {
			return nil, fmt.Errorf("bootinfo: module %d has end before start", i)
		}

		region, err := physmem.NewRegion(physmem.PhysAddr(start), physmem.PhysSize(end-start))
		if err != nil {
			return nil, fmt.Errorf("bootinfo: module %d region: %w", i, err)
		}

		cmdLine, err := readCString(win, cmdPtr, maxCmdLine)
		if err != nil {
			return nil, fmt.Errorf("bootinfo: module %d command line: %w", i, err)
		}

		mods = append(mods, Module{Region: region, CmdLine: cmdLine})
	}

	return mods, nil
}
