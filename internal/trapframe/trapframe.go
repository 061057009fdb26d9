// Package trapframe defines the opaque record of CPU state captured when a
// trap occurs: general registers, segment selectors, instruction pointer,
// flags, the interrupt vector, an optional error code, and — only when the
// trap came from user mode — the interrupted stack pointer and segment.
//
// The frame's exact layout is owned by the architecture's entry stub, which
// is out of scope for this core (spec §1); everything else in the kernel
// sees it only through the accessors this package exposes. Treat it as a sum
// type with two variants, kernel and user: the user variant carries two
// extra fields that must never be read in the kernel variant.
package trapframe

import (
	"fmt"

	"github.com/smoynes/bootcore/internal/textio"
)

// NumGPR is the number of general-purpose registers captured in a frame.
const NumGPR = 8

// TrapFrame is the CPU state captured on trap entry. The zero value is not
// meaningful; frames are built with NewKernelFrame or NewUserFrame by the
// architecture's trap stub.
type TrapFrame struct {
	vector    uint8
	errorCode uint32
	hasError  bool
	fromUser  bool

	gpr   [NumGPR]uint32
	cs    uint16
	ds    uint16
	rip   uint32
	flags uint32

	// Present only when fromUser is true.
	userSP uint32
	userSS uint16
}

// NewKernelFrame builds a frame for a trap interrupting kernel-mode
// execution.
func NewKernelFrame(vector uint8, errorCode uint32, hasError bool, gpr [NumGPR]uint32, cs, ds uint16, rip, flags uint32) TrapFrame {
	return TrapFrame{
		vector:    vector,
		errorCode: errorCode,
		hasError:  hasError,
		gpr:       gpr,
		cs:        cs,
		ds:        ds,
		rip:       rip,
		flags:     flags,
	}
}

// NewUserFrame builds a frame for a trap interrupting user-mode execution,
// additionally carrying the interrupted stack pointer and segment.
func NewUserFrame(vector uint8, errorCode uint32, hasError bool, gpr [NumGPR]uint32, cs, ds uint16, rip, flags, userSP uint32, userSS uint16) TrapFrame {
	f := NewKernelFrame(vector, errorCode, hasError, gpr, cs, ds, rip, flags)
	f.fromUser = true
	f.userSP = userSP
	f.userSS = userSS

	return f
}

// Vector returns the interrupt vector that produced this frame.
func (f *TrapFrame) Vector() uint8 { return f.vector }

// ErrorCode returns the CPU-pushed error code and whether this vector
// carries one at all.
func (f *TrapFrame) ErrorCode() (code uint32, ok bool) { return f.errorCode, f.hasError }

// IsKernelInterrupted reports whether the trapped context was running in the
// kernel (true) or in user mode (false).
func (f *TrapFrame) IsKernelInterrupted() bool { return !f.fromUser }

// GPR returns the value of general-purpose register n.
func (f *TrapFrame) GPR(n int) uint32 { return f.gpr[n] }

// SetGPR updates general-purpose register n. Used when resuming a switched-to
// frame that a handler has adjusted.
func (f *TrapFrame) SetGPR(n int, v uint32) { f.gpr[n] = v }

// IP returns the captured instruction pointer.
func (f *TrapFrame) IP() uint32 { return f.rip }

// Flags returns the captured CPU flags register.
func (f *TrapFrame) Flags() uint32 { return f.flags }

// CodeSegment returns the captured code segment selector.
func (f *TrapFrame) CodeSegment() uint16 { return f.cs }

// DataSegment returns the captured data segment selector.
func (f *TrapFrame) DataSegment() uint16 { return f.ds }

// UserStackPointer returns the interrupted user stack pointer. It panics if
// called on a kernel-variant frame, since reading it there would be reading
// past the sum type's tag.
func (f *TrapFrame) UserStackPointer() uint32 {
	if !f.fromUser {
		panic("trapframe: UserStackPointer read on kernel-mode frame")
	}

	return f.userSP
}

// UserStackSegment returns the interrupted user stack segment. It panics on a
// kernel-variant frame for the same reason as UserStackPointer.
func (f *TrapFrame) UserStackSegment() uint16 {
	if !f.fromUser {
		panic("trapframe: UserStackSegment read on kernel-mode frame")
	}

	return f.userSS
}

// End returns the address one past the frame's own storage, which a switch
// handler uses to reposition the per-CPU ring-0 stack pointer (spec §3,
// TrapFrame; §4.4).
func (f *TrapFrame) End(base uint32) uint32 {
	return base + uint32(frameSize)
}

// frameSize is the on-stack size, in bytes, of the fields captured above.
// It exists only to compute End; the architecture stub's real prologue owns
// the authoritative layout.
const frameSize = 4*NumGPR + 2 + 2 + 4 + 4 + 4 + 2

func (f *TrapFrame) String() string {
	mode := "KERNEL"
	if f.fromUser {
		mode = "USER"
	}

	return fmt.Sprintf("TrapFrame{vector:%#02x mode:%s ip:%#08x}", f.vector, mode, f.rip)
}

// WriteTo renders the frame for a failure report (spec §8, §9): the
// trapping vector and its name, the CPU mode, the instruction pointer and
// flags at the time of the trap, every general register, the error code
// when the vector carries one, and — for a user-mode frame — the
// interrupted stack. It implements textio.Writable so a dump can be passed
// straight to kshutdown.Fail / FailAssertion.
func (f *TrapFrame) WriteTo(w *textio.TextWriter) {
	mode := "KERNEL"
	if f.fromUser {
		mode = "USER"
	}

	w.Printf("vector=%bx name=%s mode=%s ip=%lx flags=%lx\n", f.vector, VectorName(f.vector), mode, f.rip, f.flags)
	w.Printf("cs=%hx ds=%hx\n", f.cs, f.ds)

	if code, ok := f.ErrorCode(); ok {
		w.Printf("error=%lx\n", code)
	}

	for i := 0; i < NumGPR; i++ {
		w.Printf("gpr[%d]=%lx\n", i, f.gpr[i])
	}

	if f.fromUser {
		w.Printf("user sp=%lx ss=%hx\n", f.userSP, f.userSS)
	}
}
