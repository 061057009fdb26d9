package arch

import "github.com/smoynes/bootcore/internal/trapframe"

// InterruptHandler is the capability a dispatcher registers against a
// vector. It receives the trapped frame and returns the frame execution
// should resume with — normally the same frame, but a handler implementing a
// context switch returns a different one.
type InterruptHandler interface {
	Handle(frame *trapframe.TrapFrame) *trapframe.TrapFrame
}

// HandlerFunc adapts an ordinary function to an InterruptHandler.
type HandlerFunc func(frame *trapframe.TrapFrame) *trapframe.TrapFrame

// Handle calls f(frame).
func (f HandlerFunc) Handle(frame *trapframe.TrapFrame) *trapframe.TrapFrame { return f(frame) }

// Processor is the per-CPU control capability: masking interrupts, querying
// identity, halting, and registering the vector table the trap stub
// dispatches through.
type Processor interface {
	// DisableInterrupts masks maskable interrupts on the current CPU and
	// reports whether they were enabled beforehand.
	DisableInterrupts() (wasEnabled bool)

	// RestoreInterrupts sets the interrupt-enable flag back to a value
	// obtained from a prior DisableInterrupts call.
	RestoreInterrupts(wasEnabled bool)

	// InterruptsEnabled reports the current interrupt-enable state without
	// changing it.
	InterruptsEnabled() bool

	// CurrentCPU returns the identifier of the CPU executing this call.
	CurrentCPU() int

	// RegisterHandler installs the handler invoked when the given vector
	// traps. It replaces any handler previously registered for that vector.
	RegisterHandler(vector uint8, handler InterruptHandler)

	// Halt stops the current CPU for good, asserting no other work is
	// pending. It does not return.
	Halt()

	// WaitForInterrupt idles the current CPU until an interrupt arrives,
	// then returns, unlike Halt.
	WaitForInterrupt()

	// HardReset performs an immediate, unconditional processor reset. It
	// does not return.
	HardReset()

	// KernelStackPointer returns the ring-0 stack pointer execution resumes
	// onto after the current trap. A handler implementing a context switch
	// does not touch this directly; returning a different frame from Handle
	// is what moves it (spec §4.4).
	KernelStackPointer() uint32

	// SetKernelStackPointer repositions the ring-0 stack pointer. The trap
	// dispatch layer calls this once, immediately after a handler returns a
	// frame other than the one it was given, using that frame's own End
	// address — this is the entire context-switch hand-off contract.
	SetKernelStackPointer(sp uint32)
}
