// Package dispatch wires trap vectors to handlers: ExceptionDispatcher for
// CPU-raised faults and traps, InterruptDispatcher for device-raised IRQs.
// Both sit directly on top of arch.Processor's vector table (spec §4.4).
package dispatch

import (
	"fmt"

	"github.com/smoynes/bootcore/internal/arch"
	"github.com/smoynes/bootcore/internal/klog"
	"github.com/smoynes/bootcore/internal/trapframe"
)

// Breakpoint is the vector a debugger's INT3 instruction raises, and the
// same vector a debug build's assertion macro traps through to report a
// failed precondition.
const Breakpoint uint8 = 3

// Syscall is the vector user code traps through to request a kernel service.
const Syscall uint8 = 0x80

// Deliverable lists the recoverable CPU exception vectors Init wires (spec
// §4.4): faults that, once user mode exists, are delivered to the faulting
// thread as a signal instead of bringing the machine down. Divide error,
// breakpoint, overflow, bound range, invalid opcode, device not available,
// segment not present, stack fault, general protection, page fault, x87
// fault, alignment check, SIMD floating point — in that order.
var Deliverable = []uint8{0, 3, 4, 5, 6, 7, 11, 12, 13, 14, 16, 17, 19}

// Unrecoverable lists the non-deliverable CPU exception vectors: faults that
// cannot be attributed to a single thread and always fail the machine.
// Reserved, NMI, double fault, machine check, invalid TSS, coprocessor
// segment overrun.
var Unrecoverable = []uint8{15, 2, 8, 18, 10, 9}

// Assertion is the four-word descriptor a debug build's ASSERT macro pushes
// onto the kernel stack immediately before trapping to Breakpoint: the
// failed check's message and source location, plus the call site's return
// address (spec §4.4, §7).
type Assertion struct {
	Message    string
	File       string
	Line       int
	ReturnAddr uint32
}

// AssertionReader reads the assertion descriptor out of a Breakpoint frame.
// It reports ok=false when the trap is an ordinary debugger breakpoint
// rather than a failed ASSERT. Locating the descriptor on the interrupted
// stack is an architecture concern — arbitrary memory access is out of this
// core's scope (spec §1) — so the reader is supplied by the architecture
// layer instead of fixed here.
type AssertionReader func(frame *trapframe.TrapFrame) (a Assertion, ok bool)

// FailFunc reports a deliverable or unrecoverable exception that has no
// other resolution. detail, if non-empty, replaces the generic "unhandled
// exception" wording with a more specific report — currently only the
// debug-build kernel-assertion path supplies one. isAssertion is true for
// exactly that path, letting the caller choose a distinct failure banner
// for a failed kernel assertion (spec §8 scenario 3).
type FailFunc func(vector uint8, frame *trapframe.TrapFrame, detail string, isAssertion bool)

// ExceptionDispatcher routes CPU exceptions to registered handlers, falling
// back to an unrecoverable failure when a vector has none — or, for
// deliverable vectors, when the registered handler declines by returning
// false.
type ExceptionDispatcher struct {
	cpu       arch.Processor
	fail      FailFunc
	logger    *klog.Logger
	debug     bool
	assertion AssertionReader
	claimed   map[uint8]func(frame *trapframe.TrapFrame) (*trapframe.TrapFrame, bool)
}

// NewExceptionDispatcher builds an ExceptionDispatcher. fail is invoked for
// any exception with no claiming handler; debug enables treating a
// kernel-mode Breakpoint as a recoverable-looking-but-still-fatal kernel
// assertion instead of a plain deliverable exception, per spec §4.4.
func NewExceptionDispatcher(cpu arch.Processor, fail FailFunc, debug bool, logger *klog.Logger) *ExceptionDispatcher {
	return &ExceptionDispatcher{
		cpu:     cpu,
		fail:    fail,
		logger:  logger,
		debug:   debug,
		claimed: make(map[uint8]func(frame *trapframe.TrapFrame) (*trapframe.TrapFrame, bool)),
	}
}

// Init wires the standard deliverable and unrecoverable exception vectors
// (spec §4.4) plus the syscall vector, on the current CPU. assertion, if
// non-nil, is consulted for kernel-mode Breakpoint traps in debug builds;
// call it once per CPU before enabling interrupts.
func (d *ExceptionDispatcher) Init(assertion AssertionReader) {
	d.assertion = assertion

	for _, vector := range Deliverable {
		d.registerDeliverable(vector)
	}

	for _, vector := range Unrecoverable {
		d.registerUnrecoverable(vector)
	}

	d.cpu.RegisterHandler(Syscall, arch.HandlerFunc(func(frame *trapframe.TrapFrame) *trapframe.TrapFrame {
		return d.deliver(Syscall, frame)
	}))
}

// Register installs an additional deliverable handler for vector: one that
// may decline a particular occurrence by returning ok=false, in which case
// dispatch falls through to the unconditional-fail policy. It may be called
// before or after Init — both install the same underlying dispatch, so a
// later call simply replaces which handler the claimed map consults.
func (d *ExceptionDispatcher) Register(vector uint8, handler func(frame *trapframe.TrapFrame) (resume *trapframe.TrapFrame, ok bool)) {
	d.claimed[vector] = handler
	d.registerDeliverable(vector)
}

func (d *ExceptionDispatcher) registerDeliverable(vector uint8) {
	d.cpu.RegisterHandler(vector, arch.HandlerFunc(func(frame *trapframe.TrapFrame) *trapframe.TrapFrame {
		return d.deliver(vector, frame)
	}))
}

func (d *ExceptionDispatcher) registerUnrecoverable(vector uint8) {
	d.cpu.RegisterHandler(vector, arch.HandlerFunc(func(frame *trapframe.TrapFrame) *trapframe.TrapFrame {
		d.logger.Error("unrecoverable exception", "vector", vector, "name", trapframe.VectorName(vector), "ip", frame.IP())
		d.fail(vector, frame, "", false)

		return frame
	}))
}

// dispatch is kept as the entry point tests drive directly against a single
// registered vector, without going through Init's full vector tables.
func (d *ExceptionDispatcher) dispatch(vector uint8, frame *trapframe.TrapFrame) *trapframe.TrapFrame {
	return d.deliver(vector, frame)
}

// deliver implements the deliverable-exception policy (spec §4.4): a
// per-vector claim takes priority; absent one, a kernel-mode trap fails the
// machine unconditionally, except that a debug-build kernel Breakpoint
// carrying a valid assertion descriptor fails with that descriptor's
// message instead of the generic report. A user-mode trap has no delivery
// policy implemented yet — the hook exists, the policy doesn't (spec §4.4)
// — so it fails with a placeholder detail rather than silently resuming.
func (d *ExceptionDispatcher) deliver(vector uint8, frame *trapframe.TrapFrame) *trapframe.TrapFrame {
	if handler, found := d.claimed[vector]; found {
		if resume, ok := handler(frame); ok {
			return resume
		}
	}

	if !frame.IsKernelInterrupted() {
		d.logger.Error("deliverable exception from user mode", "vector", vector, "name", trapframe.VectorName(vector))
		d.fail(vector, frame, "user-mode exception delivery is not implemented yet", false)

		return frame
	}

	if d.debug && vector == Breakpoint && d.assertion != nil {
		if a, ok := d.assertion(frame); ok {
			d.logger.Debug("kernel assertion", "message", a.Message, "file", a.File, "line", a.Line)
			d.fail(vector, frame, fmt.Sprintf("%s, Line %d", a.File, a.Line)+"\n"+a.Message, true)

			return frame
		}
	}

	d.logger.Error("unrecoverable exception", "vector", vector, "name", trapframe.VectorName(vector), "ip", frame.IP())
	d.fail(vector, frame, "", false)

	// fail never returns on real hardware; tests may stub it to return, in
	// which case resuming the faulting frame is the least-wrong behavior.
	return frame
}
