// Package archsim is a reference architecture port: a software simulation
// of arch.Processor, arch.InterruptController, and arch.ShutdownHardware
// good enough to run the core's tests and the cmd/kernel demo without real
// hardware. It plays the same role for this core that internal/vm's
// in-process CPU simulation plays for the teacher repository — a faithful
// enough model of the real thing that code written against it needs no
// changes to run on an actual port.
package archsim

import (
	"sync"

	"github.com/smoynes/bootcore/internal/arch"
	"github.com/smoynes/bootcore/internal/trapframe"
)

// Processor simulates a single CPU's control-register and vector-table
// state. It is not safe for concurrent use from more than one goroutine
// pretending to be a second CPU; the core's own concurrency story is tested
// through internal/ksync directly, not by racing two Processor instances.
type Processor struct {
	mu       sync.Mutex
	enabled  bool
	handlers map[uint8]arch.InterruptHandler
	halted   bool
	reset    bool
	id       int
	kernelSP uint32
}

// NewProcessor builds a simulated processor with the given id, interrupts
// initially disabled — matching real hardware's power-on state.
func NewProcessor(id int) *Processor {
	return &Processor{handlers: make(map[uint8]arch.InterruptHandler), id: id}
}

// DisableInterrupts implements arch.Processor.
func (p *Processor) DisableInterrupts() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	was := p.enabled
	p.enabled = false

	return was
}

// RestoreInterrupts implements arch.Processor.
func (p *Processor) RestoreInterrupts(wasEnabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.enabled = wasEnabled
}

// InterruptsEnabled implements arch.Processor.
func (p *Processor) InterruptsEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.enabled
}

// CurrentCPU implements arch.Processor.
func (p *Processor) CurrentCPU() int { return p.id }

// RegisterHandler implements arch.Processor.
func (p *Processor) RegisterHandler(vector uint8, handler arch.InterruptHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.handlers[vector] = handler
}

// Halt implements arch.Processor. Since this is a simulation with no real
// hardware to stop, it simply records that it was called; callers that
// expect Halt to never return should not call it from code under test.
func (p *Processor) Halt() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.halted = true
}

// WaitForInterrupt implements arch.Processor as a no-op: the simulation has
// no idle loop to actually suspend.
func (p *Processor) WaitForInterrupt() {}

// HardReset implements arch.Processor, recording that a reset was
// requested.
func (p *Processor) HardReset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reset = true
}

// Halted reports whether Halt has been called.
func (p *Processor) Halted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.halted
}

// WasReset reports whether HardReset has been called.
func (p *Processor) WasReset() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.reset
}

// KernelStackPointer implements arch.Processor.
func (p *Processor) KernelStackPointer() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.kernelSP
}

// SetKernelStackPointer implements arch.Processor.
func (p *Processor) SetKernelStackPointer(sp uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.kernelSP = sp
}

// Raise synchronously delivers vector as if it had just trapped, invoking
// whatever handler RegisterHandler last installed for it, and returns the
// resulting frame. A vector with no registered handler hits the same
// system-reset default every real vector table starts with (spec §4.4):
// an unregistered vector is a loud failure, not a silent hang.
//
// When the handler returns a frame other than the one it was given, that is
// a context switch (spec §4.4): Raise repositions the ring-0 stack pointer
// to the new frame's End address before returning, so whatever resumes
// execution next finds the stack where the switched-to frame actually
// lives. A handler that returns its own argument — the overwhelming common
// case, with no scheduler yet to switch to anything — leaves the stack
// pointer untouched.
func (p *Processor) Raise(vector uint8, frame *trapframe.TrapFrame) *trapframe.TrapFrame {
	p.mu.Lock()
	handler, ok := p.handlers[vector]
	p.mu.Unlock()

	if !ok {
		p.HardReset()
		return frame
	}

	result := handler.Handle(frame)

	if result != frame {
		p.mu.Lock()
		p.kernelSP = result.End(p.kernelSP)
		p.mu.Unlock()
	}

	return result
}
