package dispatch

import (
	"github.com/smoynes/bootcore/internal/arch"
	"github.com/smoynes/bootcore/internal/klog"
	"github.com/smoynes/bootcore/internal/trapframe"
)

// Timer is the IRQ line the architecture's periodic timer fires on.
const Timer uint8 = 0

// InterruptDispatcher routes device-raised IRQs, vectoring the timer to a
// caller-supplied tick handler and every other line to a logging stub that
// simply acknowledges and returns — enough to keep an unconfigured device
// from wedging the controller, without pretending to drive it.
type InterruptDispatcher struct {
	cpu        arch.Processor
	controller arch.InterruptController
	logger     *klog.Logger
	baseVector uint8
	onTick     func()
}

// NewInterruptDispatcher builds an InterruptDispatcher. baseVector is the
// vector the first IRQ line (line 0) is remapped to; IRQ n dispatches at
// vector baseVector+n.
func NewInterruptDispatcher(cpu arch.Processor, controller arch.InterruptController, baseVector uint8, logger *klog.Logger) *InterruptDispatcher {
	return &InterruptDispatcher{
		cpu:        cpu,
		controller: controller,
		logger:     logger,
		baseVector: baseVector,
	}
}

// Init programs the controller for the current CPU and installs the vector
// handlers. It must run once per CPU before interrupts are enabled.
func (d *InterruptDispatcher) Init() {
	d.controller.InitForCurrentCPU()
	d.cpu.RegisterHandler(d.baseVector+Timer, arch.HandlerFunc(d.handleTimer))

	for irq := uint8(1); irq < 16; irq++ {
		d.cpu.RegisterHandler(d.baseVector+irq, d.stubHandler(irq))
	}
}

// OnTick sets the function invoked on every timer interrupt. It replaces any
// previously set handler.
func (d *InterruptDispatcher) OnTick(fn func()) { d.onTick = fn }

// Unmask enables delivery of the given device IRQ line.
func (d *InterruptDispatcher) Unmask(irq uint8) { d.controller.Unmask(irq) }

// Mask disables delivery of the given device IRQ line.
func (d *InterruptDispatcher) Mask(irq uint8) { d.controller.Mask(irq) }

func (d *InterruptDispatcher) handleTimer(frame *trapframe.TrapFrame) *trapframe.TrapFrame {
	if d.onTick != nil {
		d.onTick()
	}

	d.controller.EndOfInterrupt(Timer)

	return frame
}

func (d *InterruptDispatcher) stubHandler(irq uint8) arch.InterruptHandler {
	return arch.HandlerFunc(func(frame *trapframe.TrapFrame) *trapframe.TrapFrame {
		d.logger.Warn("unhandled device interrupt", "irq", irq)
		d.controller.EndOfInterrupt(irq)

		return frame
	})
}
