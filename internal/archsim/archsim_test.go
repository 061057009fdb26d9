package archsim

import (
	"testing"

	"github.com/smoynes/bootcore/internal/arch"
	"github.com/smoynes/bootcore/internal/trapframe"
)

func TestProcessor_InterruptMaskRoundTrip(tt *testing.T) {
	tt.Parallel()

	p := NewProcessor(0)
	p.RestoreInterrupts(true)

	was := p.DisableInterrupts()
	if !was {
		tt.Fatal("expected interrupts to have been enabled")
	}

	if p.InterruptsEnabled() {
		tt.Fatal("expected interrupts disabled after DisableInterrupts")
	}

	p.RestoreInterrupts(was)

	if !p.InterruptsEnabled() {
		tt.Fatal("expected interrupts restored to enabled")
	}
}

func TestProcessor_RaiseDispatchesRegisteredHandler(tt *testing.T) {
	tt.Parallel()

	p := NewProcessor(1)

	called := false
	p.RegisterHandler(14, arch.HandlerFunc(func(f *trapframe.TrapFrame) *trapframe.TrapFrame {
		called = true
		return f
	}))

	frame := trapframe.NewKernelFrame(14, 0, false, [8]uint32{}, 0, 0, 0, 0)
	p.Raise(14, &frame)

	if !called {
		tt.Fatal("expected registered handler to be invoked")
	}
}

func TestProcessor_RaiseWithoutHandlerHardResets(tt *testing.T) {
	tt.Parallel()

	p := NewProcessor(0)
	frame := trapframe.NewKernelFrame(9, 0, false, [8]uint32{}, 0, 0, 0, 0)
	p.Raise(9, &frame)

	if !p.WasReset() {
		tt.Fatal("expected an unregistered vector to hit the system-reset default (spec §4.4)")
	}
}

func TestProcessor_RaiseResumingSameFrameLeavesStackPointerAlone(tt *testing.T) {
	tt.Parallel()

	p := NewProcessor(0)
	p.SetKernelStackPointer(0x9000)

	p.RegisterHandler(6, arch.HandlerFunc(func(f *trapframe.TrapFrame) *trapframe.TrapFrame {
		return f
	}))

	frame := trapframe.NewKernelFrame(6, 0, false, [8]uint32{}, 0, 0, 0, 0)
	p.Raise(6, &frame)

	if p.KernelStackPointer() != 0x9000 {
		tt.Errorf("want stack pointer untouched by a resume, got %#x", p.KernelStackPointer())
	}
}

func TestProcessor_RaiseSwitchingFrameRepositionsStackPointer(tt *testing.T) {
	tt.Parallel()

	p := NewProcessor(0)
	p.SetKernelStackPointer(0x9000)

	switched := trapframe.NewKernelFrame(6, 0, false, [8]uint32{}, 0, 0, 0, 0)

	p.RegisterHandler(6, arch.HandlerFunc(func(f *trapframe.TrapFrame) *trapframe.TrapFrame {
		return &switched
	}))

	frame := trapframe.NewKernelFrame(6, 0, false, [8]uint32{}, 0, 0, 0, 0)
	p.Raise(6, &frame)

	want := switched.End(0x9000)
	if p.KernelStackPointer() != want {
		tt.Errorf("want stack pointer repositioned to %#x, got %#x", want, p.KernelStackPointer())
	}
}

func TestController_MaskUnmaskAndEOI(tt *testing.T) {
	tt.Parallel()

	c := NewController()
	c.InitForCurrentCPU()
	c.Mask(3)

	if !c.Masked(3) {
		tt.Fatal("expected IRQ 3 masked")
	}

	c.Unmask(3)

	if c.Masked(3) {
		tt.Fatal("expected IRQ 3 unmasked")
	}

	c.EndOfInterrupt(3)
	c.EndOfInterrupt(3)

	if c.EOICount(3) != 2 {
		tt.Errorf("want 2 EOIs, got %d", c.EOICount(3))
	}
}

func TestShutdownHardware_RecordsRequests(tt *testing.T) {
	tt.Parallel()

	s := NewShutdownHardware()
	s.HaltAllOtherProcessors()
	s.Reboot()

	if !s.Rebooted || s.OthersHaltedN != 1 {
		tt.Errorf("expected reboot recorded and others halted once, got %+v", s)
	}
}
