package climain

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/smoynes/bootcore/internal/archsim"
	"github.com/smoynes/bootcore/internal/bootinfo"
	"github.com/smoynes/bootcore/internal/charsink"
	"github.com/smoynes/bootcore/internal/dispatch"
	"github.com/smoynes/bootcore/internal/klog"
	"github.com/smoynes/bootcore/internal/ksync"
	"github.com/smoynes/bootcore/internal/kshutdown"
	"github.com/smoynes/bootcore/internal/physmem"
	"github.com/smoynes/bootcore/internal/pmm"
	"github.com/smoynes/bootcore/internal/textio"
	"github.com/smoynes/bootcore/internal/trapframe"
)

// boot drives the entry sequence (spec §4.7) against a simulated
// architecture: it plays the role the teacher's demo command plays for the
// LC-3 machine, but for this core there is no other machine to demonstrate
// it on, since the real one is a real x86 CPU this repository never boots.
type boot struct {
	cmdLine      string
	ramMB        uint
	ticks        uint
	rebootOnFail bool
	rebootDelay  uint64
	debug        bool
}

// Boot builds the kernel-entry demonstration command.
func Boot() Command { return &boot{} }

func (boot) Description() string { return "boot the core against a simulated architecture" }

func (b *boot) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `boot [-ram-mb N] [-ticks N] [-cmdline "..."]

Run the entry sequence against a simulated architecture and idle for a
bounded number of simulated timer ticks before halting.`)

	return err
}

func (b *boot) FlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("boot", flag.ExitOnError)
	fs.StringVar(&b.cmdLine, "cmdline", "console=sim quiet", "simulated boot command line")
	fs.UintVar(&b.ramMB, "ram-mb", 64, "simulated total RAM, in megabytes")
	fs.UintVar(&b.ticks, "ticks", 5, "simulated timer ticks to run before halting")
	fs.BoolVar(&b.rebootOnFail, "reboot-on-fail", true, "reboot, rather than halt, on an unhandled failure")
	fs.Uint64Var(&b.rebootDelay, "reboot-delay-ms", kshutdown.DefaultRebootDelayMS, "delay before a failure reboot takes effect")
	fs.BoolVar(&b.debug, "debug", false, "treat kernel-mode breakpoint exceptions as fatal kernel assertion failures")

	return fs
}

func (b *boot) Run(_ context.Context, _ []string, out io.Writer, logger *klog.Logger) int {
	sink, restore := openSink(out)
	defer restore()

	cpu := archsim.NewProcessor(0)
	controller := archsim.NewController()
	shutdownHW := archsim.NewShutdownHardware()

	display := textio.NewDisplayTextStream(sink, cpu, 80, 25)
	shut := kshutdown.New(cpu, shutdownHW, display, b.rebootOnFail, b.rebootDelay)
	display.Bind(shut)

	exceptions := dispatch.NewExceptionDispatcher(cpu, func(vector uint8, frame *trapframe.TrapFrame, detail string, isAssertion bool) {
		if isAssertion {
			shut.FailAssertion(frame, "%s", detail)
			return
		}

		if detail == "" {
			detail = fmt.Sprintf("vector=%#x name=%s ip=%#x", vector, trapframe.VectorName(vector), frame.IP())
		}

		shut.Fail(frame, "unhandled exception: %s", detail)
	}, b.debug, logger)
	exceptions.Init(nil)

	// A breakpoint always resumes in this demo; there's no debugger attached
	// to supply assertion descriptors or decide otherwise.
	exceptions.Register(dispatch.Breakpoint, func(frame *trapframe.TrapFrame) (*trapframe.TrapFrame, bool) {
		return frame, true
	})

	interrupts := dispatch.NewInterruptDispatcher(cpu, controller, 0x20, logger)
	interrupts.Init()

	info, err := bootinfo.Translate(bootinfo.Magic, 0, buildBootWindow(b.cmdLine, uint64(b.ramMB)<<20))
	if err != nil {
		logger.Error("boot-info", "err", err)
		return 1
	}

	w := textio.NewTextWriter(display)
	w.Printf("booting: cmdline=%s modules=%d\n", info.CommandLine, len(info.Modules))

	var gate ksync.InterruptGate = cpu

	// This demo never loads a real kernel image, so there is no boot loader
	// to report its extents; kernelImage stands in for the link-time region
	// a real architecture stub would supply, so the watermark allocator
	// still demonstrates excluding it (spec §4.6, §12).
	kernelImage, err := physmem.NewRegion(0x100000, 1<<20)
	if err != nil {
		shut.Fail(nil, "kernel image region: %s", err.Error())
		return 1
	}

	modules := info.ModuleRegions(kernelImage)

	memory, stageTwoBytes, err := pmm.InitStageOne(gate, info.RAM, info.Reserved, modules)
	if err != nil {
		shut.Fail(nil, "pmm stage one: %s", err.Error())
		return 1
	}

	storage := make([]ksync.Cell, (stageTwoBytes+7)/8)

	if err := memory.InitStageTwo(storage, 0, stageTwoBytes); err != nil {
		shut.Fail(nil, "pmm stage two: %s", err.Error())
		return 1
	}

	stats := memory.Stats()
	w.Printf("pmm ready: total=%u free=%u reserved=%u withheld=%u\n",
		stats.TotalPages, stats.FreePages, stats.ReservedPages, stats.FramesWithheld)

	ticked := 0
	interrupts.OnTick(func() { ticked++ })

	cpu.RestoreInterrupts(true)

	for i := uint(0); i < b.ticks; i++ {
		frame := trapframe.NewKernelFrame(0x20, 0, false, [trapframe.NumGPR]uint32{}, 0, 0, 0, 0)
		cpu.Raise(0x20, &frame)
		cpu.WaitForInterrupt()
	}

	w.Printf("idle: %u ticks observed\n", uint32(ticked))

	shut.Halt()

	return 0
}

// openSink picks a real terminal sink when out is a TTY-backed *os.File,
// falling back to a plain stream sink otherwise.
func openSink(out io.Writer) (charsink.CharSink, func()) {
	if f, ok := out.(*os.File); ok {
		if term, err := charsink.NewTerminalSink(f); err == nil {
			return term, func() { term.Restore() }
		}
	}

	return charsink.NewStreamSink(out), func() {}
}

// buildBootWindow fabricates a Multiboot-style info structure in memory,
// standing in for what a real boot loader would leave behind, so Translate
// has something to parse in this simulated demo.
func buildBootWindow(cmdLine string, ramBytes uint64) bootinfo.SliceWindow {
	const (
		flagCmdLine = 1 << 2
		flagMemory  = 1 << 0
		headerSize  = 52
	)

	cmdAddr := uint32(headerSize)
	buf := make([]byte, headerSize+len(cmdLine)+1)

	binary.LittleEndian.PutUint32(buf[0:4], flagCmdLine|flagMemory)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(640))                 // lower KB
	binary.LittleEndian.PutUint32(buf[8:12], uint32(ramBytes/1024)-1024) // upper KB
	binary.LittleEndian.PutUint32(buf[16:20], cmdAddr)

	copy(buf[headerSize:], cmdLine)

	return bootinfo.NewSliceWindow(0, buf)
}
