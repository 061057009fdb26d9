// Package kshutdown implements the kernel's shutdown coordinator: the
// single path every CPU funnels through on an unrecoverable failure or a
// deliberate reboot/halt request, whichever CPU gets there first.
//
// Exactly one CPU becomes the shutdown initiator — decided with a
// compare-and-swap race against a sentinel, not a lock, since the losing
// CPUs may themselves be mid-fault and unable to release one (spec §4.3).
package kshutdown

import (
	"fmt"
	"os"
	"time"

	"github.com/smoynes/bootcore/internal/arch"
	"github.com/smoynes/bootcore/internal/charsink"
	"github.com/smoynes/bootcore/internal/klog"
	"github.com/smoynes/bootcore/internal/ksync"
	"github.com/smoynes/bootcore/internal/textio"
	"github.com/smoynes/bootcore/internal/trapframe"
)

// noInitiator is the sentinel value of initiator before any CPU has claimed
// the shutdown path.
const noInitiator = -1

// DefaultRebootDelayMS is the pause between a failure report finishing and
// the machine actually rebooting, giving a human time to read the display.
const DefaultRebootDelayMS = 10000

// CPU is the narrow slice of arch.Processor the coordinator needs to learn
// which CPU is asking it to shut down.
type CPU interface {
	CurrentCPU() int
}

// KShutdown coordinates a single shutdown across every CPU in the machine.
// The zero value is not usable; construct one with New.
type KShutdown struct {
	cpu     CPU
	hw      arch.ShutdownHardware
	display *textio.DisplayTextStream
	logger  *klog.Logger

	initiator    ksync.SignedCell
	rebootOnFail ksync.FlagCell
	rebootDelay  ksync.Cell
}

// New builds a shutdown coordinator. rebootOnFail selects whether Fail
// reboots the machine (true) or halts it outright (false); rebootDelayMS is
// the pause, in milliseconds, a reboot waits after printing its report.
func New(cpu CPU, hw arch.ShutdownHardware, display *textio.DisplayTextStream, rebootOnFail bool, rebootDelayMS uint64) *KShutdown {
	k := &KShutdown{
		cpu:     cpu,
		hw:      hw,
		display: display,
		logger:  klog.NewFormattedLogger(os.Stderr),
	}

	k.initiator.Store(noInitiator)
	k.rebootOnFail.Store(rebootOnFail)
	k.rebootDelay.Store(rebootDelayMS)

	return k
}

// InShutdownMode reports whether some CPU — any CPU — has already entered
// the shutdown path. It implements textio.ShutdownQuery, letting the display
// stream bypass its own lock once this becomes true.
func (k *KShutdown) InShutdownMode() bool {
	return k.initiator.Load() != noInitiator
}

// enter runs the election protocol from spec §4.3: the calling CPU tries to
// CAS the initiator field from the sentinel to its own id. The winner
// proceeds to run report; every loser either notices it already lost to
// itself (a re-entrant failure on the initiator) or parks in
// WaitForInterrupt forever, since the initiator alone decides the machine's
// fate.
func (k *KShutdown) enter(report func()) {
	self := int64(k.cpu.CurrentCPU())

	if k.initiator.CAS(noInitiator, self) {
		// Every other CPU must be confirmed halted before the diagnostic
		// path writes a single character: that is the entire safety
		// argument for the display stream's shutdown-mode lock bypass
		// (§4.3, §9) — it only holds once no peer can still be touching
		// the display.
		k.hw.HaltAllOtherProcessors()
		report()
		return
	}

	if k.initiator.Load() == self {
		// Re-entered shutdown on the CPU that is already running it —
		// the original report call triggered a second failure inside its
		// own diagnostic path. A graceful halt or reboot can no longer be
		// trusted, so the machine resets immediately (spec §4.3 step 3).
		k.hw.HardReset()
		return
	}

	for {
		k.cpuWaitForInterrupt()
	}
}

// cpuWaitForInterruptHook runs on every pass of a losing CPU's wait loop;
// tests override it to observe and bound the loop.
var cpuWaitForInterruptHook = func(k *KShutdown) {}

// cpuWaitForInterrupt idles a losing CPU once: it calls the CPU capability's
// WaitForInterrupt when the capability has one, then the hook.
func (k *KShutdown) cpuWaitForInterrupt() {
	if waiter, ok := k.cpu.(interface{ WaitForInterrupt() }); ok {
		waiter.WaitForInterrupt()
	}

	cpuWaitForInterruptHook(k)
}

// panicBanner opens the report for an ordinary unrecoverable failure.
const panicBanner = "PANIC: "

// assertionBanner opens the report for a failed kernel assertion caught by
// the debug-build Breakpoint path (spec §4.4, §8 scenario 3) — distinct
// wording so the operator can tell a caught precondition failure apart from
// an ordinary unhandled fault at a glance.
const assertionBanner = "SYSTEM FAILURE (DEBUG CHECK): "

// Fail reports an unrecoverable error and brings the machine down. dump, if
// non-nil, is written after the message — callers pass the failing trap
// frame's dump view here.
func (k *KShutdown) Fail(dump textio.Writable, format string, args ...any) {
	k.fail(panicBanner, dump, format, args...)
}

// FailAssertion reports a failed debug-build kernel assertion, printing the
// SYSTEM FAILURE (DEBUG CHECK) banner followed by the message and the
// trapping frame that caught it (spec §8 scenario 3, §9).
func (k *KShutdown) FailAssertion(frame *trapframe.TrapFrame, format string, args ...any) {
	k.fail(assertionBanner, frame, format, args...)
}

// fail runs the shared failure-report protocol: the winning CPU seizes the
// display (discarding whatever was buffered, since the failure may itself
// have corrupted it), prints banner followed by the formatted message and
// dump, and then either reboots or halts depending on how the coordinator
// was configured.
func (k *KShutdown) fail(banner string, dump textio.Writable, format string, args ...any) {
	k.enter(func() {
		k.seizeDisplay()

		w := textio.NewTextWriter(displaySink{k.display})
		w.WriteString(banner)
		w.Printf(format, args...)
		w.WriteChar('\n')

		if dump != nil {
			w.WriteObject(dump)
		}

		k.display.Flush()
		k.logger.Error("kernel failure", "msg", fmt.Sprintf(format, args...))

		if k.rebootOnFail.Load() {
			k.doReboot()
		} else {
			k.doHalt()
		}
	})
}

// Reboot brings the machine down for a deliberate, non-failure restart.
func (k *KShutdown) Reboot() {
	k.enter(k.doReboot)
}

// Halt brings the machine down for a deliberate, non-failure stop.
func (k *KShutdown) Halt() {
	k.enter(k.doHalt)
}

// doReboot and doHalt assume the caller (enter) has already confirmed every
// other CPU halted; they only ever run on the shutdown initiator.
func (k *KShutdown) doReboot() {
	delayMS(k.rebootDelay.Load())
	k.hw.Reboot()
}

func (k *KShutdown) doHalt() {
	k.hw.HaltMachine()
}

// seizeDisplay discards whatever the display was doing and takes it over
// for the failure report. Reset, not Clear: the report must not inherit a
// half-written line from whatever was running when the fault hit.
func (k *KShutdown) seizeDisplay() {
	k.display.Reset()
}

// delayMS waits roughly ms milliseconds before a reboot. It is a package
// variable so tests can replace it.
var delayMS = func(ms uint64) { time.Sleep(time.Duration(ms) * time.Millisecond) }

// displaySink adapts *textio.DisplayTextStream to charsink.CharSink so the
// failure report can drive a fresh TextWriter into the seized display.
// Characters still pass through the display's buffer; fail flushes it once
// the report is written.
type displaySink struct{ d *textio.DisplayTextStream }

func (s displaySink) Put(c byte)                     { s.d.Put(c) }
func (s displaySink) Tab()                           { s.d.Tab() }
func (s displaySink) NewLine()                       { s.d.NewLine() }
func (s displaySink) Clear()                         { s.d.Clear() }
func (s displaySink) Reset()                         { s.d.Reset() }
func (s displaySink) SetForeground(c charsink.Color) { s.d.SetForeground(c) }
func (s displaySink) SetBackground(c charsink.Color) { s.d.SetBackground(c) }
