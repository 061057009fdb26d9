// Package arch declares the capability interfaces the architecture-neutral
// core consumes from the architecture-specific layer: the raw text-cell
// display (CharSink), per-CPU control (Processor), the IRQ controller
// (InterruptController), and shutdown's hardware primitives
// (ShutdownHardware). None of these are implemented in this package — the
// assembly entry stub, GDT/IDT/TSS wire formats, and I/O port instructions
// that back them are out of scope for the core (spec §1) and are provided
// by whatever architecture port embeds it. internal/archsim and
// internal/charsink provide reference implementations used by tests and the
// cmd/kernel demo.
package arch

import "github.com/smoynes/bootcore/internal/charsink"

// Color and CharSink live in internal/charsink rather than here, so that
// internal/textio — which every diagnostic formatter, including the trap
// frame dump, needs to import — never has to import this package and, with
// it, Processor's dependency on internal/trapframe. These aliases keep the
// arch.Color / arch.CharSink names working for callers that predate the
// move.
type (
	Color    = charsink.Color
	CharSink = charsink.CharSink
)

// The sixteen predefined colors a CharSink must support.
const (
	Black      = charsink.Black
	White      = charsink.White
	DarkGrey   = charsink.DarkGrey
	LightGrey  = charsink.LightGrey
	DarkRed    = charsink.DarkRed
	LightRed   = charsink.LightRed
	DarkGreen  = charsink.DarkGreen
	LightGreen = charsink.LightGreen
	DarkBlue   = charsink.DarkBlue
	LightBlue  = charsink.LightBlue
	DarkCyan   = charsink.DarkCyan
	LightCyan  = charsink.LightCyan
	Magenta    = charsink.Magenta
	Pink       = charsink.Pink
	Brown      = charsink.Brown
	Yellow     = charsink.Yellow
)
