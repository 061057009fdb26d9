// Package charsink declares the CharSink capability and the sixteen-color
// palette it paints with, and implements it over a real Unix terminal using
// raw mode, so the kernel core's diagnostic output lands on the screen
// exactly as it was written, one cell at a time, with no line editing or
// echo getting in the way.
package charsink

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// TerminalSink is a CharSink backed by the process's controlling terminal.
// It puts the terminal into raw mode for the lifetime of the sink; Restore
// must be called to return it to its original state.
type TerminalSink struct {
	fd    int
	state *term.State
	fg    Color
	bg    Color
}

// ErrNoTTY is returned by NewTerminalSink when the given file is not
// connected to a terminal.
var ErrNoTTY = fmt.Errorf("charsink: not a TTY")

// NewTerminalSink puts out into raw mode and returns a sink that writes to
// it. Callers must call Restore when the sink is no longer needed.
func NewTerminalSink(out *os.File) (*TerminalSink, error) {
	fd := int(out.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTTY, err)
	}

	sink := &TerminalSink{fd: fd, state: state}

	if err := sink.setTerminalParams(1, 0); err != nil {
		_ = term.Restore(fd, state)
		return nil, err
	}

	return sink, nil
}

// setTerminalParams configures the termios VMIN/VTIME values controlling
// how raw reads block, mirroring a console's input configuration even
// though this sink is output-only: the same fd is shared with the kernel's
// (not-yet-built) input path, and restoring these values here keeps that
// future wiring from needing to touch raw termios itself.
func (s *TerminalSink) setTerminalParams(vmin, vtime byte) error {
	termIO, err := unix.IoctlGetTermios(s.fd, ioctlGetTermios)
	if err != nil {
		return err
	}

	termIO.Cc[unix.VMIN] = vmin
	termIO.Cc[unix.VTIME] = vtime

	return unix.IoctlSetTermios(s.fd, ioctlSetTermios, termIO)
}

// Restore returns the terminal to the state it was in before NewTerminalSink
// was called.
func (s *TerminalSink) Restore() error {
	return term.Restore(s.fd, s.state)
}

// Put implements CharSink.
func (s *TerminalSink) Put(c byte) {
	unix.Write(s.fd, []byte{c})
}

// Tab implements CharSink.
func (s *TerminalSink) Tab() { unix.Write(s.fd, []byte{'\t'}) }

// NewLine implements CharSink.
func (s *TerminalSink) NewLine() { unix.Write(s.fd, []byte("\r\n")) }

// Clear implements CharSink, emitting the ANSI clear-screen sequence.
func (s *TerminalSink) Clear() { unix.Write(s.fd, []byte("\x1b[2J\x1b[H")) }

// Reset implements CharSink, emitting the ANSI full-reset sequence.
func (s *TerminalSink) Reset() {
	unix.Write(s.fd, []byte("\x1bc"))
	s.fg, s.bg = Black, Black
}

// SetForeground implements CharSink using the ANSI 16-color palette.
func (s *TerminalSink) SetForeground(c Color) {
	s.fg = c
	unix.Write(s.fd, []byte(fmt.Sprintf("\x1b[%dm", ansiForeground(c))))
}

// SetBackground implements CharSink using the ANSI 16-color palette.
func (s *TerminalSink) SetBackground(c Color) {
	s.bg = c
	unix.Write(s.fd, []byte(fmt.Sprintf("\x1b[%dm", ansiBackground(c))))
}

// ansiColors maps Color to the base ANSI color index (0-7); for the bright
// colors isBright reports, ansiForeground and ansiBackground add the bright
// variant's offset.
var ansiColors = map[Color]int{
	Black: 0, DarkRed: 1, DarkGreen: 2, Brown: 3,
	DarkBlue: 4, DarkCyan: 6, Magenta: 5, LightGrey: 7,
	DarkGrey: 0, LightRed: 1, LightGreen: 2, Yellow: 3,
	LightBlue: 4, LightCyan: 6, Pink: 5, White: 7,
}

func isBright(c Color) bool {
	switch c {
	case DarkGrey, LightRed, LightGreen, Yellow,
		LightBlue, LightCyan, Pink, White:
		return true
	default:
		return false
	}
}

func ansiForeground(c Color) int {
	base := 30 + ansiColors[c]
	if isBright(c) {
		base += 60
	}

	return base
}

func ansiBackground(c Color) int {
	base := 40 + ansiColors[c]
	if isBright(c) {
		base += 60
	}

	return base
}
