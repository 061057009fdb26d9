package charsink

import (
	"fmt"
	"io"
)

// StreamSink is a plain CharSink over any io.Writer, used when the process
// isn't attached to a real terminal — piped output, CI, the non-interactive
// path through cmd/kernel's demo — so the kernel core never has to
// special-case "no TTY available" itself.
type StreamSink struct {
	w      io.Writer
	fg, bg Color
}

// NewStreamSink builds a StreamSink writing to w.
func NewStreamSink(w io.Writer) *StreamSink { return &StreamSink{w: w} }

// Put implements CharSink.
func (s *StreamSink) Put(c byte) { fmt.Fprintf(s.w, "%c", c) }

// Tab implements CharSink.
func (s *StreamSink) Tab() { fmt.Fprint(s.w, "\t") }

// NewLine implements CharSink.
func (s *StreamSink) NewLine() { fmt.Fprintln(s.w) }

// Clear implements CharSink.
func (s *StreamSink) Clear() { fmt.Fprint(s.w, "\x1b[2J\x1b[H") }

// Reset implements CharSink.
func (s *StreamSink) Reset() {
	fmt.Fprint(s.w, "\x1bc")
	s.fg, s.bg = Black, Black
}

// SetForeground implements CharSink.
func (s *StreamSink) SetForeground(c Color) {
	s.fg = c
	fmt.Fprintf(s.w, "\x1b[%dm", ansiForeground(c))
}

// SetBackground implements CharSink.
func (s *StreamSink) SetBackground(c Color) {
	s.bg = c
	fmt.Fprintf(s.w, "\x1b[%dm", ansiBackground(c))
}
