package textio

import (
	"strings"

	"github.com/smoynes/bootcore/internal/charsink"
)

// fakeSink is a minimal charsink.CharSink recording everything written to
// it, for use across this package's tests.
type fakeSink struct {
	out   strings.Builder
	tabs  int
	lines int
	clrs  int
	rsts  int
	fg    charsink.Color
	bg    charsink.Color
}

func (f *fakeSink) Put(c byte)                     { f.out.WriteByte(c) }
func (f *fakeSink) Tab()                           { f.tabs++ }
func (f *fakeSink) NewLine()                       { f.lines++ }
func (f *fakeSink) Clear()                         { f.clrs++ }
func (f *fakeSink) Reset()                         { f.rsts++ }
func (f *fakeSink) SetForeground(c charsink.Color) { f.fg = c }
func (f *fakeSink) SetBackground(c charsink.Color) { f.bg = c }

type fakeGate struct{ enabled bool }

func (g *fakeGate) DisableInterrupts() bool {
	was := g.enabled
	g.enabled = false

	return was
}

func (g *fakeGate) RestoreInterrupts(was bool) { g.enabled = was }
