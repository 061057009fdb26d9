// Package textio implements the kernel's byte-exact diagnostic text
// pipeline: a TextWriter that formats values onto a pluggable CharSink, the
// printf-style formatter built on top of it, and the line-buffered
// DisplayTextStream singleton.
package textio

import (
	"strconv"

	"github.com/smoynes/bootcore/internal/charsink"
)

// Writable is implemented by values that know how to render themselves to a
// TextWriter. WriteObject double-dispatches to it, the way the teacher's
// MMIO double-dispatches loads and stores to a Driver.
type Writable interface {
	WriteTo(w *TextWriter)
}

// TextWriter formats values onto a CharSink. It is stateless with respect to
// the sink's own buffering — the sink decides when bytes actually reach the
// display. A TextWriter's mutable fields (hex mode, width, left-align) are
// mutated by callers between emits and carry no buffer of their own.
type TextWriter struct {
	sink      charsink.CharSink
	hex       bool
	width     int
	leftAlign bool
}

// NewTextWriter creates a TextWriter around sink.
func NewTextWriter(sink charsink.CharSink) *TextWriter {
	return &TextWriter{sink: sink}
}

// SetHex toggles hexadecimal rendering of integers. It returns the writer so
// calls can be chained.
func (w *TextWriter) SetHex(hex bool) *TextWriter {
	w.hex = hex
	return w
}

// SetWidth sets the minimum field width of the next value written. It
// returns the writer so calls can be chained.
func (w *TextWriter) SetWidth(width int) *TextWriter {
	w.width = width
	return w
}

// SetLeftAlign sets whether padding goes on the right (true) or left
// (false, the default). It returns the writer so calls can be chained.
func (w *TextWriter) SetLeftAlign(left bool) *TextWriter {
	w.leftAlign = left
	return w
}

// state captures the writer's mutable fields so a caller can restore them
// after a one-off write, the way the formatted printer does between
// specifiers.
type state struct {
	hex       bool
	width     int
	leftAlign bool
}

func (w *TextWriter) save() state {
	return state{hex: w.hex, width: w.width, leftAlign: w.leftAlign}
}

func (w *TextWriter) restore(s state) {
	w.hex, w.width, w.leftAlign = s.hex, s.width, s.leftAlign
}

// WriteChar writes a single character, ignoring width and alignment.
func (w *TextWriter) WriteChar(c byte) {
	w.sink.Put(c)
}

// WriteString writes s, honoring the writer's width and alignment. It emits
// at least max(width, len(s)) characters and never truncates s.
func (w *TextWriter) WriteString(s string) {
	pad := w.width - len(s)

	if pad <= 0 {
		w.emit(s)
		return
	}

	if w.leftAlign {
		w.emit(s)
		w.emitSpaces(pad)
	} else {
		w.emitSpaces(pad)
		w.emit(s)
	}
}

func (w *TextWriter) emit(s string) {
	for i := 0; i < len(s); i++ {
		w.sink.Put(s[i])
	}
}

func (w *TextWriter) emitSpaces(n int) {
	for i := 0; i < n; i++ {
		w.sink.Put(' ')
	}
}

// addrDigits is the number of hex digits a pointer-sized value is padded to.
const addrDigits = 8

// WritePointer writes p as hex, zero-padded to the address width, always
// prefixed with 0x.
func (w *TextWriter) WritePointer(p uint32) {
	w.writeHex(uint64(p), 4)
}

// WriteUint8 writes an 8-bit unsigned integer in the writer's current mode.
func (w *TextWriter) WriteUint8(v uint8) { w.writeUnsigned(uint64(v), 1) }

// WriteUint16 writes a 16-bit unsigned integer in the writer's current mode.
func (w *TextWriter) WriteUint16(v uint16) { w.writeUnsigned(uint64(v), 2) }

// WriteUint32 writes a 32-bit unsigned integer in the writer's current mode.
func (w *TextWriter) WriteUint32(v uint32) { w.writeUnsigned(uint64(v), 4) }

// WriteUintptr writes a pointer-sized unsigned integer in the writer's
// current mode.
func (w *TextWriter) WriteUintptr(v uint32) { w.writeUnsigned(uint64(v), 4) }

// WriteInt8 writes an 8-bit signed integer in the writer's current mode.
func (w *TextWriter) WriteInt8(v int8) { w.writeSigned(int64(v), 1) }

// WriteInt16 writes a 16-bit signed integer in the writer's current mode.
func (w *TextWriter) WriteInt16(v int16) { w.writeSigned(int64(v), 2) }

// WriteInt32 writes a 32-bit signed integer in the writer's current mode.
func (w *TextWriter) WriteInt32(v int32) { w.writeSigned(int64(v), 4) }

// WriteIntptr writes a pointer-sized signed integer in the writer's current
// mode.
func (w *TextWriter) WriteIntptr(v int32) { w.writeSigned(int64(v), 4) }

func (w *TextWriter) writeUnsigned(v uint64, size int) {
	if w.hex {
		w.writeHex(v, size)
		return
	}

	w.WriteString(strconv.FormatUint(v, 10))
}

func (w *TextWriter) writeSigned(v int64, size int) {
	if w.hex {
		w.writeHex(uint64(uint32(v)), size)
		return
	}

	if v >= 0 {
		w.WriteString(strconv.FormatInt(v, 10))
		return
	}

	// Negate using unsigned arithmetic so math.MinInt64 (whose magnitude is
	// not representable as a positive int64) still renders correctly.
	mag := uint64(-(v + 1)) + 1
	w.WriteString("-" + strconv.FormatUint(mag, 10))
}

func (w *TextWriter) writeHex(v uint64, size int) {
	digits := size * 2
	s := strconv.FormatUint(v, 16)

	for len(s) < digits {
		s = "0" + s
	}

	w.WriteString("0x" + s)
}

// WriteObject double-dispatches to obj's own rendering.
func (w *TextWriter) WriteObject(obj Writable) {
	obj.WriteTo(w)
}
