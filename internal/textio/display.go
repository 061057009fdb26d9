package textio

import (
	"github.com/smoynes/bootcore/internal/charsink"
	"github.com/smoynes/bootcore/internal/ksync"
)

// ShutdownQuery reports whether the kernel has entered shutdown mode. It is
// satisfied by kshutdown.KShutdown, which is constructed after
// DisplayTextStream during kernel entry orchestration; Bind wires it in once
// it exists, keeping textio a leaf package that never imports kshutdown.
type ShutdownQuery interface {
	InShutdownMode() bool
}

type neverShuttingDown struct{}

func (neverShuttingDown) InShutdownMode() bool { return false }

// DisplayTextStream is the process-wide CharSink singleton: a line-granular
// buffer in front of the real display device. Writes are lock-guarded
// unless the kernel is in shutdown mode, in which case the lock is bypassed
// entirely.
//
// The bypass exists because the diagnostic path that runs during shutdown
// may itself fault and re-enter the display stream; blocking on its own
// already-held lock would deadlock the machine before any message reached
// the operator. It is safe only because, by the time shutdown mode is
// observed here, every other CPU is confirmed halted (see kshutdown) — the
// invariant "exactly one CPU is running" replaces mutual exclusion.
type DisplayTextStream struct {
	sink   charsink.CharSink
	lock   *ksync.Lock
	query  ShutdownQuery
	buf    []byte
	width  int
	height int
}

// NewDisplayTextStream creates a stream over sink with buf sized for a
// width x height screen. gate provides the interrupt-disabling primitive the
// internal Lock needs.
func NewDisplayTextStream(sink charsink.CharSink, gate ksync.InterruptGate, width, height int) *DisplayTextStream {
	return &DisplayTextStream{
		sink:   sink,
		lock:   ksync.New(gate, false),
		query:  neverShuttingDown{},
		buf:    make([]byte, 0, width*height),
		width:  width,
		height: height,
	}
}

// Bind wires in the shutdown-mode query once KShutdown has been
// constructed.
func (d *DisplayTextStream) Bind(query ShutdownQuery) {
	d.query = query
}

func (d *DisplayTextStream) withLock(fn func()) {
	if d.query.InShutdownMode() {
		fn()
		return
	}

	tok := d.lock.Acquire()
	defer d.lock.Release(tok)

	fn()
}

// Put buffers c, flushing first if the buffer is full, and flushing again
// immediately if c is a tab, newline, or null.
func (d *DisplayTextStream) Put(c byte) {
	d.withLock(func() {
		switch c {
		case '\t':
			d.flushLocked()
			d.sink.Tab()
		case '\n':
			d.flushLocked()
			d.sink.NewLine()
		case 0:
			d.flushLocked()
		default:
			if len(d.buf) >= cap(d.buf) {
				d.flushLocked()
			}

			d.buf = append(d.buf, c)
		}
	})
}

// Tab flushes the buffer and forwards a tab to the underlying sink.
func (d *DisplayTextStream) Tab() {
	d.withLock(func() {
		d.flushLocked()
		d.sink.Tab()
	})
}

// NewLine flushes the buffer and forwards a newline to the underlying sink.
func (d *DisplayTextStream) NewLine() {
	d.withLock(func() {
		d.flushLocked()
		d.sink.NewLine()
	})
}

// Clear flushes and clears the underlying sink.
func (d *DisplayTextStream) Clear() {
	d.withLock(func() {
		d.flushLocked()
		d.sink.Clear()
	})
}

// Reset discards any buffered output and resets the underlying sink. This is
// called by the shutdown coordinator when it seizes the display from a
// possibly mid-write owner.
func (d *DisplayTextStream) Reset() {
	d.withLock(func() {
		d.buf = d.buf[:0]
		d.sink.Reset()
	})
}

// SetForeground forwards to the underlying sink.
func (d *DisplayTextStream) SetForeground(c charsink.Color) {
	d.withLock(func() { d.sink.SetForeground(c) })
}

// SetBackground forwards to the underlying sink.
func (d *DisplayTextStream) SetBackground(c charsink.Color) {
	d.withLock(func() { d.sink.SetBackground(c) })
}

// Flush writes any buffered characters to the sink.
func (d *DisplayTextStream) Flush() {
	d.withLock(d.flushLocked)
}

func (d *DisplayTextStream) flushLocked() {
	for _, c := range d.buf {
		d.sink.Put(c)
	}

	d.buf = d.buf[:0]
}
