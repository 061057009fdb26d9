// Package klog provides the kernel's diagnostic logging output.
//
// It wraps log/slog with a Handler that renders each record as a single
// space-separated line of key=value pairs, the same compact style the rest
// of the core writes to its console through textio (e.g. "pmm ready:
// total=... free=..."), rather than slog's built-in JSON or text encodings.
// A multi-line block per record would scroll a small boot console out of
// view after only a handful of log lines, which a one-line-per-record format
// avoids.
package klog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"
	"time"
)

var (
	// DefaultLogger returns the package-wide logger. Components call this once during
	// initialization and cache the result; the default does not change at runtime.
	DefaultLogger = func() *Logger { return NewFormattedLogger(os.Stderr) }

	// SetDefault overrides the default logger used by slog's package-level helpers.
	SetDefault = slog.SetDefault

	// DefaultLevel holds the current logging level and can be adjusted at runtime, e.g. from a CLI flag.
	DefaultLevel = &slog.LevelVar{}
)

// NewFormattedLogger returns a logger that writes formatted records to out.
func NewFormattedLogger(out io.Writer) *Logger {
	return slog.New(NewHandler(out))
}

// Handler implements slog.Handler, rendering each record as a single line
// of key=value pairs.
type Handler struct {
	mut *sync.Mutex
	out io.Writer

	opts  *slog.HandlerOptions
	group string
	attrs []Attr
}

// Options configures every Handler created by NewHandler.
var Options = &slog.HandlerOptions{
	AddSource:   true,
	Level:       DefaultLevel,
	ReplaceAttr: func(_ []string, attr Attr) Attr { return attr },
}

// NewHandler creates a Handler writing to out.
func NewHandler(out io.Writer) *Handler {
	return &Handler{
		out:  out,
		mut:  new(sync.Mutex),
		opts: Options,
	}
}

// Enabled reports whether the handler emits records at the given level.
func (h *Handler) Enabled(_ context.Context, level Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle formats and writes a single record as one line.
func (h *Handler) Handle(_ context.Context, rec slog.Record) error {
	buf := make([]byte, 0, 256)
	out := bytes.NewBuffer(buf)

	if !rec.Time.IsZero() {
		fmt.Fprintf(out, "time=%s ", rec.Time.Format(time.RFC3339Nano))
	}

	fmt.Fprintf(out, "level=%s", rec.Level.String())

	if h.opts.AddSource && rec.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{rec.PC})
		f, _ := frames.Next()
		_, file := path.Split(f.File)
		fmt.Fprintf(out, " source=%s:%d", file, f.Line)
	}

	fmt.Fprintf(out, " msg=%q", rec.Message)

	for _, a := range h.attrs {
		if err := h.appendAttr(out, a, h.group); err != nil {
			return err
		}
	}

	var attrErr error
	rec.Attrs(func(attr Attr) bool {
		if err := h.appendAttr(out, attr, h.group); err != nil {
			attrErr = err
			return false
		}
		return true
	})

	if attrErr != nil {
		return attrErr
	}

	fmt.Fprintln(out)

	h.mut.Lock()
	defer h.mut.Unlock()

	_, err := h.out.Write(out.Bytes())

	return err
}

// WithGroup returns a handler that nests subsequent attributes under name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	attrs := make([]Attr, len(h.attrs))
	copy(attrs, h.attrs)

	return &Handler{
		mut:   h.mut,
		out:   h.out,
		opts:  h.opts,
		attrs: attrs,
		group: name,
	}
}

// WithAttrs returns a handler that always includes the given attributes.
func (h *Handler) WithAttrs(attrs []Attr) slog.Handler {
	as := make([]Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(as, h.attrs)
	as = append(as, attrs...)

	return &Handler{
		out:   h.out,
		mut:   h.mut,
		opts:  h.opts,
		attrs: as,
	}
}

// appendAttr writes attr as one or more " key=value" pairs to out. prefix, if
// non-empty, is prepended to each key with a dot, so a group nests its
// members as parent.child=value rather than a separate indented block.
func (h *Handler) appendAttr(out io.Writer, attr slog.Attr, prefix string) error {
	var err error

	attr.Value = attr.Value.Resolve()
	attr = h.opts.ReplaceAttr([]string{prefix}, attr)

	key, value := attr.Key, attr.Value

	switch {
	case attr.Equal(Attr{}):
		return nil

	case value.Kind() != slog.KindGroup:
		if prefix != "" {
			key = prefix + "." + key
		}

		_, err = fmt.Fprintf(out, " %s=%v", key, formatValue(value))

		return err

	default:
		nested := prefix
		if key != "" {
			if nested != "" {
				nested = nested + "." + key
			} else {
				nested = key
			}
		}

		for _, a := range value.Group() {
			if err := h.appendAttr(out, a, nested); err != nil {
				return err
			}
		}
	}

	return nil
}

// formatValue quotes a string value that contains a space, an equals sign or
// a double quote,
// so the line stays parseable as whitespace-separated key=value pairs.
func formatValue(value slog.Value) any {
	if value.Kind() == slog.KindString {
		s := value.String()
		if strings.ContainsAny(s, " =\"") {
			return fmt.Sprintf("%q", s)
		}

		return s
	}

	return value.Any()
}

// Loggable is implemented by components that adopt a logger after construction.
type Loggable interface {
	WithLogger(*Logger)
}

type (
	Attr   = slog.Attr
	Level  = slog.Level
	Logger = slog.Logger
	Value  = slog.Value
)

var (
	String      = slog.String
	StringValue = slog.StringValue
	Group       = slog.Group
	GroupValue  = slog.GroupValue
	Any         = slog.Any
	AnyValue    = slog.AnyValue
	Uint64Value = slog.Uint64Value
	Int64Value  = slog.Int64Value
	BoolValue   = slog.BoolValue
)

const (
	Debug = slog.LevelDebug
	Info  = slog.LevelInfo
	Warn  = slog.LevelWarn
	Error = slog.LevelError
)
