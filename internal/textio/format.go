package textio

import (
	"strconv"
)

// Printf parses and executes a format string against w, in the grammar
// %[-][*][b|h|l]{c,d,i,u,x,s,p,O} plus %%. Arguments are consumed
// left-to-right as each specifier needs them: a '*' width consumes one int
// argument before the value argument for that specifier.
//
// The parser is a closed state machine: outside a specifier, inside one
// after '%', after an optional '-', after an optional '*' width argument,
// after an optional size modifier, and at the type character that ends it.
// Any character that cannot advance the machine aborts the whole operation:
// Printf returns false, having already written every character formatted
// before the illegal transition — nothing after '%' is emitted.
//
// Every successful call ends by writing a null byte to the sink, which
// triggers a flush in DisplayTextStream.
func (w *TextWriter) Printf(format string, args ...any) bool {
	argi := 0

	nextArg := func() any {
		if argi >= len(args) {
			return nil
		}

		v := args[argi]
		argi++

		return v
	}

	i := 0
	for i < len(format) {
		c := format[i]

		if c != '%' {
			w.WriteChar(c)
			i++

			continue
		}

		// c == '%'; parse a specifier starting at i+1.
		n, ok := w.printSpecifier(format[i+1:], nextArg)
		if !ok {
			return false
		}

		i += 1 + n
	}

	w.WriteChar(0)

	return true
}

// printSpecifier parses and executes one specifier from s (the text
// immediately after a '%'), returning how many bytes of s were consumed and
// whether the specifier was well-formed.
func (w *TextWriter) printSpecifier(s string, nextArg func() any) (int, bool) {
	saved := w.save()
	defer w.restore(saved)

	pos := 0

	if pos < len(s) && s[pos] == '%' {
		w.WriteChar('%')
		return pos + 1, true
	}

	left := false
	if pos < len(s) && s[pos] == '-' {
		left = true
		pos++
	}

	width := 0
	if pos < len(s) && s[pos] == '*' {
		pos++

		wArg := nextArg()

		wi, ok := wArg.(int)
		if !ok {
			return pos, false
		}

		width = wi
	}

	var size byte
	if pos < len(s) {
		switch s[pos] {
		case 'b', 'h', 'l':
			size = s[pos]
			pos++
		}
	}

	if pos >= len(s) {
		return pos, false
	}

	w.SetLeftAlign(left)
	w.SetWidth(width)

	typ := s[pos]
	pos++

	switch typ {
	case 'c':
		return w.printChar(pos, nextArg)
	case 'd', 'i':
		return w.printSigned(pos, size, nextArg)
	case 'u':
		return w.printUnsigned(pos, size, false, nextArg)
	case 'x':
		return w.printUnsigned(pos, size, true, nextArg)
	case 'p':
		return w.printPointer(pos, nextArg)
	case 's':
		return w.printString(pos, nextArg)
	case 'O':
		return w.printObject(pos, nextArg)
	default:
		return pos, false
	}
}

func (w *TextWriter) printChar(pos int, nextArg func() any) (int, bool) {
	v := nextArg()

	switch n := v.(type) {
	case byte:
		w.WriteChar(n)
	case int:
		w.WriteChar(byte(n))
	default:
		return pos, false
	}

	return pos, true
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case uintptr:
		return uint64(n), true
	default:
		return 0, false
	}
}

func sizeOf(size byte) int {
	switch size {
	case 'b':
		return 1
	case 'h':
		return 2
	case 'l':
		return 4
	default:
		return 4 // pointer-sized.
	}
}

func (w *TextWriter) printSigned(pos int, size byte, nextArg func() any) (int, bool) {
	v, ok := toInt64(nextArg())
	if !ok {
		return pos, false
	}

	if v >= 0 {
		w.WriteString(strconv.FormatInt(v, 10))
		return pos, true
	}

	mag := uint64(-(v + 1)) + 1
	w.WriteString("-" + strconv.FormatUint(mag, 10))

	return pos, true
}

func (w *TextWriter) printUnsigned(pos int, size byte, hex bool, nextArg func() any) (int, bool) {
	v, ok := toUint64(nextArg())
	if !ok {
		return pos, false
	}

	if hex {
		w.writeHex(v, sizeOf(size))
	} else {
		w.WriteString(strconv.FormatUint(v, 10))
	}

	return pos, true
}

func (w *TextWriter) printPointer(pos int, nextArg func() any) (int, bool) {
	v, ok := toUint64(nextArg())
	if !ok {
		return pos, false
	}

	w.writeHex(v, addrDigits/2)

	return pos, true
}

func (w *TextWriter) printString(pos int, nextArg func() any) (int, bool) {
	s, ok := nextArg().(string)
	if !ok {
		return pos, false
	}

	w.WriteString(s)

	return pos, true
}

func (w *TextWriter) printObject(pos int, nextArg func() any) (int, bool) {
	obj, ok := nextArg().(Writable)
	if !ok {
		return pos, false
	}

	w.WriteObject(obj)

	return pos, true
}
