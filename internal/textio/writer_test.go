package textio

import "testing"

func TestTextWriter_WriteString_Width(tt *testing.T) {
	tt.Parallel()

	tcs := []struct {
		name  string
		width int
		left  bool
		s     string
		want  string
	}{
		{name: "no padding needed", width: 2, s: "hello", want: "hello"},
		{name: "right align default", width: 8, s: "hi", want: "      hi"},
		{name: "left align", width: 8, left: true, s: "hi", want: "hi      "},
		{name: "zero width", width: 0, s: "hi", want: "hi"},
	}

	for _, tc := range tcs {
		tc := tc

		tt.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sink := &fakeSink{}
			w := NewTextWriter(sink)
			w.SetWidth(tc.width).SetLeftAlign(tc.left).WriteString(tc.s)

			if got := sink.out.String(); got != tc.want {
				t.Errorf("want %q, got %q", tc.want, got)
			}
		})
	}
}

func TestTextWriter_WriteString_NeverTruncates(tt *testing.T) {
	tt.Parallel()

	sink := &fakeSink{}
	w := NewTextWriter(sink)
	w.SetWidth(2).WriteString("much longer than width")

	if got := sink.out.String(); got != "much longer than width" {
		tt.Errorf("string was truncated: %q", got)
	}
}

func TestTextWriter_Integers_Decimal(tt *testing.T) {
	tt.Parallel()

	sink := &fakeSink{}
	w := NewTextWriter(sink)
	w.WriteInt32(-2147483648)

	if got := sink.out.String(); got != "-2147483648" {
		tt.Errorf("INT_MIN: want -2147483648, got %q", got)
	}
}

func TestTextWriter_Integers_Hex(tt *testing.T) {
	tt.Parallel()

	sink := &fakeSink{}
	w := NewTextWriter(sink)
	w.SetHex(true).WriteUint8(0xab)

	if got := sink.out.String(); got != "0xab" {
		tt.Errorf("want 0xab, got %q", got)
	}
}

func TestTextWriter_WritePointer_ZeroPadded(tt *testing.T) {
	tt.Parallel()

	sink := &fakeSink{}
	w := NewTextWriter(sink)
	w.WritePointer(0x1000)

	if got := sink.out.String(); got != "0x00001000" {
		tt.Errorf("want 0x00001000, got %q", got)
	}
}

func TestTextWriter_WriteObject(tt *testing.T) {
	tt.Parallel()

	sink := &fakeSink{}
	w := NewTextWriter(sink)

	obj := writableFunc(func(w *TextWriter) { w.WriteString("OBJ") })
	w.WriteObject(obj)

	if got := sink.out.String(); got != "OBJ" {
		tt.Errorf("want OBJ, got %q", got)
	}
}

type writableFunc func(w *TextWriter)

func (f writableFunc) WriteTo(w *TextWriter) { f(w) }
