package textio

import "testing"

func TestPrintf_WidthAndAlign(tt *testing.T) {
	tt.Parallel()

	tcs := []struct {
		name   string
		format string
		args   []any
		want   string
	}{
		{name: "left align with star", format: "%-*d|", args: []any{5, 7}, want: "7    |\x00"},
		{name: "right align with star", format: "%*d|", args: []any{5, 7}, want: "    7|\x00"},
		{name: "hex default pointer width", format: "%x", args: []any{uint32(0xab)}, want: "0x000000ab\x00"},
		{name: "literal percent", format: "100%%", args: nil, want: "100%\x00"},
		{name: "string verb", format: "%s", args: []any{"hi"}, want: "hi\x00"},
	}

	for _, tc := range tcs {
		tc := tc

		tt.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sink := &fakeSink{}
			w := NewTextWriter(sink)

			ok := w.Printf(tc.format, tc.args...)
			if !ok {
				t.Fatalf("Printf returned false")
			}

			if got := sink.out.String(); got != tc.want {
				t.Errorf("want %q, got %q", tc.want, got)
			}
		})
	}
}

func TestPrintf_WidthCasesWithoutTrailingNull(tt *testing.T) {
	tt.Parallel()

	tcs := []struct {
		format string
		args   []any
		want   string
	}{
		{format: "%-*d|", args: []any{5, 7}, want: "7    |"},
		{format: "%*d|", args: []any{5, 7}, want: "    7|"},
	}

	for _, tc := range tcs {
		sink := &fakeSink{}
		w := NewTextWriter(sink)
		w.Printf(tc.format, tc.args...)

		got := sink.out.String()
		got = got[:len(got)-1] // drop the trailing NUL this call appends.

		if got != tc.want {
			tt.Errorf("%q: want %q, got %q", tc.format, tc.want, got)
		}
	}
}

func TestPrintf_Malformed(tt *testing.T) {
	tt.Parallel()

	sink := &fakeSink{}
	w := NewTextWriter(sink)

	ok := w.Printf("prefix%q")
	if ok {
		tt.Fatal("expected malformed specifier to return false")
	}

	if got := sink.out.String(); got != "prefix" {
		tt.Errorf("expected only the prefix to be emitted, got %q", got)
	}
}

func TestPrintf_INTMIN(tt *testing.T) {
	tt.Parallel()

	sink := &fakeSink{}
	w := NewTextWriter(sink)

	w.Printf("%d", int32(-2147483648))

	got := sink.out.String()
	got = got[:len(got)-1]

	if got != "-2147483648" {
		tt.Errorf("want -2147483648, got %q", got)
	}
}
