// Package charsink_test exercises TerminalSink against the real controlling
// terminal. Like the terminal package this is adapted from, the test is
// skipped when stdin/stdout isn't a TTY — which is always the case under
// "go test", since it redirects the test binary's standard streams. Build
// and run the test binary directly to exercise it:
//
//	$ go test -c && ./charsink.test
package charsink_test

import (
	"errors"
	"os"
	"testing"

	"github.com/smoynes/bootcore/internal/charsink"
)

func TestTerminalSink_PutAndColor(tt *testing.T) {
	sink, err := charsink.NewTerminalSink(os.Stdout)
	if errors.Is(err, charsink.ErrNoTTY) {
		tt.Skipf("not a tty: %s", err)
	}

	if err != nil {
		tt.Fatalf("NewTerminalSink: %v", err)
	}

	defer sink.Restore()

	sink.SetForeground(charsink.LightGreen)
	sink.SetBackground(charsink.Black)
	sink.Clear()
	sink.Put('K')
	sink.Tab()
	sink.NewLine()
	sink.Reset()
}
