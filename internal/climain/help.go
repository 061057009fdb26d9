package climain

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/smoynes/bootcore/internal/klog"
)

type help struct {
	cmds []Command
}

// Help builds the command run when no sub-command matches, listing every
// command in cmds.
func Help(cmds []Command) Command {
	return &help{cmds: cmds}
}

func (help) Description() string { return "display help for commands" }

func (h *help) FlagSet() *flag.FlagSet {
	return flag.NewFlagSet("help", flag.ExitOnError)
}

func (h *help) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, "kernel <command> [option]...")
	return err
}

func (h *help) Run(_ context.Context, _ []string, out io.Writer, _ *klog.Logger) int {
	fmt.Fprintln(out, "Commands:")

	for _, cmd := range h.cmds {
		fs := cmd.FlagSet()
		fmt.Fprintf(out, "  %-12s %s\n", fs.Name(), cmd.Description())
	}

	return 0
}
