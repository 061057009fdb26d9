// Package climain is the command-line front end shared by the core's demo
// and test harness binaries. It is never imported by the core itself — the
// core has no filesystem or argv at the boot stage it models (spec §6) —
// only by cmd/kernel, which needs somewhere to park its flags.
package climain

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/smoynes/bootcore/internal/klog"
)

// Command is a sub-command the Commander can dispatch to. Each one owns its
// own flag set, the way the teacher's CLI commands do.
type Command interface {
	FlagSet() *flag.FlagSet
	Description() string
	Usage(out io.Writer) error
	Run(ctx context.Context, args []string, out io.Writer, logger *klog.Logger) int
}

// Commander runs one of a fixed set of Commands chosen by argv[0].
type Commander struct {
	ctx context.Context
	log *klog.Logger

	help     Command
	commands []Command
}

// New creates a Commander that dispatches within ctx.
func New(ctx context.Context) *Commander {
	return &Commander{ctx: ctx}
}

// WithCommands registers the Commander's sub-commands.
func (c *Commander) WithCommands(cmds []Command) *Commander {
	c.commands = append([]Command(nil), cmds...)
	return c
}

// WithHelp sets the command run when no sub-command matches.
func (c *Commander) WithHelp(cmd Command) *Commander {
	c.help = cmd
	return c
}

// WithLogger installs the default logger used by commands that don't build
// their own.
func (c *Commander) WithLogger(out *os.File) *Commander {
	logger := klog.NewFormattedLogger(out)
	c.log = logger
	klog.SetDefault(logger)

	return c
}

// Execute dispatches args[0] to a matching command's FlagSet, parses the
// remaining arguments against it, and runs it.
func (c *Commander) Execute(args []string) int {
	if len(args) == 0 {
		return c.help.Run(c.ctx, nil, os.Stdout, c.log)
	}

	found := c.help

	for _, cmd := range c.commands {
		if args[0] == cmd.FlagSet().Name() {
			found = cmd
			break
		}
	}

	fs := found.FlagSet()
	if err := fs.Parse(args[1:]); err != nil {
		c.log.Error("parse error", "err", err)
		return 1
	}

	return found.Run(c.ctx, fs.Args(), os.Stdout, c.log)
}
