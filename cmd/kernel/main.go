// Command kernel is the command-line front end for the bootstrap core's
// demo and test harness, the way cmd/elsie is the teacher's front end for
// its LC-3 machine: a bare main() with no CLI framework, dispatching to
// climain's sub-commands.
package main

import (
	"context"
	"os"

	"github.com/smoynes/bootcore/internal/climain"
)

var commands = []climain.Command{
	climain.Boot(),
}

func main() {
	result := climain.New(context.Background()).
		WithLogger(os.Stderr).
		WithCommands(commands).
		WithHelp(climain.Help(commands)).
		Execute(os.Args[1:])

	os.Exit(result)
}
