// Command cst keeps the books of credit card settlements.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"path"

	"github.com/etnz/settle/cmd"
	"github.com/google/subcommands"
)

func main() {
	cmd.Completion().Complete("cst")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	if !*cmd.Verbose {
		log.SetOutput(io.Discard)
	}

	if name := flag.Arg(0); name != "" && !cmd.IsCommand(name) {
		switch name {
		case "help", "flags", "commands":
		default:
			if found, code := cmd.RunExtension(name, flag.Args()[1:]); found {
				os.Exit(code)
			}
		}
	}
	os.Exit(int(commander.Execute(context.Background())))
}
