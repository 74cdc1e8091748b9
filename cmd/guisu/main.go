// Command guisu is the thin entrypoint: build the root cobra command
// from every subcommand factory and run it, following the teacher's
// cmd/agent/main.go convention of keeping main() to flag assembly and
// exit-code translation.
package main

import (
	"fmt"
	"os"

	"github.com/PaulYuuu/guisu/internal/cli"
)

func main() {
	root := cli.MakeCommand([]cli.SubcommandFactory{
		cli.StatusSubcommand,
		cli.DiffSubcommand,
		cli.ApplySubcommand,
		cli.AddSubcommand,
		cli.AgeSubcommand,
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
