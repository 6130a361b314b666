package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/mapql/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands report to stdout in the selected format; stderr gets the
		// one-line reason for the exit code.
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "mapql:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
