// Command shadowgov plays, records and replays hidden-role government
// sessions.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/shadowgov/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
