// Command splice runs edit scripts against a multi-track timeline.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/splice/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
