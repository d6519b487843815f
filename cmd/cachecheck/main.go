// Command cachecheck runs the cachesim conformance battery.
package main

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"

	"github.com/roach88/cachecheck/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(cli.GetExitCode(err))
	}
	atexit.Exit(cli.ExitSuccess)
}
