// Command zaisim runs the ZAI oracle-free CDP stablecoin simulator: single
// replays, parameter sweeps, the named stress-scenario library, and the
// staged full parameter sweep.
package main

import (
	"fmt"
	"os"

	"github.com/luxfi/zaisim/cmd/zaisim/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
