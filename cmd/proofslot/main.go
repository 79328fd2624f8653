// Command proofslot stores and reads deterministic-address proof records.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/proofslot/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
