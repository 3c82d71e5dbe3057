// Command shapeq compiles shape-constrained queries into SPARQL.
package main

import (
	"os"

	"github.com/roach88/shapeq/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
