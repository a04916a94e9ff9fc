// main is the entry point for the repoanalysis CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joeshirey/JSRepoAnalysis/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
