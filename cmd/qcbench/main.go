// Command qcbench is the CLI entry point for the quantization comparison
// benchmark driver.
package main

import (
	"fmt"
	"os"

	"github.com/qcbench/qcbench/internal/cmd"
)

// version is the current qcbench version, overridden at build time via
// -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd.Version = version

	root := cmd.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
