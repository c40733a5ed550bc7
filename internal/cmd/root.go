// Package cmd builds the qcbench CLI: the cobra command tree and the flag
// parsing / collaborator wiring that turns CLI input into an
// internal/engine.Params and runs it.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

// NewRootCommand builds the qcbench root command and its subcommands.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "qcbench",
		Short: "Quantization comparison benchmark driver",
		Long: `qcbench tests quantized model variants against an inference server,
captures log-probabilities and timing, and judges each variant against a
base variant using local or cloud judge models.`,
		Version:      Version,
		SilenceUsage: true,
	}

	root.AddCommand(NewRunCommand())
	root.AddCommand(NewFixCommand())
	root.AddCommand(NewHelpCloudCommand())

	return root
}
