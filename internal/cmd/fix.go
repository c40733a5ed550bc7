package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qcbench/qcbench/internal/store"
)

// NewFixCommand builds the `qcbench fix` command: standalone corruption
// recovery for a results document (spec.md §8 scenario 4), independent of
// running a battery.
func NewFixCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix <results-document>",
		Short: "Repair a corrupted results document",
		Long: `fix reads a results document that failed to parse, repairs it using the
structural and general recovery passes (spec.md §4.6), and writes the
repaired document to a ".fixed.json" sibling without touching the input.`,
		Args: cobra.ExactArgs(1),
		RunE: runFix,
	}
	return cmd
}

func runFix(cmd *cobra.Command, args []string) error {
	path := args[0]

	_, stats, fixedPath, err := store.Fix(path)
	if err != nil {
		return fmt.Errorf("fix %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "repaired: %s\n", fixedPath)
	fmt.Fprintf(out, "  truncated arrays:  %d\n", stats.TruncatedArrays)
	fmt.Fprintf(out, "  truncated objects: %d\n", stats.TruncatedObjects)
	fmt.Fprintf(out, "  removed bytes:     %d\n", stats.RemovedBytes)
	fmt.Fprintf(out, "  fixed closures:    %d\n", stats.FixedClosures)
	return nil
}
