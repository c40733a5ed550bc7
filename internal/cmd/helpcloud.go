package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qcbench/qcbench/internal/config"
	"github.com/qcbench/qcbench/internal/judge/providers"
)

// NewHelpCloudCommand builds the `qcbench help-cloud` command: the
// provider/env-var table of spec.md §6, recovered as a dedicated
// sub-command (SPEC_FULL.md §6) since the provider registry would
// otherwise be undiscoverable from the CLI.
func NewHelpCloudCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "help-cloud",
		Short: "List cloud judge providers and the environment variables they read keys from",
		RunE:  runHelpCloud,
	}
}

func runHelpCloud(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	registered := make(map[string]bool)
	for _, p := range providers.DefaultRegistry().Providers() {
		registered[p] = true
	}

	fmt.Fprintln(out, "Cloud judge providers (--judge/--judgebest specifier: @provider:key/model):")
	fmt.Fprintln(out)
	for _, pe := range config.ProviderEnvCatalog {
		status := "registered"
		if !registered[pe.Provider] {
			status = "not registered"
		}
		fmt.Fprintf(out, "  %-14s %s\n", pe.Provider, status)
		fmt.Fprintf(out, "    key env vars:  %s\n", strings.Join(pe.Keys, ", "))
		if len(pe.Extra) > 0 {
			fmt.Fprintf(out, "    extra env vars: %s\n", strings.Join(pe.Extra, ", "))
		}
		if key, source := config.LookupAPIKey(pe.Provider); key != "" {
			fmt.Fprintf(out, "    resolved from:  %s (set)\n", source)
		}
		fmt.Fprintln(out)
	}
	return nil
}
