package store

import "strings"

// DerivePath returns the results-document path for targetModel, unless
// explicitOutput is non-empty, in which case it passes through unchanged
// (spec.md §4.6: "/" and "\" replaced with "-", suffix ".qc.json").
func DerivePath(targetModel, explicitOutput string) string {
	if explicitOutput != "" {
		return explicitOutput
	}
	name := strings.NewReplacer("/", "-", "\\", "-").Replace(targetModel)
	return name + ".qc.json"
}
