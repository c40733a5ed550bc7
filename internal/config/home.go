package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetQCHome returns QC Bench's home directory.
// Priority order:
//  1. QC_HOME environment variable, if set (not created if missing)
//  2. <repo root>/.qcbench, where repo root is detected by walking up for
//     a go.mod declaring this module
//  3. <cwd>/.qcbench as a last resort
//
// The directory is created (mode 0755) unless it came from the env var.
func GetQCHome() (string, error) {
	return GetQCHomeWithRoot(findModuleRoot())
}

// GetQCHomeWithRoot is GetQCHome with the build-time root injected, so
// callers (and tests) need not depend on the real filesystem layout.
func GetQCHomeWithRoot(root string) (string, error) {
	if home := os.Getenv("QC_HOME"); home != "" {
		return home, nil
	}

	if root != "" {
		home := filepath.Join(root, ".qcbench")
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create qc home directory: %w", err)
		}
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	home := filepath.Join(cwd, ".qcbench")
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create qc home directory: %w", err)
	}
	return home, nil
}

// findModuleRoot walks up from the working directory looking for a go.mod
// that declares this module, returning "" if none is found.
func findModuleRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	current := cwd
	for {
		goModPath := filepath.Join(current, "go.mod")
		if data, err := os.ReadFile(goModPath); err == nil {
			if strings.Contains(string(data), "qcbench") {
				return current
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

// GetRunLogDBPath returns the absolute path to the run-history ledger
// (SPEC_FULL.md §6), honoring cfg.RunLog.DBPath when it is set absolute,
// and otherwise resolving it relative to the parent of the QC home
// directory (so the default ".qcbench/runlog/history.db" lands inside the
// home directory). An empty DBPath yields <home>/runlog/history.db.
func GetRunLogDBPath(cfg *Config) (string, error) {
	if cfg.RunLog.DBPath == "" {
		home, err := GetQCHome()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "runlog", "history.db"), nil
	}
	if filepath.IsAbs(cfg.RunLog.DBPath) {
		return cfg.RunLog.DBPath, nil
	}
	home, err := GetQCHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(home), cfg.RunLog.DBPath), nil
}
