// Package config loads QC Bench's ambient configuration: console behavior,
// retry tuning, lifecycle waits, and the run-history ledger. Flag-shaped run parameters (model,
// quants, judge, etc. -- spec.md §6) are wired directly onto the run
// command and are not duplicated here; this package only covers settings a
// user would reasonably want to fix once in `.qcbench/config.yaml` rather
// than pass on every invocation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConsoleConfig holds terminal output settings, mirroring the teacher's
// ConsoleConfig shape. They are loaded from the file and the QCBENCH_
// environment overrides; the run command does not pass them to the logger.
type ConsoleConfig struct {
	EnableColor       bool `yaml:"enable_color"`
	EnableProgressBar bool `yaml:"enable_progress_bar"`
	Verbose           bool `yaml:"verbose"`
	CompactMode       bool `yaml:"compact_mode"`
}

// RetryConfig tunes the two retry classes of spec.md §4.7.
type RetryConfig struct {
	// NormalMaxAttempts bounds inference/pull/show/list retries.
	NormalMaxAttempts int `yaml:"normal_max_attempts"`
	// NormalBaseDelay is the starting backoff delay for normal calls.
	NormalBaseDelay time.Duration `yaml:"normal_base_delay"`
	// NormalMaxDelay caps the exponential backoff for normal calls.
	NormalMaxDelay time.Duration `yaml:"normal_max_delay"`

	// JudgeMaxAttempts bounds judge-call retries.
	JudgeMaxAttempts int `yaml:"judge_max_attempts"`
	// JudgeMinDelay/JudgeMaxDelay bound the linear ramp used for judge
	// retries (spec.md §4.7: "ramps from 5s to 30s").
	JudgeMinDelay time.Duration `yaml:"judge_min_delay"`
	JudgeMaxDelay time.Duration `yaml:"judge_max_delay"`

	// PullQuickAttempts/PullQuickDelay and PullSlowAttempts/PullSlowDelay
	// implement the two-phase pull retry policy of spec.md §4.5.
	PullQuickAttempts int           `yaml:"pull_quick_attempts"`
	PullQuickDelay    time.Duration `yaml:"pull_quick_delay"`
	PullSlowAttempts  int           `yaml:"pull_slow_attempts"`
	PullSlowDelay     time.Duration `yaml:"pull_slow_delay"`
	PullSlowDelayCap  time.Duration `yaml:"pull_slow_delay_cap"`
}

// LifecycleConfig tunes Model Lifecycle Manager waits (spec.md §4.5).
type LifecycleConfig struct {
	UnloadPollInterval time.Duration `yaml:"unload_poll_interval"`
	UnloadMaxWait      time.Duration `yaml:"unload_max_wait"`
	SettleDelay        time.Duration `yaml:"settle_delay"`
}

// RunLogConfig controls the supplemented run-history ledger (SPEC_FULL.md
// §6), grounded on the teacher's internal/learning SQLite store.
type RunLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// Config is QC Bench's ambient configuration document.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	LogDir    string          `yaml:"log_dir"`
	Console   ConsoleConfig   `yaml:"console"`
	Retry     RetryConfig     `yaml:"retry"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	RunLog    RunLogConfig    `yaml:"run_log"`
}

// DefaultConfig returns a Config with the defaults spec.md §4.5/§4.7
// prescribe.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		LogDir:   ".qcbench/logs",
		Console: ConsoleConfig{
			EnableColor:       true,
			EnableProgressBar: true,
		},
		Retry: RetryConfig{
			NormalMaxAttempts: 5,
			NormalBaseDelay:   500 * time.Millisecond,
			NormalMaxDelay:    30 * time.Second,

			JudgeMaxAttempts: 25,
			JudgeMinDelay:    5 * time.Second,
			JudgeMaxDelay:    30 * time.Second,

			PullQuickAttempts: 50,
			PullQuickDelay:    2 * time.Second,
			PullSlowAttempts:  50,
			PullSlowDelay:     30 * time.Second,
			PullSlowDelayCap:  300 * time.Second,
		},
		Lifecycle: LifecycleConfig{
			UnloadPollInterval: 500 * time.Millisecond,
			UnloadMaxWait:      30 * time.Second,
			SettleDelay:        1 * time.Second,
		},
		RunLog: RunLogConfig{
			Enabled: true,
			DBPath:  ".qcbench/runlog/history.db",
		},
	}
}

// Load reads a YAML config file at path, falling back to DefaultConfig when
// path does not exist. Env var overrides are applied afterwards via
// ApplyEnvOverrides, matching the teacher's layering: file < env < flags.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	ApplyEnvOverrides(cfg)
	return cfg, nil
}

// ApplyEnvOverrides applies QCBENCH_-prefixed environment variable
// overrides on top of file/default values, following the teacher's
// CONDUCTOR_CONSOLE_* override convention.
func ApplyEnvOverrides(cfg *Config) {
	if v, ok := boolEnv("QCBENCH_CONSOLE_COLOR"); ok {
		cfg.Console.EnableColor = v
	}
	if v, ok := boolEnv("QCBENCH_CONSOLE_PROGRESS_BAR"); ok {
		cfg.Console.EnableProgressBar = v
	}
	if v, ok := boolEnv("QCBENCH_VERBOSE"); ok {
		cfg.Console.Verbose = v
	}
	if v := os.Getenv("QCBENCH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func boolEnv(name string) (bool, bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
