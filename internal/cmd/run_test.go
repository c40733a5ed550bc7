package cmd

import (
	"testing"

	"github.com/qcbench/qcbench/internal/config"
	"github.com/qcbench/qcbench/internal/judgeorch"
	"github.com/qcbench/qcbench/internal/logger"
)

func TestSplitCommaList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "single", input: "q4_0", want: []string{"q4_0"}},
		{name: "multiple", input: "q4_0,q8_0,fp16", want: []string{"q4_0", "q8_0", "fp16"}},
		{name: "trims whitespace", input: " q4_0 , q8_0 ", want: []string{"q4_0", "q8_0"}},
		{name: "drops empty entries", input: "q4_0,,q8_0,", want: []string{"q4_0", "q8_0"}},
		{name: "empty input", input: "", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitCommaList(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("splitCommaList(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitCommaList(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParamsFromFlags_RequiredFields(t *testing.T) {
	cmd := NewRunCommand()
	if err := cmd.Flags().Parse([]string{"--model", "llama3:8b", "--quants", "llama3:q4_0,llama3:q8_0"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	p, cli, err := paramsFromFlags(cmd)
	if err != nil {
		t.Fatalf("paramsFromFlags() error = %v", err)
	}
	if p.TargetModel != "llama3:8b" {
		t.Errorf("TargetModel = %q, want %q", p.TargetModel, "llama3:8b")
	}
	if len(p.VariantSpecifiers) != 2 {
		t.Errorf("VariantSpecifiers = %v, want 2 entries", p.VariantSpecifiers)
	}
	if p.JudgeMode != judgeorch.ModeSerial {
		t.Errorf("JudgeMode = %q, want default %q", p.JudgeMode, judgeorch.ModeSerial)
	}
	if cli.endpoint != "http://localhost:11434" {
		t.Errorf("endpoint = %q, want default", cli.endpoint)
	}
}

func TestParamsFromFlags_RejectsEmptyQuants(t *testing.T) {
	cmd := NewRunCommand()
	if err := cmd.Flags().Parse([]string{"--model", "llama3:8b", "--quants", ""}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	_, _, err := paramsFromFlags(cmd)
	if err == nil {
		t.Fatal("paramsFromFlags() error = nil, want an error for empty --quants")
	}
}

func TestParamsFromFlags_JudgemodeParallel(t *testing.T) {
	cmd := NewRunCommand()
	if err := cmd.Flags().Parse([]string{
		"--model", "llama3:8b", "--quants", "llama3:q4_0", "--judgemode", "parallel",
	}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	p, _, err := paramsFromFlags(cmd)
	if err != nil {
		t.Fatalf("paramsFromFlags() error = %v", err)
	}
	if p.JudgeMode != judgeorch.ModeParallel {
		t.Errorf("JudgeMode = %q, want %q", p.JudgeMode, judgeorch.ModeParallel)
	}
}

func TestParamsFromFlags_RejectsInvalidJudgemode(t *testing.T) {
	cmd := NewRunCommand()
	if err := cmd.Flags().Parse([]string{
		"--model", "llama3:8b", "--quants", "llama3:q4_0", "--judgemode", "bogus",
	}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	_, _, err := paramsFromFlags(cmd)
	if err == nil {
		t.Fatal("paramsFromFlags() error = nil, want an error for an invalid --judgemode")
	}
}

func TestParamsFromFlags_ThinkLevelOverridesThinkBool(t *testing.T) {
	cmd := NewRunCommand()
	if err := cmd.Flags().Parse([]string{
		"--model", "llama3:8b", "--quants", "llama3:q4_0", "--think", "--thinklevel", "high",
	}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	p, _, err := paramsFromFlags(cmd)
	if err != nil {
		t.Fatalf("paramsFromFlags() error = %v", err)
	}
	if p.Think != "high" {
		t.Errorf("Think = %v, want thinklevel string %q to take precedence", p.Think, "high")
	}
	if !p.RunOptions.Think || p.RunOptions.ThinkLevel != "high" {
		t.Errorf("RunOptions = %+v, want Think=true and ThinkLevel=%q", p.RunOptions, "high")
	}
}

func TestBuildLogger_QuietReturnsNoOpLogger(t *testing.T) {
	cfg := config.DefaultConfig()
	log, closeLog, err := buildLogger(cfg, cliConfig{quiet: true})
	if err != nil {
		t.Fatalf("buildLogger() error = %v", err)
	}
	defer closeLog()

	if _, ok := log.(*logger.NoOpLogger); !ok {
		t.Errorf("buildLogger() with quiet=true returned %T, want *logger.NoOpLogger", log)
	}
}

func TestBuildLogger_LogFileReturnsFileLogger(t *testing.T) {
	cfg := config.DefaultConfig()
	log, closeLog, err := buildLogger(cfg, cliConfig{logFile: t.TempDir()})
	if err != nil {
		t.Fatalf("buildLogger() error = %v", err)
	}
	defer closeLog()

	if _, ok := log.(*logger.FileLogger); !ok {
		t.Errorf("buildLogger() with logFile set returned %T, want *logger.FileLogger", log)
	}
}
