package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand_Help(t *testing.T) {
	cmd := NewRootCommand()
	if cmd == nil {
		t.Fatal("root command should not be nil")
	}

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	_ = cmd.Execute()

	output := buf.String()
	if !strings.Contains(output, "qcbench") {
		t.Errorf("help text = %q, want it to mention qcbench", output)
	}
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	names := make(map[string]bool)
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"run", "fix", "help-cloud"} {
		if !names[want] {
			t.Errorf("subcommand %q not registered, got %v", want, names)
		}
	}
}

func TestRootCommand_Use(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.Use != "qcbench" {
		t.Errorf("Use = %q, want %q", cmd.Use, "qcbench")
	}
	if !cmd.SilenceUsage {
		t.Error("SilenceUsage = false, want true")
	}
}
