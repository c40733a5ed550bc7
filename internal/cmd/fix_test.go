package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFixCommand_RepairsTruncatedDocument(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "llama3-8b.json")

	truncated := `{"targetModel":"llama3:8b","testSuiteName":"everyday","variants":[` +
		`{"tag":"fp16","isBase":true,"questionResults":[{"questionId":"q1","answer":"one"}]},` +
		`{"tag":"q4_0","questionResults":[{"questionId":"q1","answer":"one-qu`
	if err := os.WriteFile(docPath, []byte(truncated), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cmd := NewFixCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	if err := cmd.RunE(cmd, []string{docPath}); err != nil {
		t.Fatalf("RunE() error = %v", err)
	}

	fixedPath := docPath + ".fixed.json"
	if _, err := os.Stat(fixedPath); err != nil {
		t.Fatalf("fixed document not written at %s: %v", fixedPath, err)
	}

	if !strings.Contains(buf.String(), "repaired:") {
		t.Errorf("output = %q, want a repaired: line", buf.String())
	}
}

func TestFixCommand_ErrorsOnMissingFile(t *testing.T) {
	cmd := NewFixCommand()
	err := cmd.RunE(cmd, []string{filepath.Join(t.TempDir(), "missing.json")})
	if err == nil {
		t.Fatal("RunE() error = nil, want an error for a nonexistent input file")
	}
}
