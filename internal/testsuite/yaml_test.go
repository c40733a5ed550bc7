package testsuite

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadYAML_ParsesSuite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "everyday.yaml")
	data := []byte(`
name: everyday
defaultContextLength: 4096
categories:
  - name: reasoning
    questions:
      - id: q1
        prompt: "What is 2+2?"
      - id: q2
        prompt: "Explain recursion."
        contextLength: 8192
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML() error = %v", err)
	}
	if s.Name != "everyday" {
		t.Errorf("Name = %q, want %q", s.Name, "everyday")
	}
	if s.TotalQuestions() != 2 {
		t.Errorf("TotalQuestions() = %d, want 2", s.TotalQuestions())
	}
	if got := s.ContextLengthFor("reasoning", "q2"); got != 8192 {
		t.Errorf("ContextLengthFor(q2) = %d, want 8192", got)
	}
}

func TestLoadYAML_MissingNameIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("defaultContextLength: 100\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadYAML(path); err == nil {
		t.Fatal("LoadYAML() error = nil, want error for missing name")
	}
}

func TestLoadYAML_MissingFile(t *testing.T) {
	if _, err := LoadYAML(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadYAML() error = nil, want error for missing file")
	}
}
