package testsuite

import (
	"path/filepath"
	"testing"
)

func TestDefault_ParsesEmbeddedSuite(t *testing.T) {
	s, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if s.Name == "" {
		t.Error("Default() suite has no name")
	}
	if s.TotalQuestions() == 0 {
		t.Error("Default() suite has no questions")
	}
}

func TestLoad_DispatchesByExtension(t *testing.T) {
	if _, err := Load(""); err != nil {
		t.Fatalf("Load(\"\") error = %v, want baked-in suite", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "suite.txt")); err == nil {
		t.Fatal("Load() with an unrecognized extension should error")
	}
}
