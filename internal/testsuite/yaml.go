package testsuite

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML parses a suite from a YAML file, the baked-in format.
func LoadYAML(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read test suite %s: %w", path, err)
	}
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse test suite %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("test suite %s: missing name", path)
	}
	return &s, nil
}
