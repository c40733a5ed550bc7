// Package testsuite loads the fixed battery of questions a run is judged
// against, from either a baked-in/YAML suite file or a supplemented
// Markdown format, per spec.md §3's Test Suite entity.
package testsuite

// Question is one prompt within a category, with an optional context
// length override that takes precedence over its category and suite.
type Question struct {
	ID            string `yaml:"id"`
	Prompt        string `yaml:"prompt"`
	ContextLength int    `yaml:"contextLength,omitempty"`
}

// Category is an ordered sequence of Questions, with its own optional
// context length override.
type Category struct {
	Name          string     `yaml:"name"`
	ContextLength int        `yaml:"contextLength,omitempty"`
	Questions     []Question `yaml:"questions"`
}

// Suite is the top-level, stably-named test battery.
type Suite struct {
	Name                 string     `yaml:"name"`
	DefaultContextLength int        `yaml:"defaultContextLength"`
	MaxPredictionLength  int        `yaml:"maxPredictionLength"`
	Categories           []Category `yaml:"categories"`
}

// TotalQuestions returns the suite's total question count, used to decide
// whether a Variant Result is complete (spec.md §3).
func (s *Suite) TotalQuestions() int {
	n := 0
	for _, c := range s.Categories {
		n += len(c.Questions)
	}
	return n
}

// ContextLengthFor resolves a question's effective context length using
// the question > category > suite precedence spec.md §3 requires.
func (s *Suite) ContextLengthFor(categoryName, questionID string) int {
	for _, c := range s.Categories {
		if c.Name != categoryName {
			continue
		}
		for _, q := range c.Questions {
			if q.ID != questionID {
				continue
			}
			if q.ContextLength > 0 {
				return q.ContextLength
			}
			if c.ContextLength > 0 {
				return c.ContextLength
			}
			return s.DefaultContextLength
		}
	}
	return s.DefaultContextLength
}

// Walk calls fn for every question in suite order, passing its category.
func (s *Suite) Walk(fn func(category Category, q Question)) {
	for _, c := range s.Categories {
		for _, q := range c.Questions {
			fn(c, q)
		}
	}
}
