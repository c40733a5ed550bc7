package testsuite

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// questionLinePattern recognizes an ordered-list item of the form
// "id: prompt text"; when absent the whole item text becomes the prompt
// and a sequential id is generated.
var questionLinePattern = regexp.MustCompile(`^([\w.-]+):\s*(.+)$`)

// LoadMarkdown parses a suite from an external Markdown file: "## name"
// headings introduce categories, and the ordered list immediately
// following each heading supplies its questions. This mirrors the
// teacher's Markdown plan parser (headings + following block structure)
// repointed at suites instead of task plans.
func LoadMarkdown(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read test suite %s: %w", path, err)
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(data))

	suite := &Suite{Name: strings.TrimSuffix(fileBase(path), ".md")}

	var current *Category
	seq := 0

	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			if node.Level != 2 {
				return ast.WalkContinue, nil
			}
			suite.Categories = append(suite.Categories, Category{Name: extractText(node, data)})
			current = &suite.Categories[len(suite.Categories)-1]
			return ast.WalkSkipChildren, nil

		case *ast.ListItem:
			if current == nil {
				return ast.WalkSkipChildren, nil
			}
			seq++
			itemText := strings.TrimSpace(extractText(node, data))
			current.Questions = append(current.Questions, questionFromLine(itemText, seq))
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse test suite %s: %w", path, err)
	}

	if len(suite.Categories) == 0 {
		return nil, fmt.Errorf("test suite %s: no categories found", path)
	}
	return suite, nil
}

func questionFromLine(line string, seq int) Question {
	if m := questionLinePattern.FindStringSubmatch(line); m != nil {
		return Question{ID: m[1], Prompt: m[2]}
	}
	return Question{ID: fmt.Sprintf("q%d", seq), Prompt: line}
}

// extractText recursively collects the literal text content under n,
// following the teacher's markdown-parser idiom of walking AST text
// segments rather than re-rendering nodes.
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(node ast.Node) {
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

func fileBase(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return path
	}
	return path[i+1:]
}
