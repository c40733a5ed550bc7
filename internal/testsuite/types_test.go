package testsuite

import "testing"

func sampleSuite() *Suite {
	return &Suite{
		Name:                 "everyday",
		DefaultContextLength: 4096,
		Categories: []Category{
			{
				Name: "reasoning",
				Questions: []Question{
					{ID: "q1", Prompt: "..."},
					{ID: "q2", Prompt: "...", ContextLength: 8192},
				},
			},
			{
				Name:          "coding",
				ContextLength: 16384,
				Questions: []Question{
					{ID: "q3", Prompt: "..."},
				},
			},
		},
	}
}

func TestTotalQuestions(t *testing.T) {
	s := sampleSuite()
	if got := s.TotalQuestions(); got != 3 {
		t.Fatalf("TotalQuestions() = %d, want 3", got)
	}
}

func TestContextLengthFor_Precedence(t *testing.T) {
	s := sampleSuite()

	cases := []struct {
		category, question string
		want                int
	}{
		{"reasoning", "q1", 4096},  // falls through to suite default
		{"reasoning", "q2", 8192},  // question override wins
		{"coding", "q3", 16384},    // category override wins
		{"missing", "nope", 4096}, // unknown category falls back to suite default
	}
	for _, c := range cases {
		if got := s.ContextLengthFor(c.category, c.question); got != c.want {
			t.Errorf("ContextLengthFor(%q, %q) = %d, want %d", c.category, c.question, got, c.want)
		}
	}
}

func TestWalk_VisitsEveryQuestionInOrder(t *testing.T) {
	s := sampleSuite()
	var ids []string
	s.Walk(func(_ Category, q Question) {
		ids = append(ids, q.ID)
	})
	want := []string{"q1", "q2", "q3"}
	if len(ids) != len(want) {
		t.Fatalf("Walk visited %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Walk()[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}
