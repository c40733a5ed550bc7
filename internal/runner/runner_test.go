package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qcbench/qcbench/internal/inference"
	"github.com/qcbench/qcbench/internal/qcerr"
	"github.com/qcbench/qcbench/internal/retry"
	"github.com/qcbench/qcbench/internal/store"
	"github.com/qcbench/qcbench/internal/testsuite"
)

func sampleSuite() *testsuite.Suite {
	return &testsuite.Suite{
		Name:                 "everyday",
		DefaultContextLength: 4096,
		Categories: []testsuite.Category{
			{
				Name: "reasoning",
				Questions: []testsuite.Question{
					{ID: "q1", Prompt: "2+2?"},
					{ID: "q2", Prompt: "recurse?", ContextLength: 8192},
				},
			},
		},
	}
}

func generateHandler(response string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"response":            response,
			"logprobs":            []map[string]any{{"token": "x", "logprob": -0.1}},
			"eval_count":          10,
			"eval_duration":       int64(time.Second),
			"prompt_eval_count":   5,
			"prompt_eval_duration": int64(time.Second),
		})
	}
}

func TestRun_AnswersAllQuestionsAndPersistsEach(t *testing.T) {
	srv := httptest.NewServer(generateHandler("an answer"))
	defer srv.Close()

	r := New(inference.NewClient(srv.URL, nil), retry.NormalPolicy(3, time.Millisecond, time.Millisecond), nil)

	var persistCalls int
	persist := func(partial store.VariantResult) error {
		persistCalls++
		return nil
	}

	var judged []string
	judge := func(qr store.QuestionResult) { judged = append(judged, qr.QuestionID) }

	meta := VariantMetadata{Tag: "q4_0", ModelName: "llama3:q4_0"}
	v, err := r.Run(context.Background(), sampleSuite(), nil, meta, store.RunOptions{}, nil, persist, judge)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(v.QuestionResults) != 2 {
		t.Fatalf("got %d question results, want 2", len(v.QuestionResults))
	}
	if persistCalls != 2 {
		t.Errorf("persist called %d times, want 2", persistCalls)
	}
	if len(judged) != 2 {
		t.Errorf("judge called for %d questions, want 2", len(judged))
	}
	if v.QuestionResults[1].ContextLength != 8192 {
		t.Errorf("question 2 contextLength = %d, want 8192 (question override)", v.QuestionResults[1].ContextLength)
	}
	if v.QuestionResults[0].ContextLength != 4096 {
		t.Errorf("question 1 contextLength = %d, want 4096 (suite default)", v.QuestionResults[0].ContextLength)
	}
}

func TestRun_SkipsAlreadyAnsweredQuestions(t *testing.T) {
	srv := httptest.NewServer(generateHandler("new answer"))
	defer srv.Close()

	r := New(inference.NewClient(srv.URL, nil), retry.NormalPolicy(3, time.Millisecond, time.Millisecond), nil)

	existing := &store.VariantResult{
		Tag:             "q4_0",
		QuestionResults: []store.QuestionResult{{QuestionID: "q1", Answer: "already answered"}},
	}

	meta := VariantMetadata{Tag: "q4_0", ModelName: "llama3:q4_0"}
	v, err := r.Run(context.Background(), sampleSuite(), existing, meta, store.RunOptions{}, nil, nil, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(v.QuestionResults) != 2 {
		t.Fatalf("got %d question results, want 2 (1 kept + 1 new)", len(v.QuestionResults))
	}
	if v.QuestionResults[0].Answer != "already answered" {
		t.Errorf("existing question result was overwritten: %+v", v.QuestionResults[0])
	}
	if v.QuestionResults[1].QuestionID != "q2" || v.QuestionResults[1].Answer != "new answer" {
		t.Errorf("new question result = %+v", v.QuestionResults[1])
	}
}

func TestRun_EmptyLogprobsFailsFastWithoutRetrying(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]any{"response": "x"})
	}))
	defer srv.Close()

	rn := New(inference.NewClient(srv.URL, nil), retry.NormalPolicy(5, time.Millisecond, time.Millisecond), nil)

	meta := VariantMetadata{Tag: "q4_0", ModelName: "llama3:q4_0"}
	_, err := rn.Run(context.Background(), sampleSuite(), nil, meta, store.RunOptions{}, nil, nil, nil)
	if qcerr.KindOf(err) != qcerr.KindLogprobsUnavailable {
		t.Fatalf("Run() error kind = %v, want logprobs_unavailable", qcerr.KindOf(err))
	}
	if calls != 1 {
		t.Errorf("server called %d times, want exactly 1 (no retry for a non-retryable error)", calls)
	}
}

func TestRun_StopsOnCancellation(t *testing.T) {
	srv := httptest.NewServer(generateHandler("answer"))
	defer srv.Close()

	r := New(inference.NewClient(srv.URL, nil), retry.NormalPolicy(3, time.Millisecond, time.Millisecond), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	meta := VariantMetadata{Tag: "q4_0", ModelName: "llama3:q4_0"}
	v, err := r.Run(ctx, sampleSuite(), nil, meta, store.RunOptions{}, nil, nil, nil)
	if qcerr.KindOf(err) != qcerr.KindCancelled {
		t.Fatalf("Run() error kind = %v, want cancelled", qcerr.KindOf(err))
	}
	if len(v.QuestionResults) != 0 {
		t.Errorf("got %d question results on immediate cancellation, want 0", len(v.QuestionResults))
	}
}
