package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenericChatJudge_ParsesVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": `{"score": 0.9, "bestanswer": "A", "reason": "clearer"}`}},
			},
		})
	}))
	defer srv.Close()

	j := &genericChatJudge{
		httpClient: srv.Client(),
		endpoint:   srv.URL,
		apiKey:     "key",
		model:      "m",
		provider:   "@together",
		authHeader: "Authorization",
	}

	v, err := j.JudgeVerdict(context.Background(), "system", "user", 512, 4096)
	if err != nil {
		t.Fatalf("JudgeVerdict() error = %v", err)
	}
	if v.Score != 90 || v.BestAnswer != "A" || v.Reason != "clearer" {
		t.Fatalf("JudgeVerdict() = %+v", v)
	}
}

func TestDefaultRegistry_AllProvidersRegistered(t *testing.T) {
	r := DefaultRegistry()
	providers := r.Providers()
	want := []string{"@azure", "@claude", "@cohere", "@gemini", "@huggingface", "@mistral", "@openai", "@replicate", "@together"}
	if len(providers) != len(want) {
		t.Fatalf("Providers() = %v, want %d entries", providers, len(want))
	}
}
