package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/qcbench/qcbench/internal/judge"
)

// genericChatJudge backs the cloud providers the example corpus carries
// no dedicated Go SDK for (Cohere, Together, Replicate): all three speak
// an OpenAI-compatible or near-compatible chat-completions JSON shape
// over plain HTTP, the same net/http-only style internal/inference and
// agentoven's OllamaDriver use.
type genericChatJudge struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
	provider   string
	authHeader string
}

func (j *genericChatJudge) Identity() judge.Identity {
	return judge.Identity{Model: j.model, Provider: j.provider}
}

func (j *genericChatJudge) JudgeVerdict(ctx context.Context, systemPrompt, userPrompt string, maxTokens, testCtx int) (judge.Verdict, error) {
	body, err := json.Marshal(map[string]any{
		"model": j.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature": 0,
		"max_tokens":  maxTokens,
	})
	if err != nil {
		return judge.Verdict{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.endpoint, bytes.NewReader(body))
	if err != nil {
		return judge.Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(j.authHeader, "Bearer "+j.apiKey)

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return judge.Verdict{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return judge.Verdict{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return judge.Verdict{}, fmt.Errorf("%s judge call failed (%d): %s", j.provider, resp.StatusCode, string(respBody))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil || len(out.Choices) == 0 {
		return parseVerdict(string(respBody)), nil
	}
	return parseVerdict(out.Choices[0].Message.Content), nil
}

var sharedHTTPClient = &http.Client{Timeout: 120 * time.Second}

// NewCohereJudge returns a Judge against Cohere's OpenAI-compatible chat
// endpoint.
func NewCohereJudge(model, apiKey, _ string) (judge.Judge, error) {
	return &genericChatJudge{
		httpClient: sharedHTTPClient,
		endpoint:   "https://api.cohere.ai/compatibility/v1/chat/completions",
		apiKey:     apiKey,
		model:      model,
		provider:   "@cohere",
		authHeader: "Authorization",
	}, nil
}

// NewTogetherJudge returns a Judge against Together AI's chat endpoint.
func NewTogetherJudge(model, apiKey, _ string) (judge.Judge, error) {
	return &genericChatJudge{
		httpClient: sharedHTTPClient,
		endpoint:   "https://api.together.xyz/v1/chat/completions",
		apiKey:     apiKey,
		model:      model,
		provider:   "@together",
		authHeader: "Authorization",
	}, nil
}

// NewReplicateJudge returns a Judge against Replicate's OpenAI-compatible
// chat endpoint.
func NewReplicateJudge(model, apiKey, _ string) (judge.Judge, error) {
	return &genericChatJudge{
		httpClient: sharedHTTPClient,
		endpoint:   "https://api.replicate.com/v1/chat/completions",
		apiKey:     apiKey,
		model:      model,
		provider:   "@replicate",
		authHeader: "Authorization",
	}, nil
}
