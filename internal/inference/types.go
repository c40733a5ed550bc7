// Package inference implements the Inference Client (spec.md §4.2): a
// thin HTTP/JSON wrapper around the inference server's /api/* surface,
// grounded on the teacher's ollama-style embedding driver shape
// (agentoven's OllamaDriver) -- a struct holding an endpoint, model, and
// *http.Client, marshaling requests and unmarshaling responses by hand
// rather than reaching for a generated SDK.
package inference

import "time"

// TokenLogprob mirrors store.TokenLogprob for the wire format; the
// inference client deals in its own wire types to keep the HTTP codec
// decoupled from the persisted document schema.
type TokenLogprob struct {
	Token   string  `json:"token"`
	Logprob float64 `json:"logprob"`
}

// GenerateOptions carries the run options that affect determinism
// (spec.md §4.8 "nothing else may affect the server-side prompt").
type GenerateOptions struct {
	Temperature      float64 `json:"temperature"`
	Seed             int     `json:"seed"`
	TopP             float64 `json:"top_p"`
	TopK             int     `json:"top_k,omitempty"`
	RepeatPenalty    float64 `json:"repeat_penalty,omitempty"`
	FrequencyPenalty float64 `json:"frequency_penalty,omitempty"`
	NumCtx           int     `json:"num_ctx"`
	// NumPredict bounds the response length. Judge calls set this to the
	// caller's maxTokens to guarantee the "ample prediction budget"
	// spec.md §4.3(b) requires; the test runner leaves it unset (server
	// default) since answer length there isn't budget-capped.
	NumPredict int `json:"num_predict,omitempty"`
}

// GenerateResult is the normalized outcome of a generate() call.
type GenerateResult struct {
	Response              string
	Logprobs              []TokenLogprob
	EvalDuration          time.Duration
	EvalCount             int
	PromptEvalDuration    time.Duration
	PromptEvalCount       int
}

// EvalTokensPerSecond computes the throughput spec.md §4.8 requires:
// evalCount / (evalDuration in seconds). Returns 0 if duration is zero.
func (r GenerateResult) EvalTokensPerSecond() float64 {
	return tokensPerSecond(r.EvalCount, r.EvalDuration)
}

// PromptTokensPerSecond is the analogous computation for prompt
// evaluation.
func (r GenerateResult) PromptTokensPerSecond() float64 {
	return tokensPerSecond(r.PromptEvalCount, r.PromptEvalDuration)
}

func tokensPerSecond(count int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(count) / d.Seconds()
}

// ModelSummary is one entry from list() (GET /api/tags).
type ModelSummary struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Digest     string `json:"digest"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

// ModelDetails is the normalized result of show() (POST /api/show).
type ModelDetails struct {
	Family             string
	ParameterSize      string
	QuantizationLevel  string
	EnhancedQuantLabel string
	Digest             string
}

// PullProgress is one NDJSON record streamed by pull() (POST /api/pull).
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ChatMessage is one turn in a chat() call, used only to force a proper
// first load of the model (spec.md §4.2).
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
