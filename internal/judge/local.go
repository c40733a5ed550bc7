package judge

import (
	"context"
	"encoding/json"

	"github.com/qcbench/qcbench/internal/inference"
)

// LocalJudge judges via a local-style inference endpoint with deterministic
// settings: temperature 0, a fixed seed, a prediction budget of maxTokens,
// and a context length derived from judgeCtxSize (or 2*testCtx+2048 when
// unset). It sends the prompts through the generate endpoint, not chat,
// and passes no response schema to the server; the reply is parsed as JSON
// when it is JSON and otherwise run through the reason-extraction fallbacks.
type LocalJudge struct {
	client       *inference.Client
	model        string
	identity     Identity
	judgeCtxSize int
}

// NewLocalJudge returns a LocalJudge backed by client for model. judgeCtxSize
// is the explicit --judgectx override (0 means derive from testCtx via
// ContextSizeFor on every call).
func NewLocalJudge(client *inference.Client, model string, judgeCtxSize int) *LocalJudge {
	return &LocalJudge{client: client, model: model, identity: Identity{Model: model, Provider: "local"}, judgeCtxSize: judgeCtxSize}
}

func (j *LocalJudge) Identity() Identity { return j.identity }

// ContextSizeFor implements the judge-context derivation rule of spec.md
// §4.3: judgeCtxSize when explicitly set (non-zero), else 2*testCtx+2048.
func ContextSizeFor(judgeCtxSize, testCtx int) int {
	if judgeCtxSize > 0 {
		return judgeCtxSize
	}
	return 2*testCtx + 2048
}

type localVerdictResponse struct {
	Score      any    `json:"score"`
	BestAnswer string `json:"bestanswer"`
	Reason     string `json:"reason"`
}

// JudgeVerdict sends the system and user prompts, joined by a blank line,
// as one generate request and parses the reply, deriving num_ctx from testCtx via
// ContextSizeFor and setting num_predict to maxTokens (spec.md §4.3(b,c)).
func (j *LocalJudge) JudgeVerdict(ctx context.Context, systemPrompt, userPrompt string, maxTokens, testCtx int) (Verdict, error) {
	opts := inference.GenerateOptions{
		Temperature: 0,
		Seed:        42,
		TopP:        1,
		NumCtx:      ContextSizeFor(j.judgeCtxSize, testCtx),
		NumPredict:  maxTokens,
	}

	prompt := systemPrompt + "\n\n" + userPrompt
	result, err := j.client.Generate(ctx, j.model, prompt, opts, nil)
	if err != nil {
		// Judge calls don't require log-probabilities; a
		// logprobsUnavailable failure here is not fatal to the judge
		// pass the way it is for the test runner.
		if result.Response == "" {
			return Verdict{}, err
		}
	}

	raw := result.Response
	var parsed localVerdictResponse
	if jsonErr := json.Unmarshal([]byte(raw), &parsed); jsonErr == nil {
		reason := parsed.Reason
		if reason == "" {
			reason = ExtractReasonFromRaw(raw)
		}
		v := Verdict{
			Score:      NormalizeScore(parsed.Score),
			BestAnswer: NormalizeBestAnswer(parsed.BestAnswer),
			Reason:     reason,
		}
		if reason == "" {
			v.RawResponse = raw
		}
		return v, nil
	}

	reason := ExtractReasonFromRaw(raw)
	v := Verdict{
		Score:      1,
		BestAnswer: BestAnswerNone,
		Reason:     reason,
	}
	if reason == "" {
		v.RawResponse = raw
	}
	return v, nil
}

// Ensure LocalJudge satisfies Judge at compile time.
var _ Judge = (*LocalJudge)(nil)
