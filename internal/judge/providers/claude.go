// Package providers implements the cloud judge provider registry's
// factories (spec.md §4.3): one adapter per provider, each normalizing
// its SDK's response through judge.NormalizeScore/NormalizeBestAnswer/
// ExtractReasonFromRaw so the rest of the engine never sees provider-
// specific shapes.
package providers

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/qcbench/qcbench/internal/judge"
)

// ClaudeJudge judges via the Anthropic Messages API.
type ClaudeJudge struct {
	client anthropic.Client
	model  string
}

// NewClaudeJudge returns a Judge backed by anthropic-sdk-go.
func NewClaudeJudge(model, apiKey, _ string) (judge.Judge, error) {
	return &ClaudeJudge{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (j *ClaudeJudge) Identity() judge.Identity {
	return judge.Identity{Model: j.model, Provider: "@claude"}
}

func (j *ClaudeJudge) JudgeVerdict(ctx context.Context, systemPrompt, userPrompt string, maxTokens, testCtx int) (judge.Verdict, error) {
	resp, err := j.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(j.model),
		MaxTokens: int64(maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return judge.Verdict{}, err
	}

	var raw string
	for _, block := range resp.Content {
		if block.Type == "text" {
			raw += block.Text
		}
	}

	return parseVerdict(raw), nil
}

// parseVerdict is shared by every JSON-emitting provider adapter: try a
// strict parse first, then fall back to the reason-extraction cascade.
func parseVerdict(raw string) judge.Verdict {
	var obj struct {
		Score      any    `json:"score"`
		BestAnswer string `json:"bestanswer"`
		Reason     string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		reason := obj.Reason
		if reason == "" {
			reason = judge.ExtractReasonFromRaw(raw)
		}
		v := judge.Verdict{
			Score:      judge.NormalizeScore(obj.Score),
			BestAnswer: judge.NormalizeBestAnswer(obj.BestAnswer),
			Reason:     reason,
		}
		if reason == "" {
			v.RawResponse = raw
		}
		return v
	}
	reason := judge.ExtractReasonFromRaw(raw)
	v := judge.Verdict{
		Score:      1,
		BestAnswer: judge.BestAnswerNone,
		Reason:     reason,
	}
	if reason == "" {
		v.RawResponse = raw
	}
	return v
}
