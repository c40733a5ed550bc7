package providers

import (
	"context"

	"github.com/maruel/huggingface"

	"github.com/qcbench/qcbench/internal/judge"
)

// HuggingFaceJudge judges via the Hugging Face Inference API.
type HuggingFaceJudge struct {
	client huggingface.Client
	model  string
}

// NewHuggingFaceJudge returns a Judge backed by maruel/huggingface.
func NewHuggingFaceJudge(model, apiKey, _ string) (judge.Judge, error) {
	client := huggingface.Client{
		ApiKey: apiKey,
		Model:  model,
	}
	return &HuggingFaceJudge{client: client, model: model}, nil
}

func (j *HuggingFaceJudge) Identity() judge.Identity {
	return judge.Identity{Model: j.model, Provider: "@huggingface"}
}

func (j *HuggingFaceJudge) JudgeVerdict(ctx context.Context, systemPrompt, userPrompt string, maxTokens, testCtx int) (judge.Verdict, error) {
	prompt := systemPrompt + "\n\n" + userPrompt
	raw, err := j.client.Query(ctx, prompt, maxTokens)
	if err != nil {
		return judge.Verdict{}, err
	}
	return parseVerdict(raw), nil
}
