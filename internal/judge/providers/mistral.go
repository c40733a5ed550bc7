package providers

import (
	"context"

	mistral "github.com/gage-technologies/mistral-go"

	"github.com/qcbench/qcbench/internal/judge"
)

// MistralJudge judges via the Mistral chat completions API.
type MistralJudge struct {
	client *mistral.MistralClient
	model  string
}

// NewMistralJudge returns a Judge backed by gage-technologies/mistral-go.
func NewMistralJudge(model, apiKey, _ string) (judge.Judge, error) {
	return &MistralJudge{
		client: mistral.NewMistralClientDefault(apiKey),
		model:  model,
	}, nil
}

func (j *MistralJudge) Identity() judge.Identity {
	return judge.Identity{Model: j.model, Provider: "@mistral"}
}

func (j *MistralJudge) JudgeVerdict(ctx context.Context, systemPrompt, userPrompt string, maxTokens, testCtx int) (judge.Verdict, error) {
	messages := []mistral.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	resp, err := j.client.Chat(j.model, messages, &mistral.ChatRequestParams{
		Temperature: 0,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return judge.Verdict{}, err
	}
	if len(resp.Choices) == 0 {
		return judge.Verdict{Score: 1}, nil
	}
	return parseVerdict(resp.Choices[0].Message.Content), nil
}
