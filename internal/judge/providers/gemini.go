package providers

import (
	"context"

	"google.golang.org/genai"

	"github.com/qcbench/qcbench/internal/judge"
)

// GeminiJudge judges via Google's genai SDK.
type GeminiJudge struct {
	client *genai.Client
	model  string
}

// NewGeminiJudge returns a Judge backed by google.golang.org/genai.
func NewGeminiJudge(model, apiKey, _ string) (judge.Judge, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiJudge{client: client, model: model}, nil
}

func (j *GeminiJudge) Identity() judge.Identity {
	return judge.Identity{Model: j.model, Provider: "@gemini"}
}

func (j *GeminiJudge) JudgeVerdict(ctx context.Context, systemPrompt, userPrompt string, maxTokens, testCtx int) (judge.Verdict, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(0)),
		MaxOutputTokens:   int32(maxTokens),
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}

	resp, err := j.client.Models.GenerateContent(ctx, j.model, genai.Text(userPrompt), cfg)
	if err != nil {
		return judge.Verdict{}, err
	}

	raw := resp.Text()
	return parseVerdict(raw), nil
}
