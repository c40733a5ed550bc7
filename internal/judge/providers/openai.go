package providers

import (
	"context"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/qcbench/qcbench/internal/judge"
)

// OpenAIJudge judges via the Chat Completions API, grounded on the
// client/message construction shape used throughout the pack's
// openai-go/v3 integration (openai.NewClient, openai.SystemMessage,
// openai.UserMessage, Chat.Completions.New).
type OpenAIJudge struct {
	client openai.Client
	model  string
}

// NewOpenAIJudge returns a Judge backed by openai-go/v3.
func NewOpenAIJudge(model, apiKey, _ string) (judge.Judge, error) {
	return &OpenAIJudge{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (j *OpenAIJudge) Identity() judge.Identity {
	return judge.Identity{Model: j.model, Provider: "@openai"}
}

func (j *OpenAIJudge) JudgeVerdict(ctx context.Context, systemPrompt, userPrompt string, maxTokens, testCtx int) (judge.Verdict, error) {
	resp, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: j.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return judge.Verdict{}, err
	}
	if len(resp.Choices) == 0 {
		return judge.Verdict{Score: 1}, nil
	}
	return parseVerdict(resp.Choices[0].Message.Content), nil
}

// AzureOpenAIJudge judges via Azure OpenAI's chat-completions-compatible
// endpoint, reusing openai-go/v3 with its Azure base-URL/deployment
// option rather than a separate SDK (spec.md §4.3, §6 AZURE_OPENAI_*).
type AzureOpenAIJudge struct {
	client openai.Client
	model  string
}

// NewAzureOpenAIJudge returns a Judge against an Azure OpenAI deployment.
// endpoint is the AZURE_OPENAI_ENDPOINT value; model names the deployment.
func NewAzureOpenAIJudge(model, apiKey, endpoint string) (judge.Judge, error) {
	return &AzureOpenAIJudge{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(endpoint),
		),
		model: model,
	}, nil
}

func (j *AzureOpenAIJudge) Identity() judge.Identity {
	return judge.Identity{Model: j.model, Provider: "@azure"}
}

func (j *AzureOpenAIJudge) JudgeVerdict(ctx context.Context, systemPrompt, userPrompt string, maxTokens, testCtx int) (judge.Verdict, error) {
	resp, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: j.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return judge.Verdict{}, err
	}
	if len(resp.Choices) == 0 {
		return judge.Verdict{Score: 1}, nil
	}
	return parseVerdict(resp.Choices[0].Message.Content), nil
}
