package providers

import "github.com/qcbench/qcbench/internal/judge"

// DefaultRegistry returns a judge.Registry with every cloud provider
// adapter registered under its spec.md §4.3 token.
func DefaultRegistry() *judge.Registry {
	r := judge.NewRegistry()
	r.Register("@claude", NewClaudeJudge)
	r.Register("@openai", NewOpenAIJudge)
	r.Register("@gemini", NewGeminiJudge)
	r.Register("@huggingface", NewHuggingFaceJudge)
	r.Register("@azure", NewAzureOpenAIJudge)
	r.Register("@cohere", NewCohereJudge)
	r.Register("@mistral", NewMistralJudge)
	r.Register("@together", NewTogetherJudge)
	r.Register("@replicate", NewReplicateJudge)
	return r
}
