// Package judge implements the Judge Client (spec.md §4.3): a unified
// judge() operation fronting both a local inference-server endpoint and
// a registry of cloud provider adapters, plus the response
// normalization law every backend must obey.
package judge

import "context"

// BestAnswer is the closed set a normalized verdict's best-answer marker
// belongs to.
type BestAnswer string

const (
	BestAnswerA    BestAnswer = "A"
	BestAnswerB    BestAnswer = "B"
	BestAnswerAB   BestAnswer = "AB"
	BestAnswerNone BestAnswer = ""
)

// Verdict is the structured result of one judge call, normalized per
// spec.md §4.3.
type Verdict struct {
	Score       int
	BestAnswer  BestAnswer
	Reason      string
	RawResponse string
}

// Identity names the model/provider pair a Judge represents, mirroring
// the judgeModel/judgeProvider pair store.Judgment records.
type Identity struct {
	Model    string
	Provider string
}

// Judge is the unified interface every backend (local or cloud) satisfies.
type Judge interface {
	Identity() Identity
	// JudgeVerdict asks the backend to compare two answers. maxTokens
	// bounds the response budget; testCtx is the context length the
	// question under judgment was run at, which LocalJudge derives its
	// own context length from via ContextSizeFor (spec.md §4.3(c)); cloud
	// providers have no local context-window knob and ignore it. ctx
	// carries the run's cancellation scope (spec.md §4.7); no per-request
	// deadline is added to it.
	JudgeVerdict(ctx context.Context, systemPrompt, userPrompt string, maxTokens, testCtx int) (Verdict, error)
}
