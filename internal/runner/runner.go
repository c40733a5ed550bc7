package runner

import (
	"context"

	"github.com/qcbench/qcbench/internal/inference"
	"github.com/qcbench/qcbench/internal/qcerr"
	"github.com/qcbench/qcbench/internal/retry"
	"github.com/qcbench/qcbench/internal/store"
	"github.com/qcbench/qcbench/internal/testsuite"
)

// Runner drives one variant's worth of questions against an inference
// server, sequentially, the way spec.md §5 describes the engine's main
// control flow: single-threaded, with parallelism pushed out to
// background judge tasks rather than into the generation loop itself.
type Runner struct {
	Client *inference.Client
	Policy retry.Policy
	Logger Logger
}

// New constructs a Runner.
func New(client *inference.Client, policy retry.Policy, logger Logger) *Runner {
	return &Runner{Client: client, Policy: policy, Logger: logger}
}

// Run executes spec.md §4.8's per-variant loop. existing is the variant's
// prior partial record, if any (nil for a fresh variant); its already
// answered question ids are skipped. persist is called after every
// question with the variant accumulated so far; judge, if non-nil, is
// called with each freshly-answered question for background judgment.
//
// Run returns the variant assembled so far (complete or partial) together
// with any error — including a cancellation or an unrecoverable
// logprobs-unavailable failure, both of which stop the loop immediately.
func (r *Runner) Run(
	ctx context.Context,
	suite *testsuite.Suite,
	existing *store.VariantResult,
	meta VariantMetadata,
	opts store.RunOptions,
	think any,
	persist PersistFunc,
	judge JudgeFunc,
) (store.VariantResult, error) {
	var results []store.QuestionResult
	answered := map[string]bool{}
	if existing != nil {
		results = append(results, existing.QuestionResults...)
		answered = existing.AnsweredIDs()
	}

	total := suite.TotalQuestions()
	lastContextLength := -1

	genOpts := inference.GenerateOptions{
		Temperature:      opts.Temperature,
		Seed:             opts.Seed,
		TopP:             opts.TopP,
		TopK:             opts.TopK,
		RepeatPenalty:    opts.RepeatPenalty,
		FrequencyPenalty: opts.FrequencyPenalty,
	}

	for _, category := range suite.Categories {
		for _, q := range category.Questions {
			if answered[q.ID] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return buildVariant(meta, results), qcerr.Wrap(qcerr.KindCancelled, "run", "", 0, err)
			}

			ctxLen := suite.ContextLengthFor(category.Name, q.ID)
			if ctxLen != lastContextLength {
				if r.Logger != nil {
					r.Logger.LogContextLengthChange(meta.Tag, q.ID, ctxLen)
				}
				lastContextLength = ctxLen
			}
			genOpts.NumCtx = ctxLen

			var genResult inference.GenerateResult
			err := retry.Do(ctx, r.Policy, func(attempt int, retryErr error) {
				if r.Logger != nil {
					r.Logger.LogRetry(meta.Tag, attempt, retryErr)
				}
			}, func() error {
				var genErr error
				genResult, genErr = r.Client.Generate(ctx, meta.ModelName, q.Prompt, genOpts, think)
				return genErr
			})
			if err != nil {
				return buildVariant(meta, results), err
			}

			qr := store.QuestionResult{
				QuestionID:            q.ID,
				Category:              category.Name,
				Prompt:                q.Prompt,
				Answer:                genResult.Response,
				Logprobs:              convertLogprobs(genResult.Logprobs),
				EvalTokensPerSecond:   genResult.EvalTokensPerSecond(),
				PromptTokensPerSecond: genResult.PromptTokensPerSecond(),
				TotalTokens:           genResult.PromptEvalCount + genResult.EvalCount,
				ContextLength:         ctxLen,
			}
			results = append(results, qr)
			answered[q.ID] = true

			if r.Logger != nil {
				r.Logger.LogQuestionAnswered(meta.Tag, q.ID, len(results), total)
			}

			if judge != nil {
				judge(qr)
			}

			if persist != nil {
				if err := persist(buildVariant(meta, results)); err != nil {
					return buildVariant(meta, results), err
				}
			}
		}
	}

	return buildVariant(meta, results), nil
}

func convertLogprobs(in []inference.TokenLogprob) []store.TokenLogprob {
	if in == nil {
		return nil
	}
	out := make([]store.TokenLogprob, len(in))
	for i, lp := range in {
		out[i] = store.TokenLogprob{Token: lp.Token, Logprob: lp.Logprob}
	}
	return out
}
