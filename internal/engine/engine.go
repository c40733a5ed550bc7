package engine

import (
	"context"

	"github.com/qcbench/qcbench/internal/inference"
	"github.com/qcbench/qcbench/internal/judge"
	"github.com/qcbench/qcbench/internal/judgeorch"
	"github.com/qcbench/qcbench/internal/lifecycle"
	"github.com/qcbench/qcbench/internal/qcerr"
	"github.com/qcbench/qcbench/internal/retry"
	"github.com/qcbench/qcbench/internal/runner"
	"github.com/qcbench/qcbench/internal/store"
	"github.com/qcbench/qcbench/internal/tagresolver"
	"github.com/qcbench/qcbench/internal/testsuite"
)

// RetryTuning bundles the two retry classes spec.md §4.7 names: Normal
// for inference/pull/show/list/version calls, Judge for judge calls.
type RetryTuning struct {
	Normal retry.Policy
	Judge  retry.Policy
}

// Engine drives one Run through the state machine of spec.md §4.1,
// wiring together every other package this module builds: the Inference
// Client, Model Lifecycle Manager, Tag Resolver, Judge Registry, Test
// Runner, and Judge Orchestrator.
type Engine struct {
	Client    *inference.Client
	Lifecycle *lifecycle.Manager
	Resolver  *tagresolver.Resolver
	Judges    *judge.Registry
	Retry     RetryTuning
	Logger    Logger

	// Manifests backfills the Digest of third-party-registry variants
	// (spec.md §4.6). May be nil, in which case such variants are left
	// without a digest.
	Manifests store.ManifestFetcher
}

// New constructs an Engine from its collaborators. logger must not be
// nil; pass NopLogger{} for silence.
func New(client *inference.Client, lifecycleMgr *lifecycle.Manager, resolver *tagresolver.Resolver, judges *judge.Registry, retryTuning RetryTuning, logger Logger) *Engine {
	if logger == nil {
		logger = NopLogger{}
	}
	return &Engine{
		Client:    client,
		Lifecycle: lifecycleMgr,
		Resolver:  resolver,
		Judges:    judges,
		Retry:     retryTuning,
		Logger:    logger,
	}
}

// Run executes one full benchmark run per spec.md §4.1's state machine,
// returning the exit code and output path the CLI layer should surface.
// A non-nil error always carries Result.ExitCode == ExitError; a
// cancelled run returns Result.ExitCode == ExitCancelled with a nil
// error, since user-requested cancellation is not itself a failure.
func (e *Engine) Run(ctx context.Context, p Params) (Result, error) {
	e.Logger.LogState(string(stateValidate))
	if err := validate(p); err != nil {
		return e.fail(err, "")
	}
	outputPath := store.DerivePath(p.TargetModel, p.OutputPath)

	suite, err := testsuite.Load(p.TestSuitePath)
	if err != nil {
		return e.fail(qcerr.Wrap(qcerr.KindConfiguration, "loadSuite", p.TestSuitePath, 1, err), outputPath)
	}

	e.Logger.LogState(string(stateLoadOrCreateDoc))
	st, err := store.Open(outputPath, p.TargetModel, suite.Name)
	if err != nil {
		return e.fail(err, outputPath)
	}
	fresh := len(st.Doc.Variants) == 0
	if fresh {
		st.Doc.RunOptions = p.RunOptions
	} else if st.Doc.RunOptions != p.RunOptions {
		e.Logger.LogWarning("run options differ from the persisted document; continuing with the persisted settings")
	}

	e.Logger.LogState(string(stateVerifyEndpoints))
	version, err := e.versionWithRetry(ctx)
	if err != nil {
		return e.fail(err, outputPath)
	}
	st.Doc.ServerVersion = version
	st.Doc.EngineVersion = EngineVersion
	st.Doc.Repository = p.Repository
	st.Doc.RunID = runner.NewRunID()
	if err := st.Save(); err != nil {
		return e.fail(err, outputPath)
	}

	e.Logger.LogState(string(stateExpandTags))
	variants, err := expandVariants(ctx, e.Resolver, p.VariantSpecifiers)
	if err != nil {
		return e.fail(err, outputPath)
	}

	e.Logger.LogState(string(stateVerifyModels))
	if err := e.verifyModels(ctx, variants, p); err != nil {
		return e.fail(err, outputPath)
	}

	e.Logger.LogState(string(stateBaseDecision))
	baseIdx, err := electBase(variants, p.BaseTag)
	if err != nil {
		return e.fail(err, outputPath)
	}
	variants = reorderBaseFirst(variants, baseIdx)
	e.Logger.LogBaseElected(variants[0].Tag)

	similarityJudge, err := buildJudge(e.Client, e.Judges, p.JudgeSpecifier, p.JudgeContextLength)
	if err != nil {
		return e.fail(err, outputPath)
	}
	bestJudge, err := buildJudge(e.Client, e.Judges, p.JudgeBestSpecifier, p.JudgeContextLength)
	if err != nil {
		return e.fail(err, outputPath)
	}
	var orch *judgeorch.Orchestrator
	if similarityJudge != nil || bestJudge != nil {
		orch = judgeorch.New(similarityJudge, bestJudge, p.JudgeMode, p.Rejudge, e.Retry.Judge, 4)
	}

	e.Logger.LogState(string(stateVariantLoop))
	cancelled, err := e.runVariantLoop(ctx, suite, variants, p, st, orch)
	if cancelled {
		st.Save()
		return e.fail(qcerr.New(qcerr.KindCancelled, "run", ""), outputPath)
	}
	if err != nil {
		return e.fail(err, outputPath)
	}

	e.Logger.LogState(string(stateJudgmentCatchup))
	if orch != nil {
		e.judgmentCatchup(ctx, st, orch, p.JudgeMode == judgeorch.ModeParallel)
		if err := st.Save(); err != nil {
			return e.fail(err, outputPath)
		}
	}

	e.Logger.LogState(string(stateBackgroundJoin))
	if orch != nil && p.JudgeMode == judgeorch.ModeParallel {
		orch.Join(st.Doc)
		if err := st.Save(); err != nil {
			return e.fail(err, outputPath)
		}
	}

	e.Logger.LogState(string(stateCleanup))
	e.cleanup(ctx, suite, variants, p, st)

	if err := st.DigestBackfill(ctx, e.Client, e.Manifests); err != nil {
		e.Logger.LogWarning("digest backfill: " + err.Error())
	} else if err := st.Save(); err != nil {
		return e.fail(err, outputPath)
	}

	e.Logger.LogState(string(stateDone))
	return Result{ExitCode: ExitSuccess, OutputPath: outputPath, PulledOnDemand: pulledOnDemandTags(st.Doc)}, nil
}

// pulledOnDemandTags lists the tags of every variant the document records
// as pulled on demand, for the run-history ledger (SPEC_FULL.md §6).
func pulledOnDemandTags(doc *store.Document) []string {
	var tags []string
	for _, v := range doc.Variants {
		if v.PulledOnDemand {
			tags = append(tags, v.Tag)
		}
	}
	return tags
}

// fail classifies err into the state machine's two failure exits: a
// cancellation (spec.md §4.1 CANCELLED, exit code 2) surfaces with a nil
// error since stopping on request is not itself a failure, anything else
// is the ERROR branch (exit code 1).
func (e *Engine) fail(err error, outputPath string) (Result, error) {
	if qcerr.KindOf(err) == qcerr.KindCancelled {
		e.Logger.LogCancelled()
		return Result{ExitCode: ExitCancelled, OutputPath: outputPath}, nil
	}
	return Result{ExitCode: ExitError, OutputPath: outputPath}, err
}

func validate(p Params) error {
	if p.TargetModel == "" {
		return qcerr.New(qcerr.KindConfiguration, "validate", "").WithMessage("target model is required")
	}
	if len(p.VariantSpecifiers) == 0 {
		return qcerr.New(qcerr.KindConfiguration, "validate", "").WithMessage("at least one variant specifier is required")
	}
	return nil
}

// verifyModels confirms every resolved variant exists on its registry,
// pulling on demand when p.OnDemand is set and the model is missing
// (spec.md §4.1 VERIFY_MODELS, §4.5 on-demand pull).
func (e *Engine) verifyModels(ctx context.Context, variants []resolvedVariant, p Params) error {
	for i := range variants {
		v := &variants[i]
		_, err := e.showWithRetry(ctx, v.ModelName)
		if err == nil {
			continue
		}
		if qcerr.KindOf(err) != qcerr.KindNotFound || !p.OnDemand {
			return err
		}

		e.Logger.LogVariantSkipped(v.Tag, "pulling on demand")
		if err := e.Lifecycle.PullOnDemand(ctx, v.ModelName, nil, e.Logger); err != nil {
			return err
		}
		actual, err := e.Lifecycle.ResolveActualName(ctx, v.ModelName)
		if err == nil && actual != "" {
			v.ModelName = actual
		}
		if _, err := e.showWithRetry(ctx, v.ModelName); err != nil {
			return err
		}
		v.PulledOnDemand = true
	}
	return nil
}

// runVariantLoop runs every resolved variant in order (base first),
// persisting after each question and merging judgments at the points
// spec.md §5 names. It returns cancelled=true if the run was stopped by
// context cancellation rather than completing or failing a variant.
func (e *Engine) runVariantLoop(ctx context.Context, suite *testsuite.Suite, variants []resolvedVariant, p Params, st *store.Store, orch *judgeorch.Orchestrator) (cancelled bool, err error) {
	total := suite.TotalQuestions()
	tr := runner.New(e.Client, e.Retry.Normal, e.Logger)

	for i, rv := range variants {
		if ctx.Err() != nil {
			return true, nil
		}

		existing := st.Doc.Variant(rv.Tag)
		if existing != nil && existing.Complete(total) && !p.Force {
			e.Logger.LogVariantSkipped(rv.Tag, "already complete")
			continue
		}

		if !p.NoUnloadAll {
			genOpts := prepareOptions(p, suite)
			if err := e.Lifecycle.Prepare(ctx, rv.ModelName, genOpts); err != nil {
				if qcerr.KindOf(err) == qcerr.KindCancelled {
					return true, nil
				}
				e.Logger.LogVariantFailed(rv.Tag, err)
				continue
			}
		}

		details, err := e.showWithRetry(ctx, rv.ModelName)
		if err != nil {
			if qcerr.KindOf(err) == qcerr.KindCancelled {
				return true, nil
			}
			e.Logger.LogVariantFailed(rv.Tag, err)
			continue
		}
		size, digest, _ := e.sizeAndDigestFor(ctx, rv.ModelName)

		pulledOnDemand := rv.PulledOnDemand
		if existing != nil && existing.PulledOnDemand {
			pulledOnDemand = true
		}

		meta := runner.VariantMetadata{
			Tag:                rv.Tag,
			ModelName:          rv.ModelName,
			SizeBytes:          size,
			Digest:             digest,
			Family:             details.Family,
			ParameterSize:      details.ParameterSize,
			QuantizationLevel:  details.QuantizationLevel,
			EnhancedQuantLabel: details.EnhancedQuantLabel,
			IsBase:             i == 0,
			PulledOnDemand:     pulledOnDemand,
		}

		persist := func(partial store.VariantResult) error {
			st.Doc.UpsertVariant(partial)
			return st.Save()
		}

		var baseAnswers map[string]string
		if i > 0 {
			baseAnswers = answersOf(st.Doc.BaseVariant())
		}

		var judgeFn runner.JudgeFunc
		if orch != nil && i > 0 && p.JudgeMode == judgeorch.ModeParallel {
			judgeFn = func(qr store.QuestionResult) {
				orch.EnqueueSimilarity(ctx, rv.Tag, baseAnswers[qr.QuestionID], qr)
			}
		}

		variant, runErr := tr.Run(ctx, suite, existing, meta, p.RunOptions, p.Think, persist, judgeFn)

		if i > 0 && orch != nil {
			if p.JudgeMode == judgeorch.ModeSerial {
				base := st.Doc.BaseVariant()
				if base != nil {
					orch.JudgeVariantSerial(ctx, base, &variant)
				}
			} else {
				orch.AwaitSimilarity(rv.Tag)
				orch.Drain(st.Doc)
				for _, qr := range variant.QuestionResults {
					orch.EnqueueBestAnswer(ctx, rv.Tag, baseAnswers[qr.QuestionID], qr)
				}
			}
		}

		st.Doc.UpsertVariant(variant)
		if saveErr := st.Save(); saveErr != nil {
			return false, saveErr
		}
		if orch != nil {
			orch.Drain(st.Doc)
		}

		if runErr != nil {
			if qcerr.KindOf(runErr) == qcerr.KindCancelled {
				return true, nil
			}
			e.Logger.LogVariantFailed(rv.Tag, runErr)
			continue
		}
	}

	return false, nil
}

func prepareOptions(p Params, suite *testsuite.Suite) inference.GenerateOptions {
	return inference.GenerateOptions{
		Temperature:      p.RunOptions.Temperature,
		Seed:             p.RunOptions.Seed,
		TopP:             p.RunOptions.TopP,
		TopK:             p.RunOptions.TopK,
		RepeatPenalty:    p.RunOptions.RepeatPenalty,
		FrequencyPenalty: p.RunOptions.FrequencyPenalty,
		NumCtx:           suite.DefaultContextLength,
	}
}

func answersOf(v *store.VariantResult) map[string]string {
	out := make(map[string]string)
	if v == nil {
		return out
	}
	for _, qr := range v.QuestionResults {
		out[qr.QuestionID] = qr.Answer
	}
	return out
}

// judgmentCatchup runs judgment for variants that were already complete
// and therefore skipped by runVariantLoop, covering the case where the
// judge configuration or --rejudge flag changed since they last ran
// (spec.md §4.1 JUDGMENT_CATCHUP).
func (e *Engine) judgmentCatchup(ctx context.Context, st *store.Store, orch *judgeorch.Orchestrator, parallel bool) {
	base := st.Doc.BaseVariant()
	if base == nil {
		return
	}
	baseAnswers := answersOf(base)

	for i := range st.Doc.Variants {
		v := &st.Doc.Variants[i]
		if v.IsBase {
			continue
		}

		needsSimilarity := orch.Similarity != nil && judgeorch.NeedsJudgment(*v, orch.Similarity.Identity(), orch.Rejudge)
		needsBest := orch.Best != nil && judgeorch.NeedsJudgeBest(*v, orch.Best.Identity(), orch.Rejudge)
		if !needsSimilarity && !needsBest {
			continue
		}

		if parallel {
			for _, qr := range v.QuestionResults {
				orch.EnqueueSimilarity(ctx, v.Tag, baseAnswers[qr.QuestionID], qr)
			}
			orch.AwaitSimilarity(v.Tag)
			orch.Drain(st.Doc)
			for _, qr := range v.QuestionResults {
				orch.EnqueueBestAnswer(ctx, v.Tag, baseAnswers[qr.QuestionID], qr)
			}
			continue
		}

		orch.JudgeVariantSerial(ctx, base, v)
	}
}

// cleanup unloads the server and deletes any on-demand-pulled model whose
// variant completed, preserving incomplete ones so a resumed run doesn't
// need to re-pull them (spec.md §4.1 CLEANUP, §4.5).
func (e *Engine) cleanup(ctx context.Context, suite *testsuite.Suite, variants []resolvedVariant, p Params, st *store.Store) {
	total := suite.TotalQuestions()

	if !p.NoUnloadAll {
		if loaded, err := e.Client.PsLoaded(ctx); err == nil {
			e.Lifecycle.UnloadAll(ctx, loaded)
		}
	}

	for _, rv := range variants {
		v := st.Doc.Variant(rv.Tag)
		if v == nil || !v.PulledOnDemand || !v.Complete(total) {
			continue
		}
		if err := e.Lifecycle.Delete(ctx, v.ModelName); err != nil {
			e.Logger.LogVariantFailed(rv.Tag, err)
		}
	}
}
