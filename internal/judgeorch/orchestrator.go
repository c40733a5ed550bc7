package judgeorch

import (
	"context"
	"sync"

	"github.com/qcbench/qcbench/internal/judge"
	"github.com/qcbench/qcbench/internal/qcerr"
	"github.com/qcbench/qcbench/internal/retry"
	"github.com/qcbench/qcbench/internal/store"
)

// Orchestrator runs the similarity and best-answer judgment passes
// against a base/variant pair, in either mode of spec.md §4.9.
//
// Serial mode mutates the supplied *store.VariantResult directly, since
// it runs entirely on the calling goroutine. Parallel mode instead
// records each background task's outcome in a mutex-protected queue
// (the teacher's repeated provider-registry mutex-map idiom, applied
// here to a pending-results buffer) and requires the caller to call
// Drain or Join at the well-defined points spec.md §5 names: variant
// end and background-join.
type Orchestrator struct {
	Similarity judge.Judge
	Best       judge.Judge
	Mode       Mode
	Rejudge    bool
	Policy     retry.Policy

	// Concurrency bounds how many background judge calls run at once.
	Concurrency int

	mu       sync.Mutex
	pending  []verdictUpdate
	sem      chan struct{}
	wg       sync.WaitGroup
	tagWG    map[string]*sync.WaitGroup
}

// New constructs an Orchestrator. concurrency <= 0 defaults to 4.
func New(similarity, best judge.Judge, mode Mode, rejudge bool, policy retry.Policy, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Orchestrator{
		Similarity:  similarity,
		Best:        best,
		Mode:        mode,
		Rejudge:     rejudge,
		Policy:      policy,
		Concurrency: concurrency,
		sem:         make(chan struct{}, concurrency),
		tagWG:       make(map[string]*sync.WaitGroup),
	}
}

// JudgeVariantSerial runs both passes for variant to completion against
// baseVariant's answers, skipping any question already judged by the
// configured identity unless Rejudge is set (spec.md §4.9 serial mode).
func (o *Orchestrator) JudgeVariantSerial(ctx context.Context, baseVariant, variant *store.VariantResult) error {
	base := answersByID(baseVariant)

	if o.Similarity != nil {
		for i := range variant.QuestionResults {
			qr := &variant.QuestionResults[i]
			if err := o.applySimilarity(ctx, base[qr.QuestionID], qr); err != nil {
				return err
			}
		}
	}
	if o.Best != nil {
		for i := range variant.QuestionResults {
			qr := &variant.QuestionResults[i]
			if err := o.applyBestAnswer(ctx, base[qr.QuestionID], qr); err != nil {
				return err
			}
		}
	}
	return nil
}

// EnqueueSimilarity schedules a background similarity task for one
// freshly-answered question (spec.md §4.9 parallel mode). It is a no-op
// if no similarity judge is configured or the question already carries
// a current judgment.
func (o *Orchestrator) EnqueueSimilarity(ctx context.Context, tag, baseAnswer string, qr store.QuestionResult) {
	if o.Similarity == nil || !questionNeedsJudgment(qr, o.Similarity.Identity(), o.Rejudge) {
		return
	}
	o.enqueue(ctx, tag, qr.QuestionID, kindSimilarity, func() (judge.Verdict, error) {
		return o.callJudge(ctx, o.Similarity, similaritySystemPrompt, similarityUserPrompt(qr.Prompt, baseAnswer, qr.Answer), similarityMaxTokens, qr.ContextLength)
	})
}

// EnqueueBestAnswer schedules a background best-answer task, normally
// called only after the variant's similarity tasks have drained
// (spec.md §4.9: "best-answer tasks are scheduled after all similarity
// tasks for the variant have drained").
func (o *Orchestrator) EnqueueBestAnswer(ctx context.Context, tag, baseAnswer string, qr store.QuestionResult) {
	if o.Best == nil || !questionNeedsJudgeBest(qr, o.Best.Identity(), o.Rejudge) {
		return
	}
	o.enqueue(ctx, tag, qr.QuestionID, kindBestAnswer, func() (judge.Verdict, error) {
		return o.callJudge(ctx, o.Best, bestAnswerSystemPrompt, bestAnswerUserPrompt(qr.Prompt, baseAnswer, qr.Answer), bestAnswerMaxTokens, qr.ContextLength)
	})
}

// AwaitSimilarity blocks until every similarity task enqueued for tag so
// far has completed and been recorded, letting a caller schedule
// best-answer tasks only once they have drained (spec.md §4.9).
func (o *Orchestrator) AwaitSimilarity(tag string) {
	o.mu.Lock()
	wg, ok := o.tagWG[tag]
	o.mu.Unlock()
	if ok {
		wg.Wait()
	}
}

func (o *Orchestrator) enqueue(ctx context.Context, tag, questionID string, kind taskKind, call func() (judge.Verdict, error)) {
	o.wg.Add(1)
	var tagWG *sync.WaitGroup
	if kind == kindSimilarity {
		o.mu.Lock()
		tagWG = o.tagWG[tag]
		if tagWG == nil {
			tagWG = &sync.WaitGroup{}
			o.tagWG[tag] = tagWG
		}
		o.mu.Unlock()
		tagWG.Add(1)
	}
	go func() {
		defer o.wg.Done()
		if tagWG != nil {
			defer tagWG.Done()
		}
		select {
		case o.sem <- struct{}{}:
		case <-ctx.Done():
			o.record(verdictUpdate{tag: tag, questionID: questionID, kind: kind, err: qcerr.Wrap(qcerr.KindCancelled, "judge", "", 0, ctx.Err())})
			return
		}
		defer func() { <-o.sem }()

		v, err := call()
		var identity judge.Identity
		if kind == kindBestAnswer {
			identity = o.Best.Identity()
		} else {
			identity = o.Similarity.Identity()
		}
		o.record(verdictUpdate{tag: tag, questionID: questionID, kind: kind, verdict: v, identity: identity, err: err})
	}()
}

func (o *Orchestrator) record(u verdictUpdate) {
	o.mu.Lock()
	o.pending = append(o.pending, u)
	o.mu.Unlock()
}

// Drain merges every background task outcome recorded so far into doc,
// without blocking on tasks still in flight. Call at variant-completion
// boundaries (spec.md §5).
func (o *Orchestrator) Drain(doc *store.Document) {
	o.mu.Lock()
	items := o.pending
	o.pending = nil
	o.mu.Unlock()

	for _, u := range items {
		mergeUpdate(doc, u)
	}
}

// Join blocks until every background task has completed, then performs
// a final Drain. Call once before the run finishes (spec.md §4.9: "the
// engine tracks the union of background tasks and must join them
// before finishing").
func (o *Orchestrator) Join(doc *store.Document) {
	o.wg.Wait()
	o.Drain(doc)
}

func mergeUpdate(doc *store.Document, u verdictUpdate) {
	if u.err != nil {
		return
	}
	v := doc.Variant(u.tag)
	if v == nil {
		return
	}
	for i := range v.QuestionResults {
		qr := &v.QuestionResults[i]
		if qr.QuestionID != u.questionID {
			continue
		}
		applyVerdict(qr, u)
		return
	}
}

// callJudge runs one judge call through the network retry policy, then,
// if it succeeded but the reason could not be extracted, retries the
// whole call up to emptyReasonMaxAttempts times with a short delay
// (spec.md §4.3). After exhaustion it returns the last verdict with its
// empty reason and attached raw response rather than an error.
func (o *Orchestrator) callJudge(ctx context.Context, j judge.Judge, system, user string, maxTokens, testCtx int) (judge.Verdict, error) {
	var v judge.Verdict
	var err error
	for attempt := 1; attempt <= emptyReasonMaxAttempts; attempt++ {
		err = retry.Do(ctx, o.Policy, nil, func() error {
			var jerr error
			v, jerr = j.JudgeVerdict(ctx, system, user, maxTokens, testCtx)
			return jerr
		})
		if err != nil {
			return v, err
		}
		if v.Reason != "" {
			return v, nil
		}
		if attempt == emptyReasonMaxAttempts {
			break
		}
		if sleepErr := retry.Sleep(ctx, emptyReasonDelay); sleepErr != nil {
			return v, sleepErr
		}
	}
	return v, nil
}

func (o *Orchestrator) applySimilarity(ctx context.Context, baseAnswer string, qr *store.QuestionResult) error {
	if !questionNeedsJudgment(*qr, o.Similarity.Identity(), o.Rejudge) {
		return nil
	}
	v, err := o.callJudge(ctx, o.Similarity, similaritySystemPrompt, similarityUserPrompt(qr.Prompt, baseAnswer, qr.Answer), similarityMaxTokens, qr.ContextLength)
	if err != nil {
		return err
	}
	applyVerdict(qr, verdictUpdate{kind: kindSimilarity, verdict: v, identity: o.Similarity.Identity()})
	return nil
}

func (o *Orchestrator) applyBestAnswer(ctx context.Context, baseAnswer string, qr *store.QuestionResult) error {
	if !questionNeedsJudgeBest(*qr, o.Best.Identity(), o.Rejudge) {
		return nil
	}
	v, err := o.callJudge(ctx, o.Best, bestAnswerSystemPrompt, bestAnswerUserPrompt(qr.Prompt, baseAnswer, qr.Answer), bestAnswerMaxTokens, qr.ContextLength)
	if err != nil {
		return err
	}
	applyVerdict(qr, verdictUpdate{kind: kindBestAnswer, verdict: v, identity: o.Best.Identity()})
	return nil
}
