package judgeorch

import (
	"time"

	"github.com/qcbench/qcbench/internal/judge"
	"github.com/qcbench/qcbench/internal/store"
)

// applyVerdict writes a judge.Verdict into a Question Result's Judgment,
// following spec.md §4.9's field-ownership rule: the similarity pass
// owns score/reason/judgeModel and sets an initial best-answer marker;
// the best-answer pass overwrites only the best-answer marker, its
// reason, and the best-answer judge identity.
func applyVerdict(qr *store.QuestionResult, u verdictUpdate) {
	if qr.Judgment == nil {
		qr.Judgment = &store.Judgment{CorrelationID: judge.NewCorrelationID()}
	}
	now := time.Now()

	switch u.kind {
	case kindSimilarity:
		qr.Judgment.Score = u.verdict.Score
		qr.Judgment.Reason = u.verdict.Reason
		qr.Judgment.BestAnswer = string(u.verdict.BestAnswer)
		qr.Judgment.JudgeModel = u.identity.Model
		qr.Judgment.JudgeProvider = u.identity.Provider
		qr.Judgment.JudgedAt = now
		qr.Judgment.RawResponse = u.verdict.RawResponse
	case kindBestAnswer:
		qr.Judgment.BestAnswer = string(u.verdict.BestAnswer)
		qr.Judgment.Reason = u.verdict.Reason
		qr.Judgment.JudgeModelBestAnswer = u.identity.Model
		qr.Judgment.JudgeProviderBestAnswer = u.identity.Provider
		qr.Judgment.BestAnswerJudgedAt = now
	}
}
