package judgeorch

import (
	"github.com/qcbench/qcbench/internal/judge"
	"github.com/qcbench/qcbench/internal/store"
)

// NeedsJudgment reports whether v has any question result not yet judged
// by identity's similarity pass, per spec.md §4.9's predicate.
func NeedsJudgment(v store.VariantResult, identity judge.Identity, rejudge bool) bool {
	if rejudge {
		return true
	}
	for _, qr := range v.QuestionResults {
		if questionNeedsJudgment(qr, identity, false) {
			return true
		}
	}
	return false
}

// NeedsJudgeBest is NeedsJudgment's analogue for the best-answer pass.
func NeedsJudgeBest(v store.VariantResult, identity judge.Identity, rejudge bool) bool {
	if rejudge {
		return true
	}
	for _, qr := range v.QuestionResults {
		if questionNeedsJudgeBest(qr, identity, false) {
			return true
		}
	}
	return false
}

func questionNeedsJudgment(qr store.QuestionResult, identity judge.Identity, rejudge bool) bool {
	if rejudge {
		return true
	}
	if qr.Judgment == nil {
		return true
	}
	return qr.Judgment.JudgeModel != identity.Model || qr.Judgment.JudgeProvider != identity.Provider
}

func questionNeedsJudgeBest(qr store.QuestionResult, identity judge.Identity, rejudge bool) bool {
	if rejudge {
		return true
	}
	if qr.Judgment == nil || qr.Judgment.JudgeModelBestAnswer == "" {
		return true
	}
	return qr.Judgment.JudgeModelBestAnswer != identity.Model || qr.Judgment.JudgeProviderBestAnswer != identity.Provider
}
