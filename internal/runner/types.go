// Package runner implements the Test Runner (spec.md §4.8): the
// per-variant loop that walks a Test Suite's questions against the
// inference server, skipping already-answered ones, and assembles the
// resulting Variant Result.
package runner

import "github.com/qcbench/qcbench/internal/store"

// VariantMetadata carries the fields a Variant Result needs besides its
// question results, known to the caller before the loop starts.
type VariantMetadata struct {
	Tag                string
	ModelName          string
	SizeBytes          int64
	Digest             string
	Family             string
	ParameterSize      string
	QuantizationLevel  string
	EnhancedQuantLabel string
	IsBase             bool
	PulledOnDemand     bool
}

// Logger receives progress notifications from a running variant loop.
// All methods are optional to implement meaningfully; a nil Logger is
// valid and silences all notifications.
type Logger interface {
	LogContextLengthChange(tag, questionID string, length int)
	LogQuestionAnswered(tag, questionID string, answered, total int)
	LogRetry(tag string, attempt int, err error)
}

// PersistFunc saves the variant as accumulated so far, called after every
// question so a killed run can resume without losing already-answered
// questions (spec.md §8's idempotent-resume property).
type PersistFunc func(partial store.VariantResult) error

// JudgeFunc is invoked with each freshly-answered question result, for
// enqueuing a parallel-mode background judge task (spec.md §4.8 step 2).
type JudgeFunc func(qr store.QuestionResult)

func buildVariant(meta VariantMetadata, results []store.QuestionResult) store.VariantResult {
	return store.VariantResult{
		Tag:                meta.Tag,
		ModelName:          meta.ModelName,
		SizeBytes:          meta.SizeBytes,
		Digest:             meta.Digest,
		Family:             meta.Family,
		ParameterSize:      meta.ParameterSize,
		QuantizationLevel:  meta.QuantizationLevel,
		EnhancedQuantLabel: meta.EnhancedQuantLabel,
		IsBase:             meta.IsBase,
		PulledOnDemand:     meta.PulledOnDemand,
		QuestionResults:    append([]store.QuestionResult(nil), results...),
	}
}
