// Package store persists and recovers the results document the engine
// builds up over a run: one JSON file per target model, saved to disk
// after every answered question so a killed run can resume in place.
package store

import (
	"strings"
	"time"
)

// RunOptions are the generation settings fixed for an entire results
// document; they must not vary across variants within one document.
type RunOptions struct {
	Temperature      float64 `json:"temperature"`
	Seed             int     `json:"seed"`
	TopP             float64 `json:"topP"`
	TopK             int     `json:"topK"`
	RepeatPenalty    float64 `json:"repeatPenalty"`
	FrequencyPenalty float64 `json:"frequencyPenalty"`
	Think            bool    `json:"think,omitempty"`
	ThinkLevel       string  `json:"thinkLevel,omitempty"`
}

// TokenLogprob is the only shape a log-probability entry may persist in;
// legacy raw-byte payloads are stripped on read.
type TokenLogprob struct {
	Token   string  `json:"token"`
	Logprob float64 `json:"logprob"`
}

// Judgment is the verdict attached to a Question Result once judged.
type Judgment struct {
	Score                 int            `json:"score"`
	Reason                string         `json:"reason"`
	BestAnswer            string         `json:"bestAnswer,omitempty"`
	JudgeModel            string         `json:"judgeModel"`
	JudgeProvider         string         `json:"judgeProvider"`
	JudgeModelBestAnswer  string         `json:"judgeModelBestAnswer,omitempty"`
	JudgeProviderBestAnswer string       `json:"judgeProviderBestAnswer,omitempty"`
	JudgedAt              time.Time      `json:"judgedAt"`
	BestAnswerJudgedAt    time.Time      `json:"bestAnswerJudgedAt,omitempty"`
	RawResponse           string         `json:"rawResponse,omitempty"`
	// CorrelationID identifies this judgment for tracing across the
	// similarity and best-answer passes, assigned once when the
	// Judgment is first created.
	CorrelationID string `json:"correlationId,omitempty"`
}

// QuestionResult is one answered question within a variant.
type QuestionResult struct {
	QuestionID          string         `json:"questionId"`
	Category            string         `json:"category"`
	Prompt              string         `json:"prompt"`
	Answer              string         `json:"answer"`
	Logprobs            []TokenLogprob `json:"logprobs"`
	EvalTokensPerSecond  float64       `json:"evalTokensPerSecond"`
	PromptTokensPerSecond float64      `json:"promptTokensPerSecond"`
	TotalTokens         int            `json:"totalTokens"`
	ContextLength       int            `json:"contextLength"`
	Judgment            *Judgment      `json:"judgment,omitempty"`
}

// VariantResult is one quantized model's full or partial run against the
// suite, keyed in the document by Tag.
type VariantResult struct {
	Tag               string           `json:"tag"`
	ModelName         string           `json:"modelName"`
	SizeBytes         int64            `json:"sizeBytes"`
	Digest            string           `json:"digest"`
	Family            string           `json:"family"`
	ParameterSize     string           `json:"parameterSize"`
	QuantizationLevel string           `json:"quantizationLevel"`
	EnhancedQuantLabel string          `json:"enhancedQuantLabel,omitempty"`
	IsBase            bool             `json:"isBase"`
	PulledOnDemand    bool             `json:"pulledOnDemand"`
	QuestionResults   []QuestionResult `json:"questionResults"`
}

// Complete reports whether every suite question has been answered.
func (v *VariantResult) Complete(suiteTotal int) bool {
	return len(v.QuestionResults) == suiteTotal
}

// AnsweredIDs returns the set of question ids already present, for the
// Test Runner's skip-answered step.
func (v *VariantResult) AnsweredIDs() map[string]bool {
	out := make(map[string]bool, len(v.QuestionResults))
	for _, qr := range v.QuestionResults {
		out[qr.QuestionID] = true
	}
	return out
}

// Document is the top-level results document, one per target model.
type Document struct {
	TestSuiteName string          `json:"testSuiteName"`
	TargetModel   string          `json:"targetModel"`
	RunOptions    RunOptions      `json:"runOptions"`
	ServerVersion string          `json:"serverVersion,omitempty"`
	EngineVersion string          `json:"engineVersion,omitempty"`
	Repository    string          `json:"repository,omitempty"`
	// RunID identifies the most recent Run invocation that touched this
	// document, for correlating it with that invocation's log output.
	RunID    string          `json:"runId,omitempty"`
	Variants []VariantResult `json:"variants"`
}

// Variant returns a pointer to the variant with the given tag, or nil.
func (d *Document) Variant(tag string) *VariantResult {
	for i := range d.Variants {
		if d.Variants[i].Tag == tag {
			return &d.Variants[i]
		}
	}
	return nil
}

// BaseVariant returns the variant flagged isBase, or nil if none is.
func (d *Document) BaseVariant() *VariantResult {
	for i := range d.Variants {
		if d.Variants[i].IsBase {
			return &d.Variants[i]
		}
	}
	return nil
}

// UpsertVariant replaces the variant matching v.Tag, or appends v if no
// match exists. Variant Results are replaced as a whole at completion
// per spec.md §3's lifecycle rule.
func (d *Document) UpsertVariant(v VariantResult) {
	for i := range d.Variants {
		if d.Variants[i].Tag == v.Tag {
			d.Variants[i] = v
			return
		}
	}
	d.Variants = append(d.Variants, v)
}

// baseIndices returns the indices of every variant currently flagged
// isBase, in document order.
func (d *Document) baseIndices() []int {
	var idx []int
	for i := range d.Variants {
		if d.Variants[i].IsBase {
			idx = append(idx, i)
		}
	}
	return idx
}

// ReconcileBase enforces spec.md §8's at-most-one-base invariant: if more
// than one variant carries isBase (a reopened document edited outside a
// run, or merged from elsewhere), demote every duplicate but one,
// preferring baseTag when it names one of the duplicates. If none
// currently carries the flag, it elects one from baseTag, falling back to
// well-known half-precision tag patterns (spec.md §3 repair step).
func (d *Document) ReconcileBase(baseTag string) {
	bases := d.baseIndices()

	if len(bases) > 1 {
		keep := bases[0]
		if baseTag != "" {
			for _, i := range bases {
				if strings.EqualFold(d.Variants[i].Tag, baseTag) {
					keep = i
					break
				}
			}
		}
		for _, i := range bases {
			if i != keep {
				d.Variants[i].IsBase = false
			}
		}
		return
	}
	if len(bases) == 1 {
		return
	}

	if baseTag != "" {
		if v := d.Variant(baseTag); v != nil {
			v.IsBase = true
			return
		}
	}
	for i := range d.Variants {
		switch d.Variants[i].Tag {
		case "fp16", "f16", "fp32", "f32", "bf16":
			d.Variants[i].IsBase = true
			return
		}
	}
}
