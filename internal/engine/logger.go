package engine

import (
	"github.com/qcbench/qcbench/internal/lifecycle"
	"github.com/qcbench/qcbench/internal/runner"
)

// Logger receives every observable event a Run produces, composing the
// Test Runner and Model Lifecycle Manager's narrower logger interfaces
// with the engine's own state-transition and variant-outcome events. A
// nil Logger is not valid; callers that want silence pass a no-op
// implementation (matching the teacher's ConsoleLogger-or-nothing idiom).
type Logger interface {
	runner.Logger
	lifecycle.ProgressLogger

	LogState(s string)
	LogVariantSkipped(tag, reason string)
	LogVariantFailed(tag string, err error)
	LogBaseElected(tag string)
	LogWarning(msg string)
	LogCancelled()
}

// NopLogger discards every event. Useful for tests and for embedding in
// a fuller Logger implementation that only overrides a few methods.
type NopLogger struct{}

func (NopLogger) LogContextLengthChange(tag, questionID string, length int)        {}
func (NopLogger) LogQuestionAnswered(tag, questionID string, answered, total int)   {}
func (NopLogger) LogRetry(tag string, attempt int, err error)                       {}
func (NopLogger) LogPullProgress(status string, completed, total int64)             {}
func (NopLogger) LogState(s string)                                                 {}
func (NopLogger) LogVariantSkipped(tag, reason string)                              {}
func (NopLogger) LogVariantFailed(tag string, err error)                            {}
func (NopLogger) LogBaseElected(tag string)                                         {}
func (NopLogger) LogWarning(msg string)                                             {}
func (NopLogger) LogCancelled()                                                     {}

var _ Logger = NopLogger{}
