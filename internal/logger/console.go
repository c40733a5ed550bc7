// Package logger provides logging implementations for a QC Bench run:
// structured, timestamped progress of the state machine, variant testing,
// and pull progress. Implementations are thread-safe and support multiple
// output destinations (console, file).
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Log level constants for filtering.
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs a run's progress to a writer with [HH:MM:SS] timestamps,
// thread safety, and level filtering. Color output is automatically enabled
// for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	verbose     bool
	bars        map[string]*ProgressBar
}

// NewConsoleLogger creates a ConsoleLogger writing to writer at logLevel
// ("trace"/"debug"/"info"/"warn"/"error", case-insensitive; invalid or
// empty defaults to "info").
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
		bars:        make(map[string]*ProgressBar),
	}
}

// isTerminal reports whether w is a TTY-backed os.Stdout/os.Stderr.
func isTerminal(w io.Writer) bool {
	if w == os.Stdout {
		return isatty.IsTerminal(os.Stdout.Fd())
	}
	if w == os.Stderr {
		return isatty.IsTerminal(os.Stderr.Fd())
	}
	return false
}

// progressBarWidth sizes the pull progress bar to a third of the detected
// terminal width, clamped to stay readable on narrow terminals and bounded
// on wide ones; falls back to a fixed width when the size can't be
// detected (piped output, redirected stdout).
func progressBarWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 30
	}
	bar := width / 3
	if bar < 20 {
		return 20
	}
	if bar > 60 {
		return 60
	}
	return bar
}

// statusMaxWidth bounds how much of a pull status string LogPullProgress
// prints before the bar, so the whole \r-redrawn line keeps fitting one
// terminal row on narrow terminals instead of wrapping.
const statusMaxWidth = 40

// truncateStatus shortens status to statusMaxWidth visible columns,
// counting wide runes correctly, so pull layer names with CJK or emoji
// don't overrun the bound runewidth.StringWidth computes for ASCII.
func truncateStatus(status string) string {
	if runewidth.StringWidth(status) <= statusMaxWidth {
		return status
	}
	return runewidth.Truncate(status, statusMaxWidth-3, "...")
}

// SetVerbose records the verbose flag. No ConsoleLogger method reads it, so
// output is the same either way.
func (cl *ConsoleLogger) SetVerbose(verbose bool) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	cl.verbose = verbose
}

func normalizeLogLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "error":
		return strings.ToLower(strings.TrimSpace(level))
	default:
		return "info"
	}
}

func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}

func (cl *ConsoleLogger) logWithLevel(level, message string) {
	if cl.writer == nil || !cl.shouldLog(level) {
		return
	}
	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	fmt.Fprintln(cl.writer, cl.formatLine(level, message))
}

func (cl *ConsoleLogger) formatLine(level, message string) string {
	ts := fmt.Sprintf("[%s]", timestamp())
	if !cl.colorOutput {
		return fmt.Sprintf("%s %s", ts, message)
	}
	switch level {
	case "error":
		return fmt.Sprintf("%s %s", color.New(color.FgHiBlack).Sprint(ts), color.New(color.FgRed).Sprint(message))
	case "warn":
		return fmt.Sprintf("%s %s", color.New(color.FgHiBlack).Sprint(ts), color.New(color.FgYellow).Sprint(message))
	default:
		return fmt.Sprintf("%s %s", color.New(color.FgHiBlack).Sprint(ts), message)
	}
}

// LogTrace/LogDebug/LogInfo/LogWarn/LogError are the level-filtered plain
// logging primitives everything else in this file builds on.
func (cl *ConsoleLogger) LogTrace(message string) { cl.logWithLevel("trace", message) }
func (cl *ConsoleLogger) LogDebug(message string) { cl.logWithLevel("debug", message) }
func (cl *ConsoleLogger) LogInfo(message string)  { cl.logWithLevel("info", message) }
func (cl *ConsoleLogger) LogWarn(message string)  { cl.logWithLevel("warn", message) }
func (cl *ConsoleLogger) LogError(message string) { cl.logWithLevel("error", message) }

// LogState announces a state-machine transition (spec.md §4.1).
func (cl *ConsoleLogger) LogState(s string) {
	scheme := newColorScheme()
	if cl.colorOutput {
		cl.LogDebug(scheme.label.Sprintf("==> %s", s))
		return
	}
	cl.LogDebug("==> " + s)
}

// LogBaseElected reports which variant was elected as the comparison base
// (spec.md §3's base-election rule).
func (cl *ConsoleLogger) LogBaseElected(tag string) {
	scheme := newColorScheme()
	if cl.colorOutput {
		cl.LogInfo(fmt.Sprintf("base variant: %s", scheme.label.Sprint(tag)))
		return
	}
	cl.LogInfo(fmt.Sprintf("base variant: %s", tag))
}

// LogVariantSkipped reports a variant the controller did not run, and why
// (already complete, or being pulled on demand).
func (cl *ConsoleLogger) LogVariantSkipped(tag, reason string) {
	cl.LogInfo(fmt.Sprintf("%s: %s", tag, reason))
}

// LogVariantFailed reports a variant that did not complete.
func (cl *ConsoleLogger) LogVariantFailed(tag string, err error) {
	scheme := newColorScheme()
	if cl.colorOutput {
		cl.LogError(fmt.Sprintf("%s: %s", scheme.fail.Sprint("failed"), formatVariantErr(tag, err)))
		return
	}
	cl.LogError(fmt.Sprintf("failed: %s", formatVariantErr(tag, err)))
}

func formatVariantErr(tag string, err error) string {
	return fmt.Sprintf("%s: %v", tag, err)
}

// LogWarning reports a non-fatal condition the run continues past, such as
// a RunOptions mismatch on reopening a document.
func (cl *ConsoleLogger) LogWarning(msg string) { cl.LogWarn(msg) }

// LogCancelled reports that the run stopped on request rather than
// completing or failing.
func (cl *ConsoleLogger) LogCancelled() { cl.LogWarn("run cancelled") }

// LogContextLengthChange reports the Test Runner reloading a model with a
// different context length mid-variant (spec.md §4.8).
func (cl *ConsoleLogger) LogContextLengthChange(tag, questionID string, length int) {
	cl.LogDebug(fmt.Sprintf("%s: context length changed to %d for %s", tag, length, questionID))
}

// LogQuestionAnswered reports one question's completion within a variant.
func (cl *ConsoleLogger) LogQuestionAnswered(tag, questionID string, answered, total int) {
	scheme := newColorScheme()
	progress := fmt.Sprintf("%d/%d", answered, total)
	if cl.colorOutput {
		progress = scheme.value.Sprint(progress)
	}
	cl.LogInfo(fmt.Sprintf("%s: %s answered (%s)", tag, questionID, progress))
}

// LogRetry reports the Retry/Cancellation Kernel retrying an operation.
func (cl *ConsoleLogger) LogRetry(tag string, attempt int, err error) {
	scheme := newColorScheme()
	label := fmt.Sprintf("retry %d", attempt)
	if cl.colorOutput {
		label = scheme.warn.Sprint(label)
	}
	cl.LogWarn(fmt.Sprintf("%s: %s: %v", tag, label, err))
}

// LogPullProgress renders or updates a byte-based progress bar for a model
// pull, keyed by status string so concurrent pull phases (e.g. separate
// layer downloads) each get their own bar (spec.md §4.5).
func (cl *ConsoleLogger) LogPullProgress(status string, completed, total int64) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}
	cl.mutex.Lock()
	bar, ok := cl.bars[status]
	if !ok {
		bar = NewProgressBar(total, progressBarWidth(), cl.colorOutput)
		cl.bars[status] = bar
	}
	bar.Update(completed)
	if total > 0 {
		bar.SetTotal(total)
	}
	line := fmt.Sprintf("\r[%s] %s %s", timestamp(), truncateStatus(status), bar.Render())
	fmt.Fprint(cl.writer, line)
	if total > 0 && completed >= total {
		fmt.Fprintln(cl.writer)
		delete(cl.bars, status)
	}
	cl.mutex.Unlock()
}

// NoOpLogger discards every event; useful for tests and --quiet.
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (NoOpLogger) LogState(string)                                    {}
func (NoOpLogger) LogBaseElected(string)                               {}
func (NoOpLogger) LogVariantSkipped(string, string)                    {}
func (NoOpLogger) LogVariantFailed(string, error)                      {}
func (NoOpLogger) LogWarning(string)                                   {}
func (NoOpLogger) LogCancelled()                                       {}
func (NoOpLogger) LogContextLengthChange(string, string, int)          {}
func (NoOpLogger) LogQuestionAnswered(string, string, int, int)        {}
func (NoOpLogger) LogRetry(string, int, error)                         {}
func (NoOpLogger) LogPullProgress(string, int64, int64)                {}
