package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		name         string
		logLevel     string
		messageLevel string
		shouldAppear bool
	}{
		{name: "trace blocked at info", logLevel: "info", messageLevel: "trace", shouldAppear: false},
		{name: "debug blocked at info", logLevel: "info", messageLevel: "debug", shouldAppear: false},
		{name: "info passes at info", logLevel: "info", messageLevel: "info", shouldAppear: true},
		{name: "warn passes at info", logLevel: "info", messageLevel: "warn", shouldAppear: true},
		{name: "error passes at info", logLevel: "info", messageLevel: "error", shouldAppear: true},
		{name: "info blocked at warn", logLevel: "warn", messageLevel: "info", shouldAppear: false},
		{name: "warn passes at warn", logLevel: "warn", messageLevel: "warn", shouldAppear: true},
		{name: "trace passes at trace", logLevel: "trace", messageLevel: "trace", shouldAppear: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			cl := NewConsoleLogger(buf, tt.logLevel)
			cl.logWithLevel(tt.messageLevel, "sentinel")
			appeared := strings.Contains(buf.String(), "sentinel")
			if appeared != tt.shouldAppear {
				t.Errorf("logWithLevel(%q) at level %q appeared=%v, want %v", tt.messageLevel, tt.logLevel, appeared, tt.shouldAppear)
			}
		})
	}
}

func TestNormalizeLogLevel(t *testing.T) {
	cases := map[string]string{
		"":        "info",
		"INFO":    "info",
		"Warn":    "warn",
		"bogus":   "info",
		"trace":   "trace",
		" error ": "error",
	}
	for in, want := range cases {
		if got := normalizeLogLevel(in); got != want {
			t.Errorf("normalizeLogLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConsoleLogger_LogState(t *testing.T) {
	buf := &bytes.Buffer{}
	cl := NewConsoleLogger(buf, "debug")
	cl.LogState("VERIFY_ENDPOINTS")
	if !strings.Contains(buf.String(), "VERIFY_ENDPOINTS") {
		t.Errorf("LogState output = %q, want it to contain the state name", buf.String())
	}
}

func TestConsoleLogger_LogVariantFailed(t *testing.T) {
	buf := &bytes.Buffer{}
	cl := NewConsoleLogger(buf, "info")
	cl.LogVariantFailed("q4_0", errors.New("boom"))
	out := buf.String()
	if !strings.Contains(out, "q4_0") || !strings.Contains(out, "boom") {
		t.Errorf("LogVariantFailed output = %q, want tag and error message", out)
	}
}

func TestConsoleLogger_LogQuestionAnswered(t *testing.T) {
	buf := &bytes.Buffer{}
	cl := NewConsoleLogger(buf, "info")
	cl.LogQuestionAnswered("fp16", "q3", 3, 10)
	out := buf.String()
	if !strings.Contains(out, "fp16") || !strings.Contains(out, "q3") || !strings.Contains(out, "3/10") {
		t.Errorf("LogQuestionAnswered output = %q, want tag, question id, and progress", out)
	}
}

func TestConsoleLogger_LogCancelled(t *testing.T) {
	buf := &bytes.Buffer{}
	cl := NewConsoleLogger(buf, "info")
	cl.LogCancelled()
	if !strings.Contains(buf.String(), "cancelled") {
		t.Errorf("LogCancelled output = %q, want it to mention cancellation", buf.String())
	}
}

func TestIsTerminal_NonStdStream(t *testing.T) {
	if isTerminal(&bytes.Buffer{}) {
		t.Error("isTerminal(bytes.Buffer) = true, want false")
	}
}

func TestNoOpLogger_DiscardsEverything(t *testing.T) {
	var l Logger = NewNoOpLogger()
	l.LogState("x")
	l.LogVariantFailed("x", errors.New("y"))
	l.LogCancelled()
}

// Logger mirrors the full surface internal/engine.Logger expects, checked
// structurally here so a signature drift fails this package's tests rather
// than only the engine's.
type Logger interface {
	LogState(s string)
	LogVariantSkipped(tag, reason string)
	LogVariantFailed(tag string, err error)
	LogBaseElected(tag string)
	LogWarning(msg string)
	LogCancelled()
	LogContextLengthChange(tag, questionID string, length int)
	LogQuestionAnswered(tag, questionID string, answered, total int)
	LogRetry(tag string, attempt int, err error)
	LogPullProgress(status string, completed, total int64)
}

var (
	_ Logger = (*ConsoleLogger)(nil)
	_ Logger = (*FileLogger)(nil)
	_ Logger = NoOpLogger{}
)

func TestTruncateStatus_LeavesShortStatusUntouched(t *testing.T) {
	if got := truncateStatus("pulling manifest"); got != "pulling manifest" {
		t.Errorf("truncateStatus() = %q, want unchanged", got)
	}
}

func TestTruncateStatus_TruncatesLongStatus(t *testing.T) {
	long := strings.Repeat("x", statusMaxWidth+20)
	got := truncateStatus(long)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncateStatus() = %q, want a ... suffix", got)
	}
	if len(got) >= len(long) {
		t.Errorf("truncateStatus() did not shorten a %d-rune status", len(long))
	}
}
