package logger

import (
	"github.com/fatih/color"
)

// colorScheme defines consistent colors for a run's log output.
// Green: success/positive (no current log line uses it)
// Red: failure (variant failed)
// Yellow: warning (retry, cancellation)
// Cyan: labels and identifiers (tags, state names)
// White: values (question-answered progress counts)
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
}
