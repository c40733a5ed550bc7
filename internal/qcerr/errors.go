// Package qcerr defines the typed error taxonomy shared by the inference
// client, judge client, and the engine's retry kernel.
package qcerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide whether to retry, prompt
// the user, or abort the run outright.
type Kind string

const (
	KindNetwork             Kind = "network"
	KindServerStatus        Kind = "server_status"
	KindTimeout             Kind = "timeout"
	KindCancelled           Kind = "cancelled"
	KindNotFound            Kind = "not_found"
	KindLogprobsUnavailable Kind = "logprobs_unavailable"
	KindRateLimited         Kind = "rate_limited"
	KindConfiguration       Kind = "configuration"
	KindDataIntegrity       Kind = "data_integrity"
)

// Error is the engine-wide error envelope. It always knows which operation
// and endpoint failed, how many attempts were made, and whether any partial
// state was preserved before returning to the caller -- the four facts
// spec.md §7 requires every user-visible failure to surface.
type Error struct {
	Kind             Kind
	Op               string // operation that failed, e.g. "generate", "pull"
	Endpoint         string // endpoint involved, empty if not applicable
	Attempts         int    // number of attempts made (1 = no retry occurred)
	PartialPreserved bool   // whether partial state was saved before returning
	StatusCode       int    // HTTP status code, for KindServerStatus
	Err              error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s failed", e.Op)
	if e.Endpoint != "" {
		msg += fmt.Sprintf(" (endpoint %s)", e.Endpoint)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Kind == KindServerStatus && e.StatusCode != 0 {
		msg += fmt.Sprintf(" [status %d]", e.StatusCode)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	if e.PartialPreserved {
		msg += " (partial results preserved)"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is comparisons against a bare Kind sentinel, e.g.
// errors.Is(err, qcerr.New(qcerr.KindNotFound, "", "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New constructs an *Error with the required classification fields.
func New(kind Kind, op, endpoint string) *Error {
	return &Error{Kind: kind, Op: op, Endpoint: endpoint, Attempts: 1}
}

// Wrap attaches kind/op/endpoint metadata to an underlying error.
func Wrap(kind Kind, op, endpoint string, attempts int, err error) *Error {
	return &Error{Kind: kind, Op: op, Endpoint: endpoint, Attempts: attempts, Err: err}
}

// WithPartial marks the error as having preserved partial state and returns
// the receiver for chaining at the call site.
func (e *Error) WithPartial() *Error {
	e.PartialPreserved = true
	return e
}

// WithMessage attaches a plain-text diagnostic (e.g. a response body) as
// the wrapped error and returns the receiver for chaining.
func (e *Error) WithMessage(msg string) *Error {
	e.Err = errors.New(msg)
	return e
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, otherwise returns the empty Kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether the kind is one the retry kernel should ever
// attempt again. Configuration, data integrity, cancellation, and
// logprobs-unavailable failures are always permanent.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindServerStatus, KindTimeout, KindRateLimited:
		return true
	default:
		return false
	}
}
