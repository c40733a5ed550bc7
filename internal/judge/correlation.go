package judge

import "github.com/google/uuid"

// NewCorrelationID returns a fresh id for tagging one judgment, so a
// similarity/best-answer verdict pair recorded against a question can be
// traced back through provider-side request logs (cloud judges log their
// own request ids, not ours).
func NewCorrelationID() string {
	return uuid.New().String()
}
