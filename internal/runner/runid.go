package runner

import "github.com/google/uuid"

// NewRunID returns a fresh id for one engine.Run invocation, recorded on
// the results document so external log aggregation can correlate a run's
// console/file log lines with the document it produced.
func NewRunID() string {
	return uuid.New().String()
}
