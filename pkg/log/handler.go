package log

import (
	"github.com/cockroachdb/errors"
)

const (
	// ErrAttrKey is the field key under which error values are logged.
	ErrAttrKey = "error"
	// StacktraceAttrKey is the field key for extracted stack traces.
	StacktraceAttrKey = "stacktrace"
)

// extractStacktrace pulls the stack trace recorded by cockroachdb/errors out
// of an error chain, if any.
func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
