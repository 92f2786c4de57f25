package rerr

import (
	"errors"
	"fmt"
)

// RagError is raggrep's structured error type. It carries enough
// context for logging and for a caller to decide whether to abort the
// whole run or skip the offending file and continue.
type RagError struct {
	Kind       Kind
	Message    string
	Category   Category
	Severity   Severity
	Details    map[string]string
	Cause      error
	Retryable  bool
	Suggestion string
}

// Error implements the error interface.
func (e *RagError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/errors.As support.
func (e *RagError) Unwrap() error {
	return e.Cause
}

// Is matches by Kind, so errors.Is(err, rerr.New(rerr.KindCancelled, "", nil))
// works without comparing messages or causes.
func (e *RagError) Is(target error) bool {
	t, ok := target.(*RagError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail attaches a key-value pair of diagnostic context.
func (e *RagError) WithDetail(key, value string) *RagError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion attaches an actionable hint for a human operator.
func (e *RagError) WithSuggestion(suggestion string) *RagError {
	e.Suggestion = suggestion
	return e
}

// New creates a RagError of the given kind. Category, severity and
// retryability are derived from the kind.
func New(kind Kind, message string, cause error) *RagError {
	return &RagError{
		Kind:      kind,
		Message:   message,
		Category:  categoryOf(kind),
		Severity:  severityOf(kind),
		Cause:     cause,
		Retryable: retryableOf(kind),
	}
}

// Wrap creates a RagError from an existing error, preserving its message.
func Wrap(kind Kind, err error) *RagError {
	if err == nil {
		return nil
	}
	return New(kind, err.Error(), err)
}

// NotInitialized reports a module with no on-disk index yet.
func NotInitialized(message string) *RagError {
	return New(KindNotInitialized, message, nil)
}

// IOErr reports a filesystem failure reading/writing index state.
func IOErr(message string, cause error) *RagError {
	return New(KindIOError, message, cause)
}

// ParseErr reports a file that could not be chunked (parser and fallback
// both failed); this is file-scoped, not run-fatal.
func ParseErr(message string, cause error) *RagError {
	return New(KindParseError, message, cause)
}

// EmbeddingErr reports an EmbeddingProvider failure for one file/chunk;
// also file-scoped.
func EmbeddingErr(message string, cause error) *RagError {
	return New(KindEmbeddingError, message, cause)
}

// VectorLengthMismatch reports a vector whose length doesn't match the
// VectorStore's configured dimension — a programmer/config error, fatal.
func VectorLengthMismatch(expected, got int) *RagError {
	return New(KindVectorLengthMismatch,
		fmt.Sprintf("vector length mismatch: expected %d, got %d", expected, got), nil)
}

// ModelMismatch reports an EmbeddingProvider whose model name differs
// from the one a module's vectors were built with. Callers should
// silently downgrade to symbolic+literal search and warn once.
func ModelMismatch(expectedModel, gotModel string) *RagError {
	return New(KindModelMismatch,
		fmt.Sprintf("embedding model mismatch: index built with %q, provider is %q", expectedModel, gotModel), nil)
}

// Cancelled reports cooperative cancellation of a long-running
// operation, checked between files / between score batches. Not a
// failure: callers surface this as a distinct Cancelled result, never a
// partial-order error.
func Cancelled() *RagError {
	return New(KindCancelled, "operation cancelled", nil)
}

// IsRetryable reports whether retrying (or, for file-scoped kinds,
// skipping and continuing) is the intended response.
func IsRetryable(err error) bool {
	if re, ok := err.(*RagError); ok {
		return re.Retryable
	}
	return false
}

// IsCancelled reports whether err is (or wraps) a Cancelled RagError.
func IsCancelled(err error) bool {
	var re *RagError
	return errors.As(err, &re) && re.Kind == KindCancelled
}

// KindOf extracts the Kind from a RagError, or "" if err isn't one.
func KindOf(err error) Kind {
	if re, ok := err.(*RagError); ok {
		return re.Kind
	}
	return ""
}
