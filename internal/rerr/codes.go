// Package rerr provides raggrep's structured error type, covering seven
// error kinds: NotInitialized, IOError, ParseError, EmbeddingError,
// VectorLengthMismatch, ModelMismatch and Cancelled.
package rerr

// Kind is one of rerr's error kinds.
type Kind string

const (
	KindNotInitialized       Kind = "NOT_INITIALIZED"
	KindIOError              Kind = "IO_ERROR"
	KindParseError           Kind = "PARSE_ERROR"
	KindEmbeddingError       Kind = "EMBEDDING_ERROR"
	KindVectorLengthMismatch Kind = "VECTOR_LENGTH_MISMATCH"
	KindModelMismatch        Kind = "MODEL_MISMATCH"
	KindCancelled            Kind = "CANCELLED"
)

// Category groups kinds for coarse-grained handling/logging.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryIO         Category = "IO"
	CategoryParse      Category = "PARSE"
	CategoryEmbedding  Category = "EMBEDDING"
	CategoryValidation Category = "VALIDATION"
	CategoryControl    Category = "CONTROL" // cancellation, not a failure
)

// Severity is a four-level scale from informational to fatal.
type Severity string

const (
	SeverityFatal   Severity = "FATAL"
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

func categoryOf(k Kind) Category {
	switch k {
	case KindNotInitialized:
		return CategoryConfig
	case KindIOError:
		return CategoryIO
	case KindParseError:
		return CategoryParse
	case KindEmbeddingError, KindVectorLengthMismatch, KindModelMismatch:
		return CategoryEmbedding
	case KindCancelled:
		return CategoryControl
	default:
		return CategoryValidation
	}
}

func severityOf(k Kind) Severity {
	switch k {
	case KindNotInitialized, KindVectorLengthMismatch:
		return SeverityFatal
	case KindCancelled:
		return SeverityInfo
	case KindParseError, KindModelMismatch:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// retryableOf reports whether retrying the same operation unchanged
// could plausibly succeed. ParseError and EmbeddingError on a single
// file are recoverable at the file level (skip and continue); nothing
// here is retryable in the network-backoff sense since the core has no
// network calls of its own.
func retryableOf(k Kind) bool {
	switch k {
	case KindParseError, KindEmbeddingError:
		return true // retry means "continue indexing other files"
	default:
		return false
	}
}
