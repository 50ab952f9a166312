package domain

import (
	"errors"
	"strings"
)

// Kind classifies a failure so callers can branch without string matching.
type Kind int

const (
	// KindUnknown is reported for errors that carry no kind.
	KindUnknown Kind = iota

	// KindValidation means the caller supplied unusable input.
	KindValidation

	// KindConflict means the operation collides with existing state.
	KindConflict

	// KindNotFound means the addressed entity does not exist for the owner.
	KindNotFound

	// KindExternalDependency means an embedder, LLM or extraction tool failed.
	KindExternalDependency

	// KindStorage means the document store or vector index failed.
	KindStorage
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not found"
	case KindExternalDependency:
		return "external dependency"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Kind sentinels. A *Error matches the sentinel of its kind through errors.Is.
var (
	// ErrValidation indicates malformed or unusable input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates the entity already exists or belongs to someone else.
	ErrConflict = errors.New("conflict")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExternalDependency indicates a collaborator outside the process failed.
	ErrExternalDependency = errors.New("external dependency failed")

	// ErrStorage indicates persistence failed.
	ErrStorage = errors.New("storage failure")
)

// Specific causes wrapped inside a *Error.
var (
	// ErrAlreadyExists indicates a document with the same title exists for the owner.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoExtractableText indicates segmentation produced too little usable text.
	// Image-only PDFs end up here.
	ErrNoExtractableText = errors.New("no extractable text")

	// ErrEncryptedDocument indicates the PDF is encrypted and cannot be read.
	ErrEncryptedDocument = errors.New("encrypted document")

	// ErrUnsupportedType indicates a file type the pipeline cannot ingest.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrDimensionMismatch indicates a vector whose width differs from the index.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrLLMUnavailable indicates the LLM service is not configured or not reachable.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or not reachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// Error is a classified failure. Op names the operation that failed, Reason is a
// short human-readable explanation and Err is the underlying cause.
type Error struct {
	Kind   Kind
	Op     string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == kindSentinel(e.Kind)
}

func kindSentinel(k Kind) error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindConflict:
		return ErrConflict
	case KindNotFound:
		return ErrNotFound
	case KindExternalDependency:
		return ErrExternalDependency
	case KindStorage:
		return ErrStorage
	default:
		return nil
	}
}

// NewError builds a classified error.
func NewError(kind Kind, op, reason string, err error) *Error {
	return &Error{Kind: kind, Op: op, Reason: reason, Err: err}
}

// ValidationError builds a KindValidation error.
func ValidationError(op, reason string, err error) *Error {
	return NewError(KindValidation, op, reason, err)
}

// ConflictError builds a KindConflict error.
func ConflictError(op, reason string, err error) *Error {
	return NewError(KindConflict, op, reason, err)
}

// NotFoundError builds a KindNotFound error.
func NotFoundError(op, reason string) *Error {
	return NewError(KindNotFound, op, reason, nil)
}

// ExternalError builds a KindExternalDependency error.
func ExternalError(op, reason string, err error) *Error {
	return NewError(KindExternalDependency, op, reason, err)
}

// StorageError builds a KindStorage error.
func StorageError(op, reason string, err error) *Error {
	return NewError(KindStorage, op, reason, err)
}

// KindOf returns the kind of the first *Error in err's chain.
// Bare ErrNotFound is reported as KindNotFound.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrExternalDependency):
		return KindExternalDependency
	case errors.Is(err, ErrStorage):
		return KindStorage
	}
	return KindUnknown
}

// IsRetryable reports whether repeating the same call may succeed.
// Only external dependency and storage failures are transient.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindExternalDependency, KindStorage:
		return true
	default:
		return false
	}
}
