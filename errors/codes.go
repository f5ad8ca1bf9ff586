package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Validation errors (rejected writes, never retried)
const (
	// ErrCodeInvalidInput indicates a schema or range violation on write.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Resource errors
const (
	// ErrCodeNotFound indicates no record exists for the requested filename.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeDuplicateKey indicates a filename collision on record creation.
	ErrCodeDuplicateKey ErrorCode = "DUPLICATE_KEY"
)

// Upstream and internal errors
const (
	// ErrCodeUpstreamFailure indicates the blob store or diarization engine
	// is unavailable or returned an error.
	ErrCodeUpstreamFailure ErrorCode = "UPSTREAM_FAILURE"
	// ErrCodeDatabaseError indicates a document store error.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeUpstreamFailure: true,
	ErrCodeDatabaseError:   true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
// Validation and duplicate-key errors are final: the caller must change the
// request (e.g. pick a new filename), not resubmit it.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
