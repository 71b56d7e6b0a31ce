package domain

import "errors"

var (
	// ErrReportNotFound is returned when a report cannot be found in the database
	ErrReportNotFound = errors.New("report not found")

	// ErrCacheEntryNotFound is returned when a report has no live cache entry
	ErrCacheEntryNotFound = errors.New("report cache entry not found or expired")
)

// Stable business error codes surfaced to API clients
const (
	CodeInvalidKind       = "REPORT_KIND_INVALID"
	CodeEnqueueFailed     = "REPORT_ENQUEUE_FAILED"
	CodeRetryInvalidState = "REPORT_RETRY_INVALID_STATE"
)

// BusinessError represents an illegal operation a client can correct or retry
type BusinessError struct {
	Code    string
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}

// NewBusinessError creates a new business error with a stable code
func NewBusinessError(code, message string) *BusinessError {
	return &BusinessError{Code: code, Message: message}
}
