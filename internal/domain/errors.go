package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeInternalError = "INTERNAL_ERROR"
	// ErrCodeUpstream marks failures of an external dependency (embedding,
	// search, chat). Surfaced as a gateway-class error.
	ErrCodeUpstream = "UPSTREAM_ERROR"
	// ErrCodeConfiguration marks missing required provider configuration,
	// distinct from transient upstream failures.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrConflictingLinkScope = NewDomainError(ErrCodeValidation, "link must target exactly one of document_id or group_id")
)

// Not found errors. An expired or inactive link is reported with the same
// error as a nonexistent one so callers cannot probe link lifecycle.
var (
	ErrUserNotFound     = NewDomainError(ErrCodeNotFound, "user not found")
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrGroupNotFound    = NewDomainError(ErrCodeNotFound, "document group not found")
	ErrLinkNotFound     = NewDomainError(ErrCodeNotFound, "link not found")
	ErrQALogNotFound    = NewDomainError(ErrCodeNotFound, "qa log not found")
)

// Authorization errors
var (
	ErrInvalidCredentials = NewDomainError(ErrCodeUnauthorized, "invalid email or password")
	ErrInvalidToken       = NewDomainError(ErrCodeUnauthorized, "invalid or expired token")
	ErrEmailAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "email already registered")
)

// NewUpstreamError reports an external dependency failure. The upstream status
// and response body are carried in the message for diagnosability.
func NewUpstreamError(provider string, status int, body string) *DomainError {
	return NewDomainError(ErrCodeUpstream, fmt.Sprintf("%s error: %d %s", provider, status, body))
}

// NewConfigurationError reports missing required provider configuration.
func NewConfigurationError(message string) *DomainError {
	return NewDomainError(ErrCodeConfiguration, message)
}
