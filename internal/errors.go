package internal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different types of errors
type ErrorType int

const (
	ErrInvalidURL ErrorType = iota
	ErrInvalidInput
	ErrProbeFailed
	ErrNotDownloadable
	ErrNetworkTimeout
	ErrServer
	ErrRangeFailed
	ErrSegmentFailed
	ErrStalePlan
	ErrMergeFailed
	ErrFileSystem
)

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// DownloadError represents a download failure with detailed information
type DownloadError struct {
	Code       int                    `json:"code"`
	Message    string                 `json:"message"`
	Type       ErrorType              `json:"type"`
	Severity   ErrorSeverity          `json:"severity"`
	URL        string                 `json:"url,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface
func (e *DownloadError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("%s error", e.Type.String()))
	if e.Code != 0 {
		parts[0] = fmt.Sprintf("%s error (code: %d)", e.Type.String(), e.Code)
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Is matches another DownloadError of the same type, so errors.Is works
// against a sentinel built with NewDownloadError.
func (e *DownloadError) Is(target error) bool {
	t, ok := target.(*DownloadError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// DetailedError returns a detailed error message with all available information
func (e *DownloadError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s] %s Error", e.Severity.String(), e.Type.String()))

	if e.Code != 0 {
		parts = append(parts, fmt.Sprintf("Code: %d", e.Code))
	}
	if e.Message != "" {
		parts = append(parts, fmt.Sprintf("Message: %s", e.Message))
	}
	if e.Err != nil {
		parts = append(parts, fmt.Sprintf("Cause: %v", e.Err))
	}

	if e.URL != "" {
		parts = append(parts, fmt.Sprintf("URL: %s", redactSensitiveURL(e.URL)))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("Context: %s", strings.Join(contextParts, ", ")))
	}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("\nSuggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, "\n")
}

// String returns the string representation of ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrInvalidURL:
		return "InvalidURL"
	case ErrInvalidInput:
		return "InvalidInput"
	case ErrProbeFailed:
		return "ProbeFailed"
	case ErrNotDownloadable:
		return "NotDownloadable"
	case ErrNetworkTimeout:
		return "NetworkTimeout"
	case ErrServer:
		return "Server"
	case ErrRangeFailed:
		return "RangeFailed"
	case ErrSegmentFailed:
		return "SegmentFailed"
	case ErrStalePlan:
		return "StalePlan"
	case ErrMergeFailed:
		return "MergeFailed"
	case ErrFileSystem:
		return "FileSystem"
	default:
		return "Unknown"
	}
}

// String returns the string representation of ErrorSeverity
func (es ErrorSeverity) String() string {
	switch es {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// NewDownloadError creates a new DownloadError with default suggestion and severity
func NewDownloadError(code int, message string, errorType ErrorType) *DownloadError {
	return &DownloadError{
		Code:       code,
		Message:    message,
		Type:       errorType,
		Severity:   getDefaultSeverity(errorType),
		Suggestion: getDefaultSuggestion(errorType, code),
		Context:    make(map[string]interface{}),
	}
}

// WithSuggestion adds a custom suggestion to the error
func (e *DownloadError) WithSuggestion(suggestion string) *DownloadError {
	e.Suggestion = suggestion
	return e
}

// WithURL adds URL context to the error (redacted in detailed output)
func (e *DownloadError) WithURL(url string) *DownloadError {
	e.URL = url
	return e
}

// WithCause attaches the underlying error
func (e *DownloadError) WithCause(err error) *DownloadError {
	e.Err = err
	return e
}

// WithContext adds context information to the error
func (e *DownloadError) WithContext(key string, value interface{}) *DownloadError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsRetryable returns true if the error is retryable
func (e *DownloadError) IsRetryable() bool {
	switch e.Type {
	case ErrNetworkTimeout:
		return true
	case ErrServer:
		return e.Code >= 500 || e.Code == 429
	default:
		return false
	}
}

// IsCritical returns true if the error is critical and should stop execution
func (e *DownloadError) IsCritical() bool {
	return e.Severity == SeverityCritical
}

// HasType reports whether err wraps a DownloadError of the given type
func HasType(err error, errorType ErrorType) bool {
	var de *DownloadError
	if errors.As(err, &de) {
		return de.Type == errorType
	}
	return false
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field      string                 `json:"field"`
	Message    string                 `json:"message"`
	Value      interface{}            `json:"value,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := []string{fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, " - ")
}

// DetailedError returns a detailed validation error message
func (e *ValidationError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Validation Error for field '%s'", e.Field))
	parts = append(parts, fmt.Sprintf("Message: %s", e.Message))

	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("Provided value: %v", e.Value))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("Context: %s", strings.Join(contextParts, ", ")))
	}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("\nSuggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, "\n")
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewValidationErrorWithValue creates a ValidationError with the invalid value
func NewValidationErrorWithValue(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
		Context: make(map[string]interface{}),
	}
}

// WithSuggestion adds a suggestion to the validation error
func (e *ValidationError) WithSuggestion(suggestion string) *ValidationError {
	e.Suggestion = suggestion
	return e
}

// WithContext adds context to the validation error
func (e *ValidationError) WithContext(key string, value interface{}) *ValidationError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func getDefaultSuggestion(errorType ErrorType, code int) string {
	switch errorType {
	case ErrInvalidURL:
		return "Please provide an absolute http:// or https:// URL"
	case ErrInvalidInput:
		return "Please check the provided value and try again"
	case ErrProbeFailed:
		return "Check the URL and your network connection"
	case ErrNotDownloadable:
		return "The server did not advertise a Content-Length or the URL has no file name"
	case ErrNetworkTimeout:
		return "Check your internet connection and try again. Consider using a proxy if needed"
	case ErrServer:
		if code >= 500 {
			return "Server error occurred. Please try again later"
		}
		return "The server rejected the request"
	case ErrRangeFailed:
		return "The server may not support range requests; try again with 1 connection"
	case ErrSegmentFailed:
		return "Run the download again to resume the remaining segments"
	case ErrStalePlan:
		return "Segments from a previous run with a different connection count were discarded"
	case ErrMergeFailed:
		return "Check available disk space and permissions of the output directory"
	case ErrFileSystem:
		return "Check file/directory permissions and available disk space"
	default:
		return "Please check the error details and try again"
	}
}

func getDefaultSeverity(errorType ErrorType) ErrorSeverity {
	switch errorType {
	case ErrNetworkTimeout, ErrStalePlan:
		return SeverityWarning
	case ErrFileSystem, ErrMergeFailed:
		return SeverityCritical
	default:
		return SeverityError
	}
}

// redactSensitiveURL drops the query string, which may carry tokens
func redactSensitiveURL(url string) string {
	if strings.Contains(url, "?") {
		parts := strings.Split(url, "?")
		return parts[0] + "?[REDACTED]"
	}
	return url
}

// NewInvalidURLError creates an error for invalid URLs
func NewInvalidURLError(url string, reason string) *DownloadError {
	return NewDownloadError(400, fmt.Sprintf("invalid URL: %s", reason), ErrInvalidURL).
		WithURL(url)
}

// NewNotDownloadableError creates an error for objects without a usable length or name
func NewNotDownloadableError(url string, reason string) *DownloadError {
	return NewDownloadError(0, reason, ErrNotDownloadable).WithURL(url)
}

// NewNetworkTimeoutError creates an error for network timeouts
func NewNetworkTimeoutError(operation string) *DownloadError {
	return NewDownloadError(408, fmt.Sprintf("network timeout during %s", operation), ErrNetworkTimeout)
}

// NewServerError creates an error for an unexpected HTTP status
func NewServerError(status int, message string) *DownloadError {
	return NewDownloadError(status, message, ErrServer)
}

// NewSegmentError creates an error for a failed segment transfer
func NewSegmentError(index int, cause error) *DownloadError {
	return NewDownloadError(0, fmt.Sprintf("segment %d failed", index), ErrSegmentFailed).
		WithContext("segment", index).
		WithCause(cause)
}

// NewFileSystemError creates an error for a failed file-system operation
func NewFileSystemError(op, path string, cause error) *DownloadError {
	return NewDownloadError(0, fmt.Sprintf("%s %s", op, path), ErrFileSystem).
		WithContext("path", path).
		WithCause(cause)
}
