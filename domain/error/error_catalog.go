package error

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes for different categories
const (
	// Session Errors (1xxx)
	ErrCodeDecode    ErrorCode = "SESSION_1001"
	ErrCodeNoSession ErrorCode = "SESSION_1002"

	// Authentication Errors (2xxx)
	ErrCodeAuthRejected            ErrorCode = "AUTH_2001"
	ErrCodeNotAuthorizedBackOffice ErrorCode = "AUTH_2002"
	ErrCodeInvalidCredential       ErrorCode = "AUTH_2003"
	ErrCodeLoginInProgress         ErrorCode = "AUTH_2004"

	// Network Errors (3xxx)
	ErrCodeNetworkFailure   ErrorCode = "NET_3001"
	ErrCodeUpstreamResponse ErrorCode = "NET_3002"

	// Routing Errors (4xxx)
	ErrCodeUnrecognizedRole ErrorCode = "ROUTE_4001"

	// Persistence Errors (5xxx)
	ErrCodePersistenceFailure ErrorCode = "STORE_5001"

	// Rate Limiting Errors (6xxx)
	ErrCodeRateLimitExceeded ErrorCode = "RATE_6001"

	// Configuration Errors (7xxx)
	ErrCodeConfigurationError ErrorCode = "CONFIG_7001"
)

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so callers can compare
// against the constructors below with errors.Is.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// Session errors
func ErrDecode(stage string, cause error) *AppError {
	return NewAppError(ErrCodeDecode, "Persisted session could not be decoded", fmt.Sprintf("Stage: %s", stage), cause)
}

func ErrNoSession() *AppError {
	return NewAppError(ErrCodeNoSession, "No active session", "", nil)
}

// Authentication errors
func ErrAuthRejected(details string) *AppError {
	return NewAppError(ErrCodeAuthRejected, "Login was rejected", details, nil)
}

func ErrNotAuthorizedBackOffice(cause error) *AppError {
	return NewAppError(ErrCodeNotAuthorizedBackOffice, "Not authorized for Admin or Staff", "", cause)
}

func ErrInvalidCredential(cause error) *AppError {
	return NewAppError(ErrCodeInvalidCredential, "Invalid identity credential", "", cause)
}

func ErrLoginInProgress() *AppError {
	return NewAppError(ErrCodeLoginInProgress, "Another login attempt is in progress", "", nil)
}

// Network errors
func ErrNetworkFailure(endpoint string, cause error) *AppError {
	return NewAppError(ErrCodeNetworkFailure, "Backend is unreachable", fmt.Sprintf("Endpoint: %s", endpoint), cause)
}

func ErrUpstreamResponse(endpoint string, status int) *AppError {
	return NewAppError(ErrCodeUpstreamResponse, "Unexpected backend response", fmt.Sprintf("Endpoint: %s, Status: %d", endpoint, status), nil)
}

// Routing errors
func ErrUnrecognizedRole(role string) *AppError {
	return NewAppError(ErrCodeUnrecognizedRole, "Unrecognized role", fmt.Sprintf("Role: %q", role), nil)
}

// Persistence errors
func ErrPersistenceFailure(operation string, cause error) *AppError {
	return NewAppError(ErrCodePersistenceFailure, "Session storage failed", fmt.Sprintf("Operation: %s", operation), cause)
}

// Rate limiting errors
func ErrRateLimitExceeded(attempts int, window string) *AppError {
	return NewAppError(ErrCodeRateLimitExceeded, "Too many requests", fmt.Sprintf("Attempts: %d, Window: %s", attempts, window), nil)
}

// Configuration errors
func ErrConfigurationError(config string) *AppError {
	return NewAppError(ErrCodeConfigurationError, "Configuration error", fmt.Sprintf("Config: %s", config), nil)
}

// IsRejection reports whether err should move a login probe on to the next
// candidate role. Rejections and transport failures are deliberately treated
// alike.
func IsRejection(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case ErrCodeAuthRejected, ErrCodeNetworkFailure, ErrCodeUpstreamResponse, ErrCodeUnrecognizedRole, ErrCodeDecode:
		return true
	}
	return false
}

// Error mapping for HTTP status codes
func GetHTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case ErrCodeNoSession, ErrCodeAuthRejected, ErrCodeNotAuthorizedBackOffice, ErrCodeUnrecognizedRole:
			return http.StatusUnauthorized
		case ErrCodeDecode, ErrCodeInvalidCredential:
			return http.StatusBadRequest
		case ErrCodeLoginInProgress:
			return http.StatusConflict
		case ErrCodeNetworkFailure, ErrCodeUpstreamResponse:
			return http.StatusBadGateway
		case ErrCodeRateLimitExceeded:
			return http.StatusTooManyRequests
		case ErrCodePersistenceFailure:
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusInternalServerError
}

// Error response structure for API responses
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *AppError `json:"error"`
	TraceID string    `json:"trace_id,omitempty"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(err *AppError, traceID string) *ErrorResponse {
	return &ErrorResponse{
		Success: false,
		Error:   err,
		TraceID: traceID,
	}
}
