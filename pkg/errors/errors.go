package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for the provisioning error taxonomy
const (
	// General errors
	ErrUnknown  ErrorCode = "UNKNOWN"
	ErrInternal ErrorCode = "INTERNAL"

	// Pre-run validation errors (always fatal)
	ErrInsufficientPrivilege ErrorCode = "INSUFFICIENT_PRIVILEGE"
	ErrUnresolvableUser      ErrorCode = "UNRESOLVABLE_USER"

	// Host detection errors (always fatal)
	ErrUnsupportedEnvironment ErrorCode = "UNSUPPORTED_ENVIRONMENT"
	ErrOSReleaseRead          ErrorCode = "OS_RELEASE_READ"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Step errors
	ErrStepAction ErrorCode = "STEP_ACTION"
	ErrStepVerify ErrorCode = "STEP_VERIFY"

	// Command execution errors
	ErrCommandStart ErrorCode = "COMMAND_START"
	ErrCommandExit  ErrorCode = "COMMAND_EXIT"

	// Run lifecycle errors
	ErrWorkdirCreate ErrorCode = "WORKDIR_CREATE"
	ErrInterrupted   ErrorCode = "INTERRUPTED"
)

// ProvisioError represents a structured error with code and details
type ProvisioError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *ProvisioError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *ProvisioError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *ProvisioError) Is(target error) bool {
	var targetErr *ProvisioError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new ProvisioError with the given code and message
func New(code ErrorCode, message string) *ProvisioError {
	return &ProvisioError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new ProvisioError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *ProvisioError {
	return &ProvisioError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a ProvisioError
func Wrap(err error, code ErrorCode, message string) *ProvisioError {
	if err == nil {
		return nil
	}
	return &ProvisioError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *ProvisioError {
	if err == nil {
		return nil
	}
	return &ProvisioError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *ProvisioError) WithDetail(key string, value interface{}) *ProvisioError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var perr *ProvisioError
	if errors.As(err, &perr) {
		return perr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a ProvisioError
func GetErrorCode(err error) ErrorCode {
	var perr *ProvisioError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a ProvisioError
func GetErrorDetails(err error) map[string]interface{} {
	var perr *ProvisioError
	if errors.As(err, &perr) {
		return perr.Details
	}
	return nil
}
