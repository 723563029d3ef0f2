// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Data errors
	ErrCodeNotFound = &Error{Code: "CODE_NOT_FOUND", Message: "fund code not found"}
	ErrNoData       = &Error{Code: "NO_DATA", Message: "no data available"}

	// Provider errors. ErrAllProvidersExhausted is diagnostic only: the
	// gateway reports exhaustion to polling callers as an absent result,
	// never as a returned error, so the scheduler survives total outages.
	ErrProviderFailed        = &Error{Code: "PROVIDER_FAILED", Message: "provider request failed"}
	ErrProviderTimeout       = &Error{Code: "PROVIDER_TIMEOUT", Message: "provider request timeout"}
	ErrUnsupported           = &Error{Code: "UNSUPPORTED_OPERATION", Message: "operation not supported by provider"}
	ErrAllProvidersExhausted = &Error{Code: "ALL_PROVIDERS_EXHAUSTED", Message: "all providers failed"}

	// Ledger errors
	ErrInvalidTrade = &Error{Code: "INVALID_TRADE", Message: "trade input invalid"}

	// Advisory errors
	ErrAdvisoryMisconfigured = &Error{Code: "ADVISORY_MISCONFIGURED", Message: "advisory model not configured"}
	ErrAdvisoryParseFailed   = &Error{Code: "ADVISORY_PARSE_FAILED", Message: "advisory response unparseable"}
	ErrAdvisoryBusy          = &Error{Code: "ADVISORY_BUSY", Message: "calibration already in progress"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Storage errors
	ErrStorageFailed = &Error{Code: "STORAGE_FAILED", Message: "persistence operation failed"}
)
