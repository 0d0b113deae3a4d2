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
	// Validation errors
	ErrTickerRequired  = &Error{Code: "TICKER_REQUIRED", Message: "ticker symbol is required"}
	ErrInvalidTicker   = &Error{Code: "INVALID_TICKER", Message: "ticker symbol is malformed"}
	ErrInvalidQuantity = &Error{Code: "INVALID_QUANTITY", Message: "quantity must be a positive number"}
	ErrInvalidRequest  = &Error{Code: "INVALID_REQUEST", Message: "missing or malformed JSON payload"}

	// Data errors
	ErrNoData          = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrHoldingNotFound = &Error{Code: "HOLDING_NOT_FOUND", Message: "holding not found"}
	ErrInsightNotFound = &Error{Code: "INSIGHT_NOT_FOUND", Message: "insight not found or expired"}

	// Upstream errors
	ErrMarketDataFailed = &Error{Code: "MARKET_DATA_FAILED", Message: "market data request failed"}

	// Persistence errors
	ErrStoreFailed  = &Error{Code: "STORE_FAILED", Message: "storage operation failed"}
	ErrReportFailed = &Error{Code: "REPORT_FAILED", Message: "report generation failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Auth errors
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid API key"}

	// LLM errors
	ErrLLMFailed      = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
	ErrLLMUnavailable = &Error{Code: "LLM_UNAVAILABLE", Message: "LLM backend not configured"}
	ErrLLMMalformed   = &Error{Code: "LLM_MALFORMED", Message: "LLM response missing expected output"}
)
