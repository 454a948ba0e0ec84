package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Configuration errors (CFG_*) - surface as HTTP 500
	ErrorCodeConfigMissingPolicy ErrorCode = "CFG_MISSING_POLICY"
	ErrorCodeConfigMissingSecret ErrorCode = "CFG_MISSING_SECRET"
	ErrorCodeConfigInvalid       ErrorCode = "CFG_INVALID"

	// Authentication errors (AUTH_*)
	ErrorCodeAuthMissingField      ErrorCode = "AUTH_MISSING_FIELD"
	ErrorCodeAuthInvalidSignature  ErrorCode = "AUTH_INVALID_SIGNATURE"
	ErrorCodeAuthInvalidToken      ErrorCode = "AUTH_INVALID_TOKEN"
	ErrorCodeAuthCommerceMismatch  ErrorCode = "AUTH_COMMERCE_MISMATCH"
	ErrorCodeAuthIPNotAllowed      ErrorCode = "AUTH_IP_NOT_ALLOWED"
	ErrorCodeAuthMissingSignature  ErrorCode = "AUTH_MISSING_SIGNATURE"

	// Validation errors (VAL_*)
	ErrorCodeValidationFailed        ErrorCode = "VAL_FAILED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VAL_AMOUNT_INVALID"
	ErrorCodeValidationSumMismatch   ErrorCode = "VAL_SUM_MISMATCH"
	ErrorCodeValidationMissingField  ErrorCode = "VAL_MISSING_FIELD"

	// Persistence errors (DB_*) - fail-closed envelope, never a 5xx to the network
	ErrorCodeDatabaseUnavailable ErrorCode = "DB_UNAVAILABLE"
	ErrorCodeProcedureFailed     ErrorCode = "DB_PROCEDURE_FAILED"
	ErrorCodeProcedureBadResult  ErrorCode = "DB_PROCEDURE_BAD_RESULT"

	// Upstream bank errors (UPS_*) - degrade to protocol-valid responses
	ErrorCodeUpstreamError       ErrorCode = "UPS_ERROR"
	ErrorCodeUpstreamTimeout     ErrorCode = "UPS_TIMEOUT"
	ErrorCodeUpstreamBadResponse ErrorCode = "UPS_BAD_RESPONSE"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsConfigError checks if an error is a gateway configuration error
func IsConfigError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeConfigMissingPolicy ||
		code == ErrorCodeConfigMissingSecret ||
		code == ErrorCodeConfigInvalid
}

// IsAuthError checks if an error is authentication related
func IsAuthError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeAuthMissingField ||
		code == ErrorCodeAuthInvalidSignature ||
		code == ErrorCodeAuthInvalidToken ||
		code == ErrorCodeAuthCommerceMismatch ||
		code == ErrorCodeAuthIPNotAllowed ||
		code == ErrorCodeAuthMissingSignature
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationAmountInvalid ||
		code == ErrorCodeValidationSumMismatch ||
		code == ErrorCodeValidationMissingField
}

// IsPersistenceError checks if an error came from the stored-procedure tier
func IsPersistenceError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeDatabaseUnavailable ||
		code == ErrorCodeProcedureFailed ||
		code == ErrorCodeProcedureBadResult
}

// IsUpstreamError checks if an error came from the upstream bank network
func IsUpstreamError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeUpstreamError ||
		code == ErrorCodeUpstreamTimeout ||
		code == ErrorCodeUpstreamBadResponse
}

// Structured error instances
var (
	ErrMissingPolicy    = NewDomainError(ErrorCodeConfigMissingPolicy, "no authentication policy for endpoint")
	ErrMissingSecret    = NewDomainError(ErrorCodeConfigMissingSecret, "signing secret not configured")
	ErrMissingSignature = NewDomainError(ErrorCodeAuthMissingSignature, "authorization header required")
	ErrInvalidSignature = NewDomainError(ErrorCodeAuthInvalidSignature, "signature verification failed")
	ErrInvalidToken     = NewDomainError(ErrorCodeAuthInvalidToken, "authorization token mismatch")
	ErrIPNotAllowed     = NewDomainError(ErrorCodeAuthIPNotAllowed, "source address not allowed")

	ErrDatabaseUnavailable = NewDomainError(ErrorCodeDatabaseUnavailable, "database unavailable")
	ErrUpstreamTimeout     = NewDomainError(ErrorCodeUpstreamTimeout, "bank network timeout")
)
