// Package domainerrors defines the gateway's internal error taxonomy.
//
// Every failure that crosses a package boundary carries a Code so the SLA
// protocol layer can translate it into the wire envelope exactly once.
// Adapters wrap the operator-native error so diagnostics survive translation.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure in the unified taxonomy.
type Code string

const (
	CodeValidation           Code = "validation_error"
	CodeInvalidMSISDN        Code = "invalid_msisdn"
	CodeInvalidACR           Code = "invalid_acr"
	CodeMissingCorrelator    Code = "missing_correlator"
	CodeOperatorDisabled     Code = "operator_disabled"
	CodeOperatorNotFound     Code = "operator_not_found"
	CodeInsufficientFunds    Code = "insufficient_funds"
	CodeSubscriptionExists   Code = "subscription_exists"
	CodeSubscriptionNotFound Code = "subscription_not_found"
	CodeInvalidPIN           Code = "invalid_pin"
	CodePINExpired           Code = "pin_expired"
	CodePINAttemptsExceeded  Code = "pin_attempts_exceeded"
	CodeFraudTokenInvalid    Code = "fraud_token_invalid"
	CodeFeatureNotSupported  Code = "feature_not_supported"
	CodeEligibilityFailed    Code = "eligibility_failed"
	CodeChargeLimitExceeded  Code = "charge_limit_exceeded"
	CodeUnauthorized         Code = "unauthorized"
	CodeOperatorError        Code = "operator_error"
	CodeInternal             Code = "internal_error"
)

// Error is the unified error model. Original holds the operator-native error
// untouched so logs keep the raw diagnostic while callers only see the code.
type Error struct {
	Code     Code
	Message  string
	Original error
}

func (e *Error) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Original)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Original }

// New creates an Error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. If err is already
// an *Error it is kept as the cause; the outer code wins, so layers must not
// re-wrap errors a lower layer already classified.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Original: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the taxonomy code from err, defaulting to CodeInternal for
// errors that never went through the taxonomy.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
