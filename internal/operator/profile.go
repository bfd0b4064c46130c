package operator

import (
	"time"

	dErrors "dcbgate/pkg/domain-errors"
)

// MSISDNRule is the operator-specific identifier normalization rule. The rule
// is data so the generic adapter can apply it; operators never duplicate
// normalization logic in code.
type MSISDNRule struct {
	// NationalLength is the expected digit count after the calling code.
	// Zero disables the length check.
	NationalLength int
	// StripLeadingZero removes a national dialing zero before prepending the
	// calling code (e.g. 055… → +96655…).
	StripLeadingZero bool
}

// Profile is the declarative per-operator configuration the generic adapter
// runs on: endpoints, status and error translation tables, identifier rule,
// and business limits.
type Profile struct {
	Code        string
	Endpoints   map[Operation]string
	StatusTable map[string]Status
	ErrorTable  map[string]dErrors.Code
	MSISDN      MSISDNRule
	PINExpiry   time.Duration
	Timeout     time.Duration
}

// defaultStatusTable covers the status vocabulary shared by most operator
// back ends. Profiles copy it and override per-operator quirks.
func defaultStatusTable() map[string]Status {
	return map[string]Status{
		"CREATED":   StatusPending,
		"PENDING":   StatusPending,
		"INITIATED": StatusPending,
		"CHARGED":   StatusActive,
		"ACTIVE":    StatusActive,
		"SUCCESS":   StatusActive,
		"TRIAL":     StatusTrial,
		"FREE":      StatusTrial,
		"GRACE":     StatusSuspended,
		"SUSPENDED": StatusSuspended,
		"DELETED":   StatusCancelled,
		"REMOVED":   StatusCancelled,
		"TERMINATED": StatusCancelled,
		"CANCELLED": StatusCancelled,
		"FAILED":    StatusFailed,
		"REJECTED":  StatusFailed,
	}
}

// defaultErrorTable maps the error codes most operator back ends share onto
// the unified taxonomy. Unlisted codes go through the substring heuristic as
// a last resort, then CodeOperatorError.
func defaultErrorTable() map[string]dErrors.Code {
	return map[string]dErrors.Code{
		"INVALID_MSISDN":        dErrors.CodeInvalidMSISDN,
		"UNKNOWN_SUBSCRIBER":    dErrors.CodeInvalidMSISDN,
		"INSUFFICIENT_FUNDS":    dErrors.CodeInsufficientFunds,
		"LOW_BALANCE":           dErrors.CodeInsufficientFunds,
		"SUBSCRIPTION_EXISTS":   dErrors.CodeSubscriptionExists,
		"ALREADY_SUBSCRIBED":    dErrors.CodeSubscriptionExists,
		"SUBSCRIPTION_NOT_FOUND": dErrors.CodeSubscriptionNotFound,
		"NO_SUBSCRIPTION":       dErrors.CodeSubscriptionNotFound,
		"INVALID_PIN":           dErrors.CodeInvalidPIN,
		"INVALID_PIN_FORMAT":    dErrors.CodeInvalidPIN,
		"WRONG_PIN":             dErrors.CodeInvalidPIN,
		"PIN_EXPIRED":           dErrors.CodePINExpired,
		"PIN_TIMEOUT":           dErrors.CodePINExpired,
		"PIN_ATTEMPTS_EXCEEDED": dErrors.CodePINAttemptsExceeded,
		"MAX_PIN_ATTEMPTS":      dErrors.CodePINAttemptsExceeded,
		"FRAUD_TOKEN_INVALID":   dErrors.CodeFraudTokenInvalid,
		"NOT_ELIGIBLE":          dErrors.CodeEligibilityFailed,
		"BARRED":                dErrors.CodeEligibilityFailed,
	}
}

// defaultEndpoints is the endpoint layout shared by aggregated operator back
// ends. Operators with bespoke paths override individual entries.
func defaultEndpoints() map[Operation]string {
	return map[Operation]string{
		OpCreateSubscription: "v2.2/subscription/create",
		OpGetStatus:          "v2.2/subscription/status",
		OpCancel:             "v2.2/subscription/delete",
		OpGeneratePIN:        "v2.2/pin",
		OpVerifyPIN:          "v2.2/subscription/activate",
		OpCheckEligibility:   "v2.2/eligibility",
		OpCharge:             "v2.2/charge",
		OpRefund:             "v2.2/refund",
		OpSendSMS:            "v2.2/sms",
	}
}
