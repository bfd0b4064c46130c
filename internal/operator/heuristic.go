package operator

import (
	"strings"

	dErrors "dcbgate/pkg/domain-errors"
)

// heuristicCode classifies an operator error by substring when the profile's
// error table has no entry. This is inherently approximate and exists only as
// a last resort before the generic operator-error fallback; anything an
// operator documents belongs in its error table instead.
func heuristicCode(nativeText string) (dErrors.Code, bool) {
	text := strings.ToLower(nativeText)
	switch {
	case strings.Contains(text, "pin") && strings.Contains(text, "expir"):
		return dErrors.CodePINExpired, true
	case strings.Contains(text, "pin") && (strings.Contains(text, "attempt") || strings.Contains(text, "max")):
		return dErrors.CodePINAttemptsExceeded, true
	case strings.Contains(text, "pin"):
		return dErrors.CodeInvalidPIN, true
	case strings.Contains(text, "fund") || strings.Contains(text, "balance") || strings.Contains(text, "credit"):
		return dErrors.CodeInsufficientFunds, true
	case strings.Contains(text, "already") && strings.Contains(text, "subscri"):
		return dErrors.CodeSubscriptionExists, true
	case strings.Contains(text, "not") && strings.Contains(text, "found") && strings.Contains(text, "subscri"):
		return dErrors.CodeSubscriptionNotFound, true
	case strings.Contains(text, "msisdn") || strings.Contains(text, "subscriber"):
		return dErrors.CodeInvalidMSISDN, true
	case strings.Contains(text, "eligib") || strings.Contains(text, "barred"):
		return dErrors.CodeEligibilityFailed, true
	case strings.Contains(text, "fraud"):
		return dErrors.CodeFraudTokenInvalid, true
	}
	return "", false
}
