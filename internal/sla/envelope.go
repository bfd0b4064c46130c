// Package sla implements the externally-fixed SLA Digital v2.2 wire protocol:
// POST-only business endpoints, parameters in the URL query string only, and
// HTTP 200 on every response with success or error expressed solely in the
// JSON body. These rules are an external compliance contract and must not be
// "fixed" toward conventional REST semantics.
package sla

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "dcbgate/pkg/domain-errors"
)

// Category is the SLA v2.2 error category.
type Category string

const (
	CategoryAuthorization Category = "Authorization"
	CategoryRequest       Category = "Request"
	CategoryService       Category = "Service"
	CategoryServer        Category = "Server"
	CategorySecurity      Category = "Security"
)

// Envelope is the wire-format error body. Only the protocol layer constructs
// it; adapters and the gateway never see wire categories or 4-digit codes.
type Envelope struct {
	Category Category `json:"category"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

type errorBody struct {
	Error Envelope `json:"error"`
}

// Fixed auth/protocol envelopes.
var (
	envMissingCredentials = Envelope{CategoryAuthorization, "1001", "missing or malformed authorization header"}
	envInvalidCredentials = Envelope{CategoryAuthorization, "1002", "invalid credentials"}
	envIPNotAllowed       = Envelope{CategoryAuthorization, "1003", "caller address not whitelisted"}
)

// wireTable maps the internal taxonomy onto the fixed wire codes, 1:1 per
// entry. Codes not listed fall through to Server/5001.
var wireTable = map[dErrors.Code]Envelope{
	dErrors.CodeValidation:           {Category: CategoryRequest, Code: "2001"},
	dErrors.CodeInvalidMSISDN:        {Category: CategoryRequest, Code: "2001"},
	dErrors.CodeInvalidACR:           {Category: CategoryRequest, Code: "3001"},
	dErrors.CodeMissingCorrelator:    {Category: CategoryRequest, Code: "3002"},
	dErrors.CodeOperatorDisabled:     {Category: CategoryService, Code: "5002"},
	dErrors.CodeOperatorNotFound:     {Category: CategoryService, Code: "5002"},
	dErrors.CodeFeatureNotSupported:  {Category: CategoryService, Code: "5002"},
	dErrors.CodeInsufficientFunds:    {Category: CategoryService, Code: "2015"},
	dErrors.CodeSubscriptionExists:   {Category: CategoryService, Code: "2032"},
	dErrors.CodeSubscriptionNotFound: {Category: CategoryRequest, Code: "2052"},
	dErrors.CodeInvalidPIN:           {Category: CategoryRequest, Code: "4001"},
	dErrors.CodePINExpired:           {Category: CategoryRequest, Code: "4002"},
	dErrors.CodePINAttemptsExceeded:  {Category: CategoryRequest, Code: "4003"},
	dErrors.CodeFraudTokenInvalid:    {Category: CategorySecurity, Code: "4003"},
	dErrors.CodeEligibilityFailed:    {Category: CategoryService, Code: "2004"},
	dErrors.CodeChargeLimitExceeded:  {Category: CategoryRequest, Code: "2003"},
	dErrors.CodeUnauthorized:         {Category: CategoryAuthorization, Code: "1002"},
	dErrors.CodeOperatorError:        {Category: CategoryServer, Code: "5001"},
	dErrors.CodeInternal:             {Category: CategoryServer, Code: "5001"},
}

// MapError translates a domain error into its wire envelope. The category and
// code come from the table; the message is the domain error's own, so
// operator context never changes the wire code.
func MapError(err error) Envelope {
	env, ok := wireTable[dErrors.CodeOf(err)]
	if !ok {
		env = Envelope{Category: CategoryServer, Code: "5001"}
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		env.Message = de.Message
	} else {
		env.Message = "internal error"
	}
	return env
}

// writeSuccess emits the operation's success fields with HTTP 200.
func writeSuccess(w http.ResponseWriter, logger *slog.Logger, body map[string]any) {
	writeJSON(w, logger, body)
}

// writeError emits an error envelope — also with HTTP 200, per the protocol.
func writeError(w http.ResponseWriter, logger *slog.Logger, env Envelope) {
	writeJSON(w, logger, errorBody{Error: env})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}
