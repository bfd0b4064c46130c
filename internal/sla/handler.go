package sla

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"dcbgate/internal/catalog"
	"dcbgate/internal/detect"
	"dcbgate/internal/gateway"
	"dcbgate/internal/operator"
	"dcbgate/internal/sandbox"
	"dcbgate/pkg/sentinel"
)

// Gateway is the coordinator surface the protocol layer invokes.
type Gateway interface {
	Execute(ctx context.Context, req operator.Request, actorID string) (gateway.Result, error)
}

// Sandbox is the sandbox provisioning surface.
type Sandbox interface {
	Provision(ctx context.Context, msisdn, campaign string) (sandbox.Provision, error)
	Balances(ctx context.Context, msisdn string) (sandbox.Provision, error)
}

// Handler serves the SLA v2.2 endpoint set. It extracts query parameters,
// resolves the operator, enforces the correlator rules, and delegates to the
// gateway; it never talks to adapters directly.
type Handler struct {
	gateway  Gateway
	detector *detect.Detector
	catalog  *catalog.Catalog
	sandbox  Sandbox
	logger   *slog.Logger
}

func NewHandler(gw Gateway, det *detect.Detector, cat *catalog.Catalog, sb Sandbox, logger *slog.Logger) *Handler {
	return &Handler{gateway: gw, detector: det, catalog: cat, sandbox: sb, logger: logger}
}

// Register mounts the protocol endpoints. All business endpoints are POST
// with query-string parameters, gated by Basic Auth and the IP allowlist.
func (h *Handler) Register(r chi.Router, auth *Auth, allowlist *IPAllowlist) {
	sub := chi.NewRouter()
	sub.Use(h.recoverer)
	sub.Use(allowlist.Middleware)
	sub.Use(auth.Middleware)
	sub.Use(queryOnly(h.logger))

	sub.Post("/subscription/create", h.handle(operator.OpCreateSubscription))
	sub.Post("/subscription/status", h.handle(operator.OpGetStatus))
	sub.Post("/subscription/delete", h.handle(operator.OpCancel))
	sub.Post("/subscription/activate", h.handle(operator.OpVerifyPIN))
	sub.Post("/charge", h.handle(operator.OpCharge))
	sub.Post("/refund", h.handle(operator.OpRefund))
	sub.Post("/pin", h.handle(operator.OpGeneratePIN))
	sub.Post("/eligibility", h.handle(operator.OpCheckEligibility))
	sub.Post("/sms", h.handle(operator.OpSendSMS))
	sub.Post("/sandbox/provision", h.handleSandboxProvision)
	sub.Post("/sandbox/balances", h.handleSandboxBalances)

	r.Mount("/v2.2", sub)
}

// recoverer keeps the HTTP-200-always contract even on panic: the terminal
// state always emits exactly one JSON body.
func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.ErrorContext(r.Context(), "panic in protocol handler",
					"path", r.URL.Path, "panic", rec)
				writeError(w, h.logger, Envelope{
					Category: CategoryServer, Code: "5001", Message: "internal error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handle(op operator.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := query{values: r.URL.Query()}

		req, env := h.buildRequest(q, op)
		if env != nil {
			writeError(w, h.logger, *env)
			return
		}

		result, err := h.gateway.Execute(r.Context(), req, actorFromContext(r.Context()))
		if err != nil {
			writeError(w, h.logger, MapError(err))
			return
		}
		writeSuccess(w, h.logger, successBody(op, req, result))
	}
}

// buildRequest turns query parameters into the canonical request, applying
// the protocol's parameter and correlator rules before the gateway sees it.
func (h *Handler) buildRequest(q query, op operator.Operation) (operator.Request, *Envelope) {
	msisdn, acr := q.identifier()
	if msisdn != "" && acr != "" {
		return operator.Request{}, requestErr("2001", "msisdn and acr are mutually exclusive")
	}
	if acr != "" && len(acr) != catalog.ACRLength {
		return operator.Request{}, &Envelope{CategoryRequest, "3001", "acr must be 48 characters"}
	}

	if key := q.missing(requiredParams(op)...); key != "" {
		return operator.Request{}, requestErr("2001", "missing required parameter "+key)
	}
	if needsIdentifier(op) && msisdn == "" && acr == "" && !q.has("uuid") {
		return operator.Request{}, requestErr("2001", "missing required parameter msisdn or acr")
	}
	if op == operator.OpCharge || op == operator.OpRefund {
		if !q.has("uuid") && !q.has("transaction_id") {
			return operator.Request{}, requestErr("2001", "missing required parameter uuid or transaction_id")
		}
	}

	operatorCode, env := h.resolveOperator(q, msisdn, acr)
	if env != nil {
		return operator.Request{}, env
	}

	correlator := q.get("correlator")
	if acr != "" && h.isTelenorFamily(operatorCode) && correlator == "" {
		// ACR transactions on the Telenor network require a caller-supplied
		// correlator; the adapter must never be reached without one.
		return operator.Request{}, &Envelope{CategoryRequest, "3002",
			"correlator is mandatory for acr transactions"}
	}
	if correlator == "" {
		// Every outbound billing call carries a correlator; generate one for
		// callers that did not supply their own.
		correlator = uuid.NewString()
	}

	amount := q.get("amount")
	if amount == "" {
		amount = q.get("charge")
	}

	return operator.Request{
		Operator:      operatorCode,
		Operation:     op,
		MSISDN:        msisdn,
		ACR:           acr,
		Campaign:      q.get("campaign"),
		Merchant:      q.get("merchant"),
		Amount:        amount,
		Currency:      q.get("currency"),
		PIN:           q.get("pin"),
		Template:      q.get("template"),
		Language:      q.get("language"),
		Text:          q.get("text"),
		FraudToken:    q.get("fraud_token"),
		Trial:         q.bool("trial"),
		UUID:          q.get("uuid"),
		TransactionID: q.get("transaction_id"),
		Correlator:    correlator,
		CorrelationID: q.get("correlation_id"),
	}, nil
}

// resolveOperator honors an explicit operator parameter, otherwise detects
// from the identifier and campaign. Detection failure is a caller problem:
// the gateway never guesses an operator for a billing transaction.
func (h *Handler) resolveOperator(q query, msisdn, acr string) (string, *Envelope) {
	if code := q.get("operator"); code != "" {
		return code, nil
	}
	identifier := msisdn
	if acr != "" {
		identifier = acr
	}
	if identifier == "" {
		// Reference-addressed operations (uuid/transaction_id) still need an
		// operator; require it explicitly when no identifier is present.
		if q.has("uuid") || q.has("transaction_id") {
			return "", requestErr("2001", "operator parameter is required for reference-addressed calls")
		}
		return "", requestErr("2001", "missing required parameter msisdn or acr")
	}
	code, err := h.detector.Detect(identifier, q.get("campaign"))
	if err != nil {
		return "", requestErr("2001", "unable to determine operator for identifier")
	}
	return code, nil
}

func (h *Handler) isTelenorFamily(operatorCode string) bool {
	def, err := h.catalog.Lookup(operatorCode)
	return err == nil && def.Family == "telenor"
}

func (h *Handler) handleSandboxProvision(w http.ResponseWriter, r *http.Request) {
	q := query{values: r.URL.Query()}
	if key := q.missing("msisdn"); key != "" {
		writeError(w, h.logger, *requestErr("2001", "missing required parameter "+key))
		return
	}
	p, err := h.sandbox.Provision(r.Context(), q.get("msisdn"), q.get("campaign"))
	if err != nil {
		writeError(w, h.logger, MapError(err))
		return
	}
	writeSuccess(w, h.logger, map[string]any{
		"msisdn":     p.MSISDN,
		"operator":   p.OperatorCode,
		"expires_at": p.ExpiresAt,
	})
}

func (h *Handler) handleSandboxBalances(w http.ResponseWriter, r *http.Request) {
	q := query{values: r.URL.Query()}
	if key := q.missing("msisdn"); key != "" {
		writeError(w, h.logger, *requestErr("2001", "missing required parameter "+key))
		return
	}
	p, err := h.sandbox.Balances(r.Context(), q.get("msisdn"))
	switch {
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrExpired):
		writeError(w, h.logger, *requestErr("2001", "msisdn is not provisioned"))
		return
	case err != nil:
		writeError(w, h.logger, MapError(err))
		return
	}
	writeSuccess(w, h.logger, map[string]any{
		"msisdn":     p.MSISDN,
		"operator":   p.OperatorCode,
		"balance":    p.Balance,
		"currency":   p.Currency,
		"expires_at": p.ExpiresAt,
	})
}

// requiredParams lists the minimum parameter set per operation, beyond the
// identifier rules handled separately.
func requiredParams(op operator.Operation) []string {
	switch op {
	case operator.OpCreateSubscription, operator.OpGeneratePIN, operator.OpCheckEligibility:
		return []string{"campaign", "merchant"}
	case operator.OpSendSMS:
		return []string{"campaign", "merchant", "text"}
	case operator.OpCharge, operator.OpRefund:
		return []string{"amount", "currency"}
	case operator.OpVerifyPIN:
		return []string{"pin"}
	default:
		return nil
	}
}

func needsIdentifier(op operator.Operation) bool {
	switch op {
	case operator.OpCreateSubscription, operator.OpGeneratePIN, operator.OpCheckEligibility,
		operator.OpSendSMS, operator.OpGetStatus, operator.OpCancel, operator.OpVerifyPIN:
		return true
	}
	return false
}

func requestErr(code, message string) *Envelope {
	return &Envelope{Category: CategoryRequest, Code: code, Message: message}
}

// successBody shapes the wire success fields for an operation from the
// canonical result. Empty fields are omitted.
func successBody(op operator.Operation, req operator.Request, result gateway.Result) map[string]any {
	body := map[string]any{}
	data := result.Data

	put := func(key, value string) {
		if value != "" {
			body[key] = value
		}
	}
	put("uuid", data.UUID)
	put("status", string(data.Status))
	put("amount", data.Amount)
	put("currency", data.Currency)
	put("next_payment_timestamp", data.NextBillingAt)
	put("checkout_url", data.CheckoutURL)
	put("transaction_id", data.TransactionID)
	put("delivery_id", data.DeliveryID)
	put("correlator", req.Correlator)
	put("operator", result.Meta.OperatorCode)

	switch op {
	case operator.OpGeneratePIN:
		body["pin_sent"] = data.PINSent
	case operator.OpCheckEligibility:
		body["eligible"] = data.Eligible
	}
	return body
}
