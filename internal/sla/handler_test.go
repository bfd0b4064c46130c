package sla

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"dcbgate/internal/catalog"
	"dcbgate/internal/detect"
	"dcbgate/internal/gateway"
	"dcbgate/internal/operator"
	"dcbgate/internal/sandbox"
	dErrors "dcbgate/pkg/domain-errors"
	"dcbgate/pkg/sentinel"
)

const (
	testUser     = "merchant"
	testPassword = "s3cret"
)

type executedCall struct {
	req   operator.Request
	actor string
}

type fakeGateway struct {
	calls  []executedCall
	result gateway.Result
	err    error
}

func (f *fakeGateway) Execute(_ context.Context, req operator.Request, actorID string) (gateway.Result, error) {
	f.calls = append(f.calls, executedCall{req: req, actor: actorID})
	if f.err != nil {
		return gateway.Result{}, f.err
	}
	res := f.result
	res.Meta.OperatorCode = req.Operator
	return res, nil
}

type fakeSandbox struct {
	provision sandbox.Provision
	err       error
}

func (f *fakeSandbox) Provision(context.Context, string, string) (sandbox.Provision, error) {
	return f.provision, f.err
}

func (f *fakeSandbox) Balances(context.Context, string) (sandbox.Provision, error) {
	return f.provision, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newRouter(t *testing.T, gw Gateway, sb Sandbox, cidrs []string) http.Handler {
	t.Helper()
	logger := testLogger()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	auth := NewAuth(testUser, string(hash), logger)

	allowlist, err := NewIPAllowlist(cidrs, logger)
	if err != nil {
		t.Fatalf("allowlist: %v", err)
	}

	cat := catalog.New()
	if sb == nil {
		sb = &fakeSandbox{}
	}
	h := NewHandler(gw, detect.New(cat), cat, sb, logger)

	r := chi.NewRouter()
	h.Register(r, auth, allowlist)
	return r
}

func doPost(t *testing.T, router http.Handler, path string, params url.Values, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path+"?"+params.Encode(), nil)
	if authed {
		req.SetBasicAuth(testUser, testPassword)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type wireResponse struct {
	Error  *Envelope      `json:"error"`
	Fields map[string]any `json:"-"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) wireResponse {
	t.Helper()
	var resp wireResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	resp.Fields = map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp.Fields)
	return resp
}

func createParams() url.Values {
	return url.Values{
		"msisdn":   {"+96555512345"},
		"campaign": {"campaign:zain-promo"},
		"merchant": {"partner:acme"},
	}
}

func TestEveryResponseIsHTTP200(t *testing.T) {
	gw := &fakeGateway{result: gateway.Result{Success: true}}
	router := newRouter(t, gw, nil, nil)

	// Success.
	if rec := doPost(t, router, "/v2.2/subscription/create", createParams(), true); rec.Code != http.StatusOK {
		t.Fatalf("success: expected 200, got %d", rec.Code)
	}
	// Validation error.
	if rec := doPost(t, router, "/v2.2/subscription/create", url.Values{}, true); rec.Code != http.StatusOK {
		t.Fatalf("validation error: expected 200, got %d", rec.Code)
	}
	// Auth failure.
	if rec := doPost(t, router, "/v2.2/subscription/create", createParams(), false); rec.Code != http.StatusOK {
		t.Fatalf("auth failure: expected 200, got %d", rec.Code)
	}
	// Gateway failure.
	gw.err = dErrors.New(dErrors.CodeInsufficientFunds, "no funds")
	if rec := doPost(t, router, "/v2.2/subscription/create", createParams(), true); rec.Code != http.StatusOK {
		t.Fatalf("gateway failure: expected 200, got %d", rec.Code)
	}
}

func TestMissingCredentials(t *testing.T) {
	router := newRouter(t, &fakeGateway{}, nil, nil)
	rec := doPost(t, router, "/v2.2/subscription/create", createParams(), false)
	resp := decode(t, rec)
	if resp.Error == nil || resp.Error.Category != CategoryAuthorization || resp.Error.Code != "1001" {
		t.Fatalf("expected Authorization/1001, got %+v", resp.Error)
	}
}

func TestInvalidCredentials(t *testing.T) {
	router := newRouter(t, &fakeGateway{}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/v2.2/subscription/create?"+createParams().Encode(), nil)
	req.SetBasicAuth(testUser, "wrong-password")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	resp := decode(t, rec)
	if resp.Error == nil || resp.Error.Code != "1002" {
		t.Fatalf("expected Authorization/1002, got %+v", resp.Error)
	}
}

func TestIPAllowlist(t *testing.T) {
	gw := &fakeGateway{result: gateway.Result{Success: true}}

	// Out of range: httptest requests originate from 192.0.2.1.
	router := newRouter(t, gw, nil, []string{"10.0.0.0/8"})
	rec := doPost(t, router, "/v2.2/subscription/create", createParams(), true)
	resp := decode(t, rec)
	if resp.Error == nil || resp.Error.Code != "1003" {
		t.Fatalf("expected Authorization/1003, got %+v", resp.Error)
	}
	if len(gw.calls) != 0 {
		t.Fatalf("rejected caller must not reach the gateway")
	}

	// In range passes.
	router = newRouter(t, gw, nil, []string{"192.0.2.0/24"})
	rec = doPost(t, router, "/v2.2/subscription/create", createParams(), true)
	if resp := decode(t, rec); resp.Error != nil {
		t.Fatalf("allowed caller rejected: %+v", resp.Error)
	}
}

func TestBodyParametersRejected(t *testing.T) {
	gw := &fakeGateway{}
	router := newRouter(t, gw, nil, nil)

	req := httptest.NewRequest(http.MethodPost,
		"/v2.2/subscription/create?"+createParams().Encode(),
		strings.NewReader(`{"msisdn":"+96555512345"}`))
	req.SetBasicAuth(testUser, testPassword)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	resp := decode(t, rec)
	if resp.Error == nil || resp.Error.Category != CategoryRequest || resp.Error.Code != "2001" {
		t.Fatalf("expected Request/2001 for body params, got %+v", resp.Error)
	}
	if !strings.Contains(resp.Error.Message, "query string") {
		t.Fatalf("message should point at the query-string rule: %q", resp.Error.Message)
	}
	if len(gw.calls) != 0 {
		t.Fatalf("body rejection must not reach the gateway")
	}
}

func TestOperatorDetectedFromMSISDN(t *testing.T) {
	gw := &fakeGateway{result: gateway.Result{Success: true}}
	router := newRouter(t, gw, nil, nil)

	doPost(t, router, "/v2.2/subscription/create", createParams(), true)
	if len(gw.calls) != 1 {
		t.Fatalf("expected one gateway call, got %d", len(gw.calls))
	}
	got := gw.calls[0]
	if got.req.Operator != "zain-kw" {
		t.Fatalf("expected detected operator zain-kw, got %q", got.req.Operator)
	}
	if got.req.Operation != operator.OpCreateSubscription {
		t.Fatalf("wrong operation: %q", got.req.Operation)
	}
	if got.actor != testUser {
		t.Fatalf("actor should be the authenticated username, got %q", got.actor)
	}
}

func TestExplicitOperatorParamWins(t *testing.T) {
	gw := &fakeGateway{result: gateway.Result{Success: true}}
	router := newRouter(t, gw, nil, nil)

	params := createParams()
	params.Set("operator", "stc-kw")
	doPost(t, router, "/v2.2/subscription/create", params, true)
	if gw.calls[0].req.Operator != "stc-kw" {
		t.Fatalf("explicit operator param must win, got %q", gw.calls[0].req.Operator)
	}
}

func TestUndetectableOperatorRejected(t *testing.T) {
	gw := &fakeGateway{}
	router := newRouter(t, gw, nil, nil)

	params := createParams()
	params.Set("msisdn", "+70123456789")
	params.Set("campaign", "nothing-here")
	rec := doPost(t, router, "/v2.2/subscription/create", params, true)
	resp := decode(t, rec)
	if resp.Error == nil || resp.Error.Code != "2001" {
		t.Fatalf("expected Request/2001 for undetectable operator, got %+v", resp.Error)
	}
	if len(gw.calls) != 0 {
		t.Fatalf("undetectable operator must not reach the gateway")
	}
}

func TestTelenorACRRequiresCorrelatorBeforeGateway(t *testing.T) {
	gw := &fakeGateway{}
	router := newRouter(t, gw, nil, nil)

	params := url.Values{
		"acr":      {strings.Repeat("x", catalog.ACRLength)},
		"operator": {"telenor-no"},
		"campaign": {"campaign:tv"},
		"merchant": {"partner:acme"},
	}
	rec := doPost(t, router, "/v2.2/subscription/create", params, true)
	resp := decode(t, rec)
	if resp.Error == nil || resp.Error.Category != CategoryRequest || resp.Error.Code != "3002" {
		t.Fatalf("expected Request/3002, got %+v", resp.Error)
	}
	if len(gw.calls) != 0 {
		t.Fatalf("missing correlator must be rejected before the gateway")
	}

	// Supplying the correlator lets the call through.
	params.Set("correlator", "corr-1")
	doPost(t, router, "/v2.2/subscription/create", params, true)
	if len(gw.calls) != 1 {
		t.Fatalf("expected the corrected call to reach the gateway")
	}
	if gw.calls[0].req.Correlator != "corr-1" {
		t.Fatalf("correlator not forwarded: %q", gw.calls[0].req.Correlator)
	}
}

func TestCorrelatorGeneratedForNonACRCalls(t *testing.T) {
	gw := &fakeGateway{result: gateway.Result{Success: true}}
	router := newRouter(t, gw, nil, nil)

	doPost(t, router, "/v2.2/subscription/create", createParams(), true)
	doPost(t, router, "/v2.2/subscription/create", createParams(), true)

	if len(gw.calls) != 2 {
		t.Fatalf("expected two gateway calls")
	}
	first, second := gw.calls[0].req.Correlator, gw.calls[1].req.Correlator
	if first == "" || second == "" {
		t.Fatalf("correlators must always be set")
	}
	if first == second {
		t.Fatalf("distinct requests must get distinct correlators")
	}
}

func TestDomainErrorsMapToWireCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category Category
		code     string
	}{
		{"invalid pin", dErrors.New(dErrors.CodeInvalidPIN, "pin must be 5 digits"), CategoryRequest, "4001"},
		{"pin expired", dErrors.New(dErrors.CodePINExpired, "expired"), CategoryRequest, "4002"},
		{"pin attempts", dErrors.New(dErrors.CodePINAttemptsExceeded, "too many"), CategoryRequest, "4003"},
		{"insufficient funds", dErrors.New(dErrors.CodeInsufficientFunds, "no funds"), CategoryService, "2015"},
		{"subscription exists", dErrors.New(dErrors.CodeSubscriptionExists, "dup"), CategoryService, "2032"},
		{"subscription not found", dErrors.New(dErrors.CodeSubscriptionNotFound, "gone"), CategoryRequest, "2052"},
		{"operator disabled", dErrors.New(dErrors.CodeOperatorDisabled, "off"), CategoryService, "5002"},
		{"fraud token", dErrors.New(dErrors.CodeFraudTokenInvalid, "bad token"), CategorySecurity, "4003"},
		{"charge limit", dErrors.New(dErrors.CodeChargeLimitExceeded, "too much"), CategoryRequest, "2003"},
		{"operator failure", dErrors.New(dErrors.CodeOperatorError, "downstream"), CategoryServer, "5001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{err: tt.err}
			router := newRouter(t, gw, nil, nil)

			rec := doPost(t, router, "/v2.2/subscription/create", createParams(), true)
			resp := decode(t, rec)
			if resp.Error == nil || resp.Error.Category != tt.category || resp.Error.Code != tt.code {
				t.Fatalf("got %+v, want %s/%s", resp.Error, tt.category, tt.code)
			}
		})
	}
}

func TestWireCodeIndependentOfOperator(t *testing.T) {
	// The same taxonomy code maps to the same wire code whatever operator
	// produced it.
	for _, op := range []string{"zain-kw", "etisalat-ae"} {
		gw := &fakeGateway{err: dErrors.New(dErrors.CodeInvalidPIN, "native INVALID_PIN_FORMAT from "+op)}
		router := newRouter(t, gw, nil, nil)

		params := createParams()
		params.Set("operator", op)
		rec := doPost(t, router, "/v2.2/subscription/create", params, true)
		resp := decode(t, rec)
		if resp.Error == nil || resp.Error.Category != CategoryRequest || resp.Error.Code != "4001" {
			t.Fatalf("%s: got %+v, want Request/4001", op, resp.Error)
		}
	}
}

func TestMissingRequiredParameter(t *testing.T) {
	gw := &fakeGateway{}
	router := newRouter(t, gw, nil, nil)

	params := createParams()
	params.Del("merchant")
	rec := doPost(t, router, "/v2.2/subscription/create", params, true)
	resp := decode(t, rec)
	if resp.Error == nil || resp.Error.Code != "2001" {
		t.Fatalf("expected Request/2001, got %+v", resp.Error)
	}
	if !strings.Contains(resp.Error.Message, "merchant") {
		t.Fatalf("message should name the missing parameter: %q", resp.Error.Message)
	}
}

func TestChargeRequiresReference(t *testing.T) {
	gw := &fakeGateway{result: gateway.Result{Success: true}}
	router := newRouter(t, gw, nil, nil)

	params := url.Values{"amount": {"3"}, "currency": {"KWD"}, "operator": {"zain-kw"}}
	rec := doPost(t, router, "/v2.2/charge", params, true)
	resp := decode(t, rec)
	if resp.Error == nil || resp.Error.Code != "2001" {
		t.Fatalf("expected Request/2001 without reference, got %+v", resp.Error)
	}

	params.Set("uuid", "sub-1")
	rec = doPost(t, router, "/v2.2/charge", params, true)
	if resp := decode(t, rec); resp.Error != nil {
		t.Fatalf("charge with uuid rejected: %+v", resp.Error)
	}
}

func TestSuccessBody(t *testing.T) {
	gw := &fakeGateway{result: gateway.Result{
		Success: true,
		Data: operator.Result{
			UUID:   "sub-1",
			Status: operator.StatusActive,
			Amount: "3.0",
		},
	}}
	router := newRouter(t, gw, nil, nil)

	rec := doPost(t, router, "/v2.2/subscription/create", createParams(), true)
	resp := decode(t, rec)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if resp.Fields["uuid"] != "sub-1" || resp.Fields["status"] != "active" {
		t.Fatalf("success body incomplete: %+v", resp.Fields)
	}
	if resp.Fields["operator"] != "zain-kw" {
		t.Fatalf("operator missing from body: %+v", resp.Fields)
	}
}

func TestSandboxEndpoints(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	sb := &fakeSandbox{provision: sandbox.Provision{
		MSISDN:       "+96555512345",
		OperatorCode: "zain-kw",
		Balance:      "100.0",
		Currency:     "KWD",
		ExpiresAt:    now.Add(4 * time.Hour),
	}}
	router := newRouter(t, &fakeGateway{}, sb, nil)

	params := url.Values{"msisdn": {"+96555512345"}}
	rec := doPost(t, router, "/v2.2/sandbox/provision", params, true)
	resp := decode(t, rec)
	if resp.Error != nil || resp.Fields["operator"] != "zain-kw" {
		t.Fatalf("provision failed: %+v %+v", resp.Error, resp.Fields)
	}

	rec = doPost(t, router, "/v2.2/sandbox/balances", params, true)
	resp = decode(t, rec)
	if resp.Error != nil || resp.Fields["balance"] != "100.0" {
		t.Fatalf("balances failed: %+v %+v", resp.Error, resp.Fields)
	}

	// Expired provisioning reads as a caller error, not a server one.
	sb.err = sentinel.ErrExpired
	rec = doPost(t, router, "/v2.2/sandbox/balances", params, true)
	resp = decode(t, rec)
	if resp.Error == nil || resp.Error.Code != "2001" {
		t.Fatalf("expected Request/2001 for expired sandbox msisdn, got %+v", resp.Error)
	}
}

func TestGetMethodNotRouted(t *testing.T) {
	router := newRouter(t, &fakeGateway{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/v2.2/subscription/create?"+createParams().Encode(), nil)
	req.SetBasicAuth(testUser, testPassword)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code == http.StatusOK {
		t.Fatalf("GET must not be a business endpoint, got %d", rec.Code)
	}
}
