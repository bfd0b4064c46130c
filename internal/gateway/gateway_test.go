package gateway

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"dcbgate/internal/audit"
	auditmemory "dcbgate/internal/audit/store/memory"
	"dcbgate/internal/catalog"
	"dcbgate/internal/gateway/metrics"
	"dcbgate/internal/operator"
	"dcbgate/internal/registry"
	registrymemory "dcbgate/internal/registry/store/memory"
	dErrors "dcbgate/pkg/domain-errors"
)

// spyAdapter records invocations and replays a scripted outcome.
type spyAdapter struct {
	code    string
	def     *catalog.Definition
	calls   int
	lastReq operator.Request
	result  operator.Result
	err     error
}

func (s *spyAdapter) Code() string                    { return s.code }
func (s *spyAdapter) Definition() *catalog.Definition { return s.def }

func (s *spyAdapter) invoke(req operator.Request) (operator.Result, error) {
	s.calls++
	s.lastReq = req
	return s.result, s.err
}

func (s *spyAdapter) CreateSubscription(_ context.Context, req operator.Request) (operator.Result, error) {
	return s.invoke(req)
}
func (s *spyAdapter) GetSubscriptionStatus(_ context.Context, req operator.Request) (operator.Result, error) {
	return s.invoke(req)
}
func (s *spyAdapter) CancelSubscription(_ context.Context, req operator.Request) (operator.Result, error) {
	return s.invoke(req)
}
func (s *spyAdapter) GeneratePIN(_ context.Context, req operator.Request) (operator.Result, error) {
	return s.invoke(req)
}
func (s *spyAdapter) VerifyPIN(_ context.Context, req operator.Request) (operator.Result, error) {
	return s.invoke(req)
}
func (s *spyAdapter) CheckEligibility(_ context.Context, req operator.Request) (operator.Result, error) {
	return s.invoke(req)
}
func (s *spyAdapter) Charge(_ context.Context, req operator.Request) (operator.Result, error) {
	return s.invoke(req)
}
func (s *spyAdapter) Refund(_ context.Context, req operator.Request) (operator.Result, error) {
	return s.invoke(req)
}
func (s *spyAdapter) SendSMS(_ context.Context, req operator.Request) (operator.Result, error) {
	return s.invoke(req)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

type fixture struct {
	gateway *Gateway
	reg     *registry.Registry
	spy     *spyAdapter
	records *auditmemory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	def, err := catalog.New().Lookup("zain-kw")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	spy := &spyAdapter{
		code:   "zain-kw",
		def:    def,
		result: operator.Result{UUID: "sub-1", Status: operator.StatusActive},
	}

	records := auditmemory.New()
	publisher := audit.NewPublisher(records, audit.WithLogger(testLogger()))

	reg, err := registry.New(context.Background(),
		map[string]operator.Adapter{"zain-kw": spy},
		registrymemory.New(),
		registry.WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}

	gw := New(reg,
		WithLogger(testLogger()),
		WithAuditPublisher(publisher),
	)
	return &fixture{gateway: gw, reg: reg, spy: spy, records: records}
}

func createReq() operator.Request {
	return operator.Request{
		Operator:   "zain-kw",
		Operation:  operator.OpCreateSubscription,
		MSISDN:     "+96555512345",
		Campaign:   "zain-promo",
		Merchant:   "partner:acme",
		Correlator: "corr-1",
	}
}

func TestDisabledOperatorNeverReachesAdapter(t *testing.T) {
	f := newFixture(t)

	_, err := f.gateway.Execute(context.Background(), createReq(), "merchant-1")
	if !dErrors.HasCode(err, dErrors.CodeOperatorDisabled) {
		t.Fatalf("expected CodeOperatorDisabled, got %v", err)
	}
	if f.spy.calls != 0 {
		t.Fatalf("disabled operator must make zero adapter calls, got %d", f.spy.calls)
	}

	// The rejection is still audited.
	records := f.records.All()
	if len(records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(records))
	}
	if records[0].Success || records[0].ErrorCode != string(dErrors.CodeOperatorDisabled) {
		t.Fatalf("unexpected audit record: %+v", records[0])
	}
}

func TestUnknownOperatorDistinctFromDisabled(t *testing.T) {
	f := newFixture(t)

	req := createReq()
	req.Operator = "ghost-op"
	_, err := f.gateway.Execute(context.Background(), req, "merchant-1")
	if !dErrors.HasCode(err, dErrors.CodeOperatorNotFound) {
		t.Fatalf("expected CodeOperatorNotFound, got %v", err)
	}
}

func TestExecuteSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.reg.Enable(ctx, "zain-kw", "ops", ""); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	res, err := f.gateway.Execute(ctx, createReq(), "merchant-1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success || res.Data.UUID != "sub-1" || res.Data.Status != operator.StatusActive {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Meta.OperatorCode != "zain-kw" || res.Meta.CorrelationID == "" {
		t.Fatalf("metadata incomplete: %+v", res.Meta)
	}
	if f.spy.calls != 1 {
		t.Fatalf("expected exactly one adapter call, got %d", f.spy.calls)
	}
}

func TestExactlyOneAuditRecordPerInvocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.reg.Enable(ctx, "zain-kw", "ops", ""); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	auditBaseline := len(f.records.All()) // the enable itself is not audited here (no publisher on registry)

	// Success.
	if _, err := f.gateway.Execute(ctx, createReq(), "merchant-1"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := len(f.records.All()) - auditBaseline; got != 1 {
		t.Fatalf("success must emit exactly 1 record, got %d", got)
	}

	// Adapter failure.
	f.spy.err = dErrors.New(dErrors.CodeInsufficientFunds, "no funds")
	if _, err := f.gateway.Execute(ctx, createReq(), "merchant-1"); err == nil {
		t.Fatalf("expected failure")
	}
	if got := len(f.records.All()) - auditBaseline; got != 2 {
		t.Fatalf("failure must emit exactly 1 record, got %d total", got)
	}

	all := f.records.All()
	latest := all[len(all)-1]
	if latest.Success || latest.ErrorCode != string(dErrors.CodeInsufficientFunds) {
		t.Fatalf("failure record wrong: %+v", latest)
	}
}

func TestAuditMasksSensitiveParams(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.reg.Enable(ctx, "zain-kw", "ops", ""); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	req := createReq()
	req.Operation = operator.OpVerifyPIN
	req.UUID = "sub-1"
	req.PIN = "12345"
	if _, err := f.gateway.Execute(ctx, req, "merchant-1"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	record := f.records.All()[0]
	if record.MaskedParams["pin"] != "***" {
		t.Fatalf("pin must be masked: %+v", record.MaskedParams)
	}
	masked := record.MaskedParams["msisdn"]
	if masked == req.MSISDN || !strings.HasPrefix(masked, "+965") || !strings.HasSuffix(masked, "45") {
		t.Fatalf("msisdn mask wrong: %q", masked)
	}
	if strings.Contains(masked, "5551234") {
		t.Fatalf("msisdn insufficiently masked: %q", masked)
	}
}

func TestValidationFailureSkipsAdapter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.reg.Enable(ctx, "zain-kw", "ops", ""); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	req := createReq()
	req.Campaign = ""
	_, err := f.gateway.Execute(ctx, req, "merchant-1")
	if !dErrors.HasCode(err, dErrors.CodeValidation) {
		t.Fatalf("expected CodeValidation, got %v", err)
	}
	if f.spy.calls != 0 {
		t.Fatalf("invalid request must not reach the adapter")
	}
}

type rewritingEnricher struct{ acr string }

func (e rewritingEnricher) Enrich(_ context.Context, req *operator.Request) error {
	req.MSISDN = ""
	req.ACR = e.acr
	return nil
}

func TestEnrichmentAppliesToCreateOnly(t *testing.T) {
	def, _ := catalog.New().Lookup("zain-kw")
	spy := &spyAdapter{code: "zain-kw", def: def, result: operator.Result{UUID: "sub-1"}}
	reg, err := registry.New(context.Background(),
		map[string]operator.Adapter{"zain-kw": spy},
		registrymemory.New(), registry.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	ctx := context.Background()
	if err := reg.Enable(ctx, "zain-kw", "ops", ""); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	acr := strings.Repeat("e", catalog.ACRLength)
	gw := New(reg, WithLogger(testLogger()), WithEnricher(rewritingEnricher{acr: acr}))

	if _, err := gw.Execute(ctx, createReq(), "m"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if spy.lastReq.ACR != acr || spy.lastReq.MSISDN != "" {
		t.Fatalf("create was not enriched: %+v", spy.lastReq)
	}

	// Status lookups are reference-addressed and never enriched.
	req := operator.Request{
		Operator: "zain-kw", Operation: operator.OpGetStatus, UUID: "sub-1",
	}
	if _, err := gw.Execute(ctx, req, "m"); err != nil {
		t.Fatalf("Execute status: %v", err)
	}
	if spy.lastReq.ACR != "" {
		t.Fatalf("status lookup must not be enriched: %+v", spy.lastReq)
	}
	if spy.calls != 2 {
		t.Fatalf("expected 2 adapter calls, got %d", spy.calls)
	}
}

func TestDisabledRejectionMetricSkipsUnknownOperators(t *testing.T) {
	def, err := catalog.New().Lookup("zain-kw")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	spy := &spyAdapter{code: "zain-kw", def: def}
	reg, err := registry.New(context.Background(),
		map[string]operator.Adapter{"zain-kw": spy},
		registrymemory.New(), registry.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}

	m := metrics.New()
	gw := New(reg, WithLogger(testLogger()), WithMetrics(m))
	ctx := context.Background()

	// Unknown operator: not a disabled rejection.
	req := createReq()
	req.Operator = "ghost-op"
	if _, err := gw.Execute(ctx, req, "m"); !dErrors.HasCode(err, dErrors.CodeOperatorNotFound) {
		t.Fatalf("expected CodeOperatorNotFound, got %v", err)
	}
	if got := testutil.ToFloat64(m.DisabledRejected.WithLabelValues("ghost-op")); got != 0 {
		t.Fatalf("unknown operator counted as disabled rejection: %v", got)
	}

	// Genuinely disabled operator: counted.
	if _, err := gw.Execute(ctx, createReq(), "m"); !dErrors.HasCode(err, dErrors.CodeOperatorDisabled) {
		t.Fatalf("expected CodeOperatorDisabled, got %v", err)
	}
	if got := testutil.ToFloat64(m.DisabledRejected.WithLabelValues("zain-kw")); got != 1 {
		t.Fatalf("disabled rejection not counted: %v", got)
	}
}

func TestCorrelationIDGeneratedWhenMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.reg.Enable(ctx, "zain-kw", "ops", ""); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	req := createReq()
	req.CorrelationID = ""
	res, err := f.gateway.Execute(ctx, req, "m")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Meta.CorrelationID == "" {
		t.Fatalf("correlation id must be generated")
	}

	record := f.records.All()[0]
	if record.CorrelationID != res.Meta.CorrelationID {
		t.Fatalf("audit and response correlation ids diverge")
	}
}
