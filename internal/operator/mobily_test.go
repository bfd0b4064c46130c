package operator

import (
	"context"
	"testing"

	dErrors "dcbgate/pkg/domain-errors"
)

// scriptedTransport answers per endpoint, for flows that hit more than one.
type scriptedTransport struct {
	calls     []transportCall
	responses map[string]map[string]any
	errs      map[string]error
}

func (s *scriptedTransport) Post(_ context.Context, endpoint string, params map[string]string) (map[string]any, error) {
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	s.calls = append(s.calls, transportCall{endpoint: endpoint, params: copied})
	if err := s.errs[endpoint]; err != nil {
		return nil, err
	}
	return s.responses[endpoint], nil
}

func TestMobilyFetchesFraudTokenBeforePIN(t *testing.T) {
	tr := &scriptedTransport{responses: map[string]map[string]any{
		mobilyFraudTokenEndpoint: {"fraud_token": "ft-123"},
		"v2.2/pin":               {"uuid": "sub-1"},
	}}
	a := buildAdapter(t, "mobily-sa", tr)

	res, err := a.GeneratePIN(context.Background(), Request{
		MSISDN: "541234567", Campaign: "c", Merchant: "m",
	})
	if err != nil {
		t.Fatalf("GeneratePIN: %v", err)
	}
	if !res.PINSent {
		t.Fatalf("expected PINSent")
	}

	if len(tr.calls) != 2 {
		t.Fatalf("expected fraud token fetch then pin call, got %d calls", len(tr.calls))
	}
	if tr.calls[0].endpoint != mobilyFraudTokenEndpoint {
		t.Fatalf("first call must mint the fraud token, got %q", tr.calls[0].endpoint)
	}
	if tr.calls[1].params["fraud_token"] != "ft-123" {
		t.Fatalf("minted token not forwarded: %q", tr.calls[1].params["fraud_token"])
	}
}

func TestMobilySkipsFetchWhenTokenSupplied(t *testing.T) {
	tr := &scriptedTransport{responses: map[string]map[string]any{
		"v2.2/pin": {"uuid": "sub-1"},
	}}
	a := buildAdapter(t, "mobily-sa", tr)

	_, err := a.GeneratePIN(context.Background(), Request{
		MSISDN: "541234567", Campaign: "c", Merchant: "m", FraudToken: "caller-token",
	})
	if err != nil {
		t.Fatalf("GeneratePIN: %v", err)
	}
	if len(tr.calls) != 1 {
		t.Fatalf("expected a single pin call, got %d", len(tr.calls))
	}
	if tr.calls[0].params["fraud_token"] != "caller-token" {
		t.Fatalf("caller token not forwarded")
	}
}

func TestMobilyEmptyFraudTokenFails(t *testing.T) {
	tr := &scriptedTransport{responses: map[string]map[string]any{
		mobilyFraudTokenEndpoint: {},
	}}
	a := buildAdapter(t, "mobily-sa", tr)

	_, err := a.GeneratePIN(context.Background(), Request{
		MSISDN: "541234567", Campaign: "c", Merchant: "m",
	})
	if !dErrors.HasCode(err, dErrors.CodeFraudTokenInvalid) {
		t.Fatalf("expected CodeFraudTokenInvalid, got %v", err)
	}
	if len(tr.calls) != 1 {
		t.Fatalf("pin endpoint must not be called without a token, got %d calls", len(tr.calls))
	}
}

func TestMobilyFraudTokenFetchErrorPropagates(t *testing.T) {
	tr := &scriptedTransport{
		responses: map[string]map[string]any{},
		errs: map[string]error{
			mobilyFraudTokenEndpoint: &NativeError{Code: "FRAUD_CHECK_FAILED", Message: "rejected"},
		},
	}
	a := buildAdapter(t, "mobily-sa", tr)

	_, err := a.GeneratePIN(context.Background(), Request{
		MSISDN: "541234567", Campaign: "c", Merchant: "m",
	})
	if !dErrors.HasCode(err, dErrors.CodeFraudTokenInvalid) {
		t.Fatalf("expected CodeFraudTokenInvalid via error table, got %v", err)
	}
}
