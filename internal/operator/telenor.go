package operator

import (
	"context"

	dErrors "dcbgate/pkg/domain-errors"
)

// telenorAdapter wraps the generic adapter for Telenor-family operators.
// Telenor networks substitute a 48-character ACR for the MSISDN, and the
// billing network rejects ACR transactions without a caller-supplied
// correlator, so the adapter refuses to build such a call at all. The
// protocol layer enforces the same rule earlier; this check guards direct
// (non-SLA) callers of the registry.
type telenorAdapter struct {
	*genericAdapter
}

func newTelenorAdapter(g *genericAdapter) *telenorAdapter {
	return &telenorAdapter{genericAdapter: g}
}

func (a *telenorAdapter) requireCorrelator(req Request) error {
	if req.ACR != "" && req.Correlator == "" {
		return dErrors.New(dErrors.CodeMissingCorrelator,
			"correlator is mandatory for acr transactions on "+a.def.Code)
	}
	return nil
}

func (a *telenorAdapter) CreateSubscription(ctx context.Context, req Request) (Result, error) {
	if err := a.requireCorrelator(req); err != nil {
		return Result{}, err
	}
	return a.genericAdapter.CreateSubscription(ctx, req)
}

func (a *telenorAdapter) GeneratePIN(ctx context.Context, req Request) (Result, error) {
	if err := a.requireCorrelator(req); err != nil {
		return Result{}, err
	}
	return a.genericAdapter.GeneratePIN(ctx, req)
}

func (a *telenorAdapter) Charge(ctx context.Context, req Request) (Result, error) {
	if err := a.requireCorrelator(req); err != nil {
		return Result{}, err
	}
	return a.genericAdapter.Charge(ctx, req)
}

func (a *telenorAdapter) CheckEligibility(ctx context.Context, req Request) (Result, error) {
	if err := a.requireCorrelator(req); err != nil {
		return Result{}, err
	}
	return a.genericAdapter.CheckEligibility(ctx, req)
}
