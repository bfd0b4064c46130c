package operator

import (
	"context"

	dErrors "dcbgate/pkg/domain-errors"
)

// mobilyAdapter wraps the generic adapter for Mobily, whose PIN flow requires
// a fraud token minted by the operator immediately before the PIN request.
// When the caller does not supply one the adapter fetches it; the extra call
// runs under the same profile timeout and its failure is a real failure, not
// something to paper over with a token-less request.
type mobilyAdapter struct {
	*genericAdapter
}

const mobilyFraudTokenEndpoint = "v2.2/fraud/token"

func newMobilyAdapter(g *genericAdapter) *mobilyAdapter {
	return &mobilyAdapter{genericAdapter: g}
}

func (a *mobilyAdapter) GeneratePIN(ctx context.Context, req Request) (Result, error) {
	if req.FraudToken == "" {
		token, err := a.fetchFraudToken(ctx, req)
		if err != nil {
			return Result{}, err
		}
		req.FraudToken = token
	}
	return a.genericAdapter.GeneratePIN(ctx, req)
}

func (a *mobilyAdapter) fetchFraudToken(ctx context.Context, req Request) (string, error) {
	params, err := a.subscriberParams(req)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, a.profile.Timeout)
	defer cancel()

	native, err := a.transport.Post(ctx, mobilyFraudTokenEndpoint, params)
	if err != nil {
		return "", a.translateError(err)
	}
	token := str(native, "fraud_token", "token")
	if token == "" {
		return "", dErrors.New(dErrors.CodeFraudTokenInvalid, "mobily-sa returned no fraud token")
	}
	return token, nil
}
