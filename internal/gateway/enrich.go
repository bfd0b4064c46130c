package gateway

import (
	"context"

	"dcbgate/internal/operator"
)

// Enricher resolves subscriber-identifying network headers for operations
// that legally require them (create, charge, eligibility). It is an external
// collaborator; enrichment failure is logged and the call proceeds with the
// explicitly supplied identifier.
type Enricher interface {
	// Enrich may fill in or replace the identifier on the request, e.g. from
	// carrier header-enrichment lookups. It must respect ctx deadlines.
	Enrich(ctx context.Context, req *operator.Request) error
}

// NoopEnricher is used when no header-enrichment collaborator is configured.
type NoopEnricher struct{}

func (NoopEnricher) Enrich(context.Context, *operator.Request) error { return nil }

// operationsNeedingEnrichment are the ones that carry subscriber-identifying
// network headers on the billing network.
var operationsNeedingEnrichment = map[operator.Operation]bool{
	operator.OpCreateSubscription: true,
	operator.OpCharge:             true,
	operator.OpCheckEligibility:   true,
}
