// Package gateway is the unified entry point in front of the operator
// adapters. Execute validates the canonical request, checks enablement,
// enriches carrier headers where required, dispatches to the adapter, and
// normalizes the outcome — emitting exactly one audit record per invocation.
package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dcbgate/internal/audit"
	"dcbgate/internal/gateway/metrics"
	"dcbgate/internal/operator"
	"dcbgate/internal/registry"
	dErrors "dcbgate/pkg/domain-errors"
)

// Result is the canonical operation result returned to callers.
type Result struct {
	Success bool            `json:"success"`
	Data    operator.Result `json:"data"`
	Meta    Metadata        `json:"meta"`
}

type Metadata struct {
	OperatorCode  string `json:"operator_code"`
	DurationMs    int64  `json:"duration_ms"`
	CorrelationID string `json:"correlation_id"`
}

// Gateway coordinates a single operator invocation end to end.
type Gateway struct {
	registry *registry.Registry
	enricher Enricher
	audit    *audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger

	enrichTimeout time.Duration
}

type Option func(*Gateway)

func WithEnricher(e Enricher) Option {
	return func(g *Gateway) {
		if e != nil {
			g.enricher = e
		}
	}
}

func WithAuditPublisher(pub *audit.Publisher) Option {
	return func(g *Gateway) { g.audit = pub }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

func New(reg *registry.Registry, opts ...Option) *Gateway {
	g := &Gateway{
		registry:      reg,
		enricher:      NoopEnricher{},
		logger:        slog.Default(),
		enrichTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Execute runs one operation against one operator. Every invocation —
// success or failure — emits exactly one audit record, after the outcome is
// known. Errors always carry a taxonomy code; native operator errors are
// translated exactly once, by the adapter layer below.
func (g *Gateway) Execute(ctx context.Context, req operator.Request, actorID string) (Result, error) {
	tracer := otel.Tracer("gateway")
	ctx, span := tracer.Start(ctx, "gateway.Execute",
		trace.WithAttributes(
			attribute.String("operator", req.Operator),
			attribute.String("operation", string(req.Operation)),
		))
	defer span.End()

	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}
	start := time.Now()

	res, err := g.execute(ctx, &req)

	duration := time.Since(start)
	g.metrics.ObserveOperation(req.Operator, string(req.Operation), err == nil, duration)
	g.emitAudit(ctx, req, res, err, actorID, duration)

	if err != nil {
		g.logger.WarnContext(ctx, "operation failed",
			"operator", req.Operator,
			"operation", req.Operation,
			"error_code", string(dErrors.CodeOf(err)),
			"correlation_id", req.CorrelationID,
			"duration_ms", duration.Milliseconds(),
		)
		return Result{}, err
	}

	return Result{
		Success: true,
		Data:    res,
		Meta: Metadata{
			OperatorCode:  req.Operator,
			DurationMs:    duration.Milliseconds(),
			CorrelationID: req.CorrelationID,
		},
	}, nil
}

func (g *Gateway) execute(ctx context.Context, req *operator.Request) (operator.Result, error) {
	if err := validate(*req); err != nil {
		return operator.Result{}, err
	}

	if !g.registry.IsEnabled(req.Operator) {
		// Distinguish unknown from disabled so callers don't retry a code
		// that will never exist; only genuinely disabled operators count
		// toward the rejection metric.
		if _, err := g.registry.GetAdapter(req.Operator); err != nil {
			return operator.Result{}, err
		}
		g.metrics.IncDisabledRejection(req.Operator)
		return operator.Result{}, dErrors.Newf(dErrors.CodeOperatorDisabled, "operator %s is disabled", req.Operator)
	}

	adapter, err := g.registry.GetAdapter(req.Operator)
	if err != nil {
		return operator.Result{}, err
	}

	if operationsNeedingEnrichment[req.Operation] {
		g.enrich(ctx, req)
	}

	return operator.Dispatch(ctx, adapter, req.Operation, *req)
}

// enrich is best-effort: failures are logged and the call proceeds with the
// identifier the caller supplied.
func (g *Gateway) enrich(ctx context.Context, req *operator.Request) {
	ectx, cancel := context.WithTimeout(ctx, g.enrichTimeout)
	defer cancel()
	if err := g.enricher.Enrich(ectx, req); err != nil {
		g.logger.WarnContext(ctx, "header enrichment failed, proceeding without",
			"operator", req.Operator,
			"operation", req.Operation,
			"error", err,
		)
	}
}

func (g *Gateway) emitAudit(ctx context.Context, req operator.Request, res operator.Result, opErr error, actorID string, duration time.Duration) {
	if g.audit == nil {
		return
	}
	record := audit.Record{
		ActorID:       actorID,
		OperatorCode:  req.Operator,
		Operation:     string(req.Operation),
		MaskedParams:  maskedParams(req),
		DurationMs:    duration.Milliseconds(),
		Success:       opErr == nil,
		CorrelationID: req.CorrelationID,
	}
	if opErr != nil {
		record.ErrorCode = string(dErrors.CodeOf(opErr))
	} else {
		record.MaskedResult = maskedResult(res)
	}
	if err := g.audit.Emit(ctx, record); err != nil {
		g.logger.WarnContext(ctx, "audit emit failed", "error", err)
	}
}
