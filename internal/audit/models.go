package audit

import (
	"context"
	"time"
)

// Record captures one gateway invocation or operator state transition.
// Identifiers and parameters arrive pre-masked; nothing in this package may
// see a raw MSISDN, ACR, or PIN.
type Record struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	ActorID       string            `json:"actor_id,omitempty"`
	ActorDevice   string            `json:"actor_device,omitempty"`
	OperatorCode  string            `json:"operator_code"`
	Operation     string            `json:"operation"`
	MaskedParams  map[string]string `json:"masked_params,omitempty"`
	MaskedResult  map[string]string `json:"masked_result,omitempty"`
	DurationMs    int64             `json:"duration_ms"`
	Success       bool              `json:"success"`
	ErrorCode     string            `json:"error_code,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
}

// Store persists audit records and serves the dashboard read path.
type Store interface {
	Appender
	ListByOperator(ctx context.Context, operatorCode string, limit int) ([]Record, error)
}

// Appender is the write-only side of audit persistence. Stream sinks (Kafka)
// implement only this.
type Appender interface {
	Append(ctx context.Context, record Record) error
}
