// Package postgres persists audit records in PostgreSQL over database/sql.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"dcbgate/internal/audit"
)

// Store writes audit records to the audit_records table. Masked params and
// results are stored as JSONB since their keys vary per operation.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

type Option func(*Store)

// WithClock sets the time source for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the audit table if missing. Kept here so integration tests
// and single-binary deployments need no external migration step.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_records (
			id             TEXT PRIMARY KEY,
			ts             TIMESTAMPTZ NOT NULL,
			actor_id       TEXT NOT NULL DEFAULT '',
			actor_device   TEXT NOT NULL DEFAULT '',
			operator_code  TEXT NOT NULL,
			operation      TEXT NOT NULL,
			masked_params  JSONB,
			masked_result  JSONB,
			duration_ms    BIGINT NOT NULL,
			success        BOOLEAN NOT NULL,
			error_code     TEXT NOT NULL DEFAULT '',
			correlation_id TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS audit_records_operator_ts_idx
			ON audit_records (operator_code, ts DESC);
	`)
	if err != nil {
		return fmt.Errorf("migrate audit_records: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, record audit.Record) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = s.clock()
	}
	params, err := json.Marshal(record.MaskedParams)
	if err != nil {
		return fmt.Errorf("marshal masked params: %w", err)
	}
	result, err := json.Marshal(record.MaskedResult)
	if err != nil {
		return fmt.Errorf("marshal masked result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_records
			(id, ts, actor_id, actor_device, operator_code, operation,
			 masked_params, masked_result, duration_ms, success, error_code, correlation_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, record.ID, record.Timestamp, record.ActorID, record.ActorDevice,
		record.OperatorCode, record.Operation, params, result,
		record.DurationMs, record.Success, record.ErrorCode, record.CorrelationID)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

func (s *Store) ListByOperator(ctx context.Context, operatorCode string, limit int) ([]audit.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, actor_id, actor_device, operator_code, operation,
		       masked_params, masked_result, duration_ms, success, error_code, correlation_id
		FROM audit_records
		WHERE ($1 = '' OR operator_code = $1)
		ORDER BY ts DESC
		LIMIT $2
	`, operatorCode, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var out []audit.Record
	for rows.Next() {
		var (
			r              audit.Record
			params, result []byte
		)
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.ActorID, &r.ActorDevice,
			&r.OperatorCode, &r.Operation, &params, &result,
			&r.DurationMs, &r.Success, &r.ErrorCode, &r.CorrelationID); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if len(params) > 0 {
			if err := json.Unmarshal(params, &r.MaskedParams); err != nil {
				return nil, fmt.Errorf("unmarshal masked params: %w", err)
			}
		}
		if len(result) > 0 {
			if err := json.Unmarshal(result, &r.MaskedResult); err != nil {
				return nil, fmt.Errorf("unmarshal masked result: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
