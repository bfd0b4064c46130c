// Package postgres persists operator enablement state with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dcbgate/internal/registry"
	"dcbgate/pkg/sentinel"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the operator_states table if missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS operator_states (
			code                 TEXT PRIMARY KEY,
			enabled              BOOLEAN NOT NULL DEFAULT FALSE,
			disable_reason       TEXT NOT NULL DEFAULT '',
			last_changed_by      TEXT NOT NULL DEFAULT '',
			last_changed_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			health_score         DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_health_check_at TIMESTAMPTZ NOT NULL DEFAULT 'epoch'
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate operator_states: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, state registry.State) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO operator_states
			(code, enabled, disable_reason, last_changed_by, last_changed_at, health_score, last_health_check_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (code) DO UPDATE SET
			enabled              = EXCLUDED.enabled,
			disable_reason       = EXCLUDED.disable_reason,
			last_changed_by      = EXCLUDED.last_changed_by,
			last_changed_at      = EXCLUDED.last_changed_at,
			health_score         = EXCLUDED.health_score,
			last_health_check_at = EXCLUDED.last_health_check_at
	`, state.Code, state.Enabled, state.DisableReason, state.LastChangedBy,
		state.LastChangedAt, state.HealthScore, state.LastHealthCheckAt)
	if err != nil {
		return fmt.Errorf("save operator state: %w", err)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, code string) (registry.State, error) {
	var st registry.State
	err := s.pool.QueryRow(ctx, `
		SELECT code, enabled, disable_reason, last_changed_by, last_changed_at,
		       health_score, last_health_check_at
		FROM operator_states WHERE code = $1
	`, code).Scan(&st.Code, &st.Enabled, &st.DisableReason, &st.LastChangedBy,
		&st.LastChangedAt, &st.HealthScore, &st.LastHealthCheckAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return registry.State{}, sentinel.ErrNotFound
	}
	if err != nil {
		return registry.State{}, fmt.Errorf("find operator state: %w", err)
	}
	return st, nil
}

func (s *Store) List(ctx context.Context) ([]registry.State, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, enabled, disable_reason, last_changed_by, last_changed_at,
		       health_score, last_health_check_at
		FROM operator_states ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("list operator states: %w", err)
	}
	defer rows.Close()

	var out []registry.State
	for rows.Next() {
		var st registry.State
		if err := rows.Scan(&st.Code, &st.Enabled, &st.DisableReason, &st.LastChangedBy,
			&st.LastChangedAt, &st.HealthScore, &st.LastHealthCheckAt); err != nil {
			return nil, fmt.Errorf("scan operator state: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
