// Package registry owns operator enablement state and brokers adapter
// instances. It is the only shared mutable state in the gateway: reads are
// safe under concurrent requests, writes are serialized, and no lock is held
// across downstream operator calls.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dcbgate/internal/audit"
	"dcbgate/internal/operator"
	"dcbgate/internal/platform/middleware"
	dErrors "dcbgate/pkg/domain-errors"
)

// StateStore persists operator state transitions.
type StateStore interface {
	Save(ctx context.Context, state State) error
	Find(ctx context.Context, code string) (State, error)
	List(ctx context.Context) ([]State, error)
}

// Registry holds enable/disable state and adapter instances per operator.
// Enablement and adapter lookup are deliberately separate: GetAdapter works
// for disabled operators (health checks need the adapter object) while the
// coordinator refuses invocation when disabled.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]operator.Adapter
	states   map[string]State

	store  StateStore
	logger *slog.Logger
	audit  *audit.Publisher
	clock  func() time.Time
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

func WithAuditPublisher(pub *audit.Publisher) Option {
	return func(r *Registry) { r.audit = pub }
}

func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// New builds the registry and loads persisted state. Operators without a
// persisted record start disabled: enabling an operator is always an explicit,
// audited act.
func New(ctx context.Context, adapters map[string]operator.Adapter, store StateStore, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	r := &Registry{
		adapters: adapters,
		states:   make(map[string]State, len(adapters)),
		store:    store,
		logger:   slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	persisted, err := store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load operator state")
	}
	for _, st := range persisted {
		r.states[st.Code] = st
	}
	for code := range adapters {
		if _, ok := r.states[code]; !ok {
			r.states[code] = State{Code: code}
		}
	}
	return r, nil
}

// IsEnabled reports enablement; unknown codes are disabled.
func (r *Registry) IsEnabled(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states[code].Enabled
}

// GetAdapter returns the adapter for a code regardless of enablement.
func (r *Registry) GetAdapter(code string) (operator.Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[code]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeOperatorNotFound, "no adapter registered for %q", code)
	}
	return a, nil
}

// Enable turns an operator on. Reason is optional.
func (r *Registry) Enable(ctx context.Context, code, actorID, reason string) error {
	return r.transition(ctx, code, actorID, reason, true)
}

// Disable turns an operator off. Reason is mandatory: a disabled operator
// rejects live billing traffic and the dashboard must say why.
func (r *Registry) Disable(ctx context.Context, code, actorID, reason string) error {
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "disable requires a reason")
	}
	return r.transition(ctx, code, actorID, reason, false)
}

// transition persists then applies one enablement change. The write lock is
// held across persist+apply so concurrent transitions on the same code cannot
// interleave into an inconsistent persisted state; persistence is local and
// fast, never a downstream operator call.
func (r *Registry) transition(ctx context.Context, code, actorID, reason string, enabled bool) error {
	if _, err := r.GetAdapter(code); err != nil {
		return err
	}

	r.mu.Lock()
	before := r.states[code]
	after := before
	after.Code = code
	after.Enabled = enabled
	after.LastChangedBy = actorID
	after.LastChangedAt = r.clock()
	if enabled {
		after.DisableReason = ""
	} else {
		after.DisableReason = reason
	}

	if err := r.store.Save(ctx, after); err != nil {
		r.mu.Unlock()
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist operator state")
	}
	r.states[code] = after
	r.mu.Unlock()

	action := "operator.disable"
	if enabled {
		action = "operator.enable"
	}
	r.logger.InfoContext(ctx, action, "operator", code, "actor", actorID, "reason", reason)
	r.emitAudit(ctx, audit.Record{
		ActorID:      actorID,
		ActorDevice:  middleware.GetDevice(ctx),
		OperatorCode: code,
		Operation:    action,
		Success:      true,
		MaskedParams: map[string]string{
			"reason":         reason,
			"enabled_before": boolString(before.Enabled),
			"enabled_after":  boolString(after.Enabled),
		},
	})
	return nil
}

// BulkEnable applies Enable independently per code, concurrently, and returns
// a result per code in input order. nil codes means every registered adapter.
func (r *Registry) BulkEnable(ctx context.Context, codes []string, actorID, reason string) []BulkResult {
	if codes == nil {
		r.mu.RLock()
		for code := range r.adapters {
			codes = append(codes, code)
		}
		r.mu.RUnlock()
		sort.Strings(codes)
	}

	results := make([]BulkResult, len(codes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, code := range codes {
		g.Go(func() error {
			res := BulkResult{Code: code}
			if err := r.Enable(gctx, code, actorID, reason); err != nil {
				res.Error = err.Error()
			} else {
				res.Enabled = true
			}
			results[i] = res
			return nil // per-code failure is data, not a batch error
		})
	}
	_ = g.Wait()
	return results
}

// List returns a snapshot of every operator's state, ordered by code.
func (r *Registry) List() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]State, 0, len(r.states))
	for _, st := range r.states {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// UpdateHealth records a health probe outcome for the dashboard. Health never
// gates traffic by itself; only explicit disable does.
func (r *Registry) UpdateHealth(ctx context.Context, code string, score float64) error {
	if score < 0 || score > 1 {
		return dErrors.New(dErrors.CodeValidation, "health score must be in [0,1]")
	}
	if _, err := r.GetAdapter(code); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.states[code]
	st.Code = code
	st.HealthScore = score
	st.LastHealthCheckAt = r.clock()
	if err := r.store.Save(ctx, st); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist operator health")
	}
	r.states[code] = st
	return nil
}

func (r *Registry) emitAudit(ctx context.Context, record audit.Record) {
	if r.audit == nil {
		return
	}
	if err := r.audit.Emit(ctx, record); err != nil {
		r.logger.WarnContext(ctx, "audit emit failed", "error", err)
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
