package sandbox

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"dcbgate/internal/catalog"
	"dcbgate/internal/detect"
	dErrors "dcbgate/pkg/domain-errors"
	"dcbgate/pkg/sentinel"
)

// memStore mirrors the memory store so the service tests stay in-package. It
// keeps expired records, which is exactly what the lazy-expiry path needs.
type memStore struct {
	provisions map[string]Provision
	deleted    []string
}

func newMemStore() *memStore {
	return &memStore{provisions: map[string]Provision{}}
}

func (s *memStore) Save(_ context.Context, p Provision) error {
	s.provisions[p.MSISDN] = p
	return nil
}

func (s *memStore) Find(_ context.Context, msisdn string) (Provision, error) {
	p, ok := s.provisions[msisdn]
	if !ok {
		return Provision{}, sentinel.ErrNotFound
	}
	return p, nil
}

func (s *memStore) Delete(_ context.Context, msisdn string) error {
	if _, ok := s.provisions[msisdn]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.provisions, msisdn)
	s.deleted = append(s.deleted, msisdn)
	return nil
}

func testCurrency(code string) string {
	if code == "zain-kw" {
		return "KWD"
	}
	return "USD"
}

func newService(store Store, clock func() time.Time) *Service {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return New(store, detect.New(catalog.New()), testCurrency,
		WithLogger(logger), WithClock(clock))
}

func TestProvisionDetectsOperator(t *testing.T) {
	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	svc := newService(newMemStore(), func() time.Time { return now })

	p, err := svc.Provision(context.Background(), "+965 555 123 45", "")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if p.OperatorCode != "zain-kw" {
		t.Fatalf("operator = %q, want zain-kw", p.OperatorCode)
	}
	if p.MSISDN != "+96555512345" {
		t.Fatalf("msisdn not normalized: %q", p.MSISDN)
	}
	if p.Currency != "KWD" || p.Balance == "" {
		t.Fatalf("balance setup wrong: %+v", p)
	}
	if !p.ExpiresAt.Equal(now.Add(Window)) {
		t.Fatalf("window wrong: %v", p.ExpiresAt)
	}
}

func TestProvisionUndetectableOperator(t *testing.T) {
	svc := newService(newMemStore(), time.Now)
	_, err := svc.Provision(context.Background(), "+70123456789", "")
	if !dErrors.HasCode(err, dErrors.CodeOperatorNotFound) {
		t.Fatalf("expected CodeOperatorNotFound, got %v", err)
	}
}

func TestWindowBoundary(t *testing.T) {
	start := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	now := start
	store := newMemStore()
	svc := newService(store, func() time.Time { return now })
	ctx := context.Background()

	if _, err := svc.Provision(ctx, "+96555512345", ""); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	// Just inside the window.
	now = start.Add(Window - time.Minute)
	if _, err := svc.Balances(ctx, "+96555512345"); err != nil {
		t.Fatalf("still-valid provision rejected: %v", err)
	}

	// At the boundary the window has closed.
	now = start.Add(Window)
	_, err := svc.Balances(ctx, "+96555512345")
	if !errors.Is(err, sentinel.ErrExpired) {
		t.Fatalf("expected ErrExpired at the boundary, got %v", err)
	}

	// Expiry deletes lazily; the next read is a plain not-found.
	if len(store.deleted) != 1 || store.deleted[0] != "+96555512345" {
		t.Fatalf("expired record not deleted: %+v", store.deleted)
	}
	if _, err := svc.Balances(ctx, "+96555512345"); !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after lazy delete, got %v", err)
	}
}

func TestReprovisionRestartsWindow(t *testing.T) {
	start := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	now := start
	svc := newService(newMemStore(), func() time.Time { return now })
	ctx := context.Background()

	if _, err := svc.Provision(ctx, "+96555512345", ""); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	now = start.Add(3 * time.Hour)
	p, err := svc.Provision(ctx, "+96555512345", "")
	if err != nil {
		t.Fatalf("re-provision: %v", err)
	}
	if !p.ExpiresAt.Equal(now.Add(Window)) {
		t.Fatalf("window did not restart: %v", p.ExpiresAt)
	}

	// The old window's end has passed, but the record is still valid.
	now = start.Add(Window + time.Hour)
	if _, err := svc.Balances(ctx, "+96555512345"); err != nil {
		t.Fatalf("restarted window rejected: %v", err)
	}
}

func TestStatusUnknownMSISDN(t *testing.T) {
	svc := newService(newMemStore(), time.Now)
	_, err := svc.Status(context.Background(), "+96555512345")
	if !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
