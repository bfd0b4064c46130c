// Package sandbox provisions test MSISDNs for integration against the
// sandbox billing environment. A provisioned number is valid for exactly four
// hours; after the window it is invalid everywhere, enforced by native TTL in
// the redis store and by expiry-check-on-read in the service for stores
// without TTL semantics.
package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dcbgate/internal/detect"
	dErrors "dcbgate/pkg/domain-errors"
	"dcbgate/pkg/sentinel"
)

// Window is the fixed provisioning validity window.
const Window = 4 * time.Hour

// Provision is one provisioned sandbox MSISDN.
type Provision struct {
	MSISDN        string    `json:"msisdn"`
	Campaign      string    `json:"campaign,omitempty"`
	OperatorCode  string    `json:"operator_code"`
	Balance       string    `json:"balance"`
	Currency      string    `json:"currency"`
	ProvisionedAt time.Time `json:"provisioned_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Store persists provisioning records. Find may return records past their
// window (memory store); the service re-checks expiry on every read.
type Store interface {
	Save(ctx context.Context, p Provision) error
	Find(ctx context.Context, msisdn string) (Provision, error)
	Delete(ctx context.Context, msisdn string) error
}

type Service struct {
	store    Store
	detector *detect.Detector
	currency func(operatorCode string) string
	logger   *slog.Logger
	clock    func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock injects a time source for expiry tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New builds the sandbox service. currency maps an operator code to its
// billing currency for the simulated balance.
func New(store Store, detector *detect.Detector, currency func(string) string, opts ...Option) *Service {
	s := &Service{
		store:    store,
		detector: detector,
		currency: currency,
		logger:   slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// defaultBalance is the simulated prepaid balance a fresh sandbox number
// starts with.
const defaultBalance = "100.0"

// Provision registers an MSISDN for sandbox use. Re-provisioning an active
// number restarts the window.
func (s *Service) Provision(ctx context.Context, msisdn, campaign string) (Provision, error) {
	msisdn = detect.NormalizeMSISDN(msisdn)
	operatorCode, err := s.detector.Detect(msisdn, campaign)
	if err != nil {
		return Provision{}, dErrors.Wrap(err, dErrors.CodeOperatorNotFound,
			"could not determine operator for sandbox msisdn")
	}

	now := s.clock()
	p := Provision{
		MSISDN:        msisdn,
		Campaign:      campaign,
		OperatorCode:  operatorCode,
		Balance:       defaultBalance,
		Currency:      s.currency(operatorCode),
		ProvisionedAt: now,
		ExpiresAt:     now.Add(Window),
	}
	if err := s.store.Save(ctx, p); err != nil {
		return Provision{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist sandbox provision")
	}
	s.logger.InfoContext(ctx, "sandbox msisdn provisioned",
		"operator", operatorCode, "expires_at", p.ExpiresAt)
	return p, nil
}

// Status returns the active provisioning record for an MSISDN. Expired or
// unknown numbers fail with sentinel errors so callers can distinguish.
func (s *Service) Status(ctx context.Context, msisdn string) (Provision, error) {
	msisdn = detect.NormalizeMSISDN(msisdn)
	p, err := s.store.Find(ctx, msisdn)
	if err != nil {
		return Provision{}, err
	}
	if !s.clock().Before(p.ExpiresAt) {
		// Lazy expiry for stores without native TTL.
		if err := s.store.Delete(ctx, msisdn); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to delete expired provision", "error", err)
		}
		return Provision{}, sentinel.ErrExpired
	}
	return p, nil
}

// Balances reports the simulated balance for a provisioned MSISDN.
func (s *Service) Balances(ctx context.Context, msisdn string) (Provision, error) {
	return s.Status(ctx, msisdn)
}
