// Package operator defines the uniform capability interface every operator
// adapter implements, plus the canonical request/result model the gateway
// exchanges with adapters. Per-operator behavior lives in declarative
// profiles consumed by a single generic adapter; only genuinely unique flows
// (Telenor ACR handling, Mobily fraud tokens) get their own wrapper types.
package operator

import (
	"context"
	"time"

	"dcbgate/internal/catalog"
	dErrors "dcbgate/pkg/domain-errors"
)

// Operation enumerates the unified operation set.
type Operation string

const (
	OpCreateSubscription Operation = "createSubscription"
	OpGetStatus          Operation = "getStatus"
	OpCancel             Operation = "cancel"
	OpCharge             Operation = "charge"
	OpRefund             Operation = "refund"
	OpGeneratePIN        Operation = "generatePIN"
	OpVerifyPIN          Operation = "verifyPIN"
	OpCheckEligibility   Operation = "checkEligibility"
	OpSendSMS            Operation = "sendSMS"
)

// Status is the canonical subscription status enum. Operator-native status
// strings always translate through a per-operator table; an unmapped native
// status maps to StatusUnknown, never to a guessed state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusTrial     Status = "trial"
	StatusSuspended Status = "suspended"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
	StatusUnknown   Status = "unknown"
)

// Request is the canonical operation envelope the coordinator hands to an
// adapter. MSISDN and ACR are mutually exclusive.
type Request struct {
	Operator      string
	Operation     Operation
	MSISDN        string
	ACR           string
	Campaign      string
	Merchant      string
	Amount        string
	Currency      string
	PIN           string
	Template      string
	Language      string
	Text          string
	FraudToken    string
	Trial         bool
	UUID          string
	TransactionID string
	Correlator    string
	CorrelationID string
}

// Identifier returns whichever subscriber identifier the request carries.
func (r Request) Identifier() string {
	if r.ACR != "" {
		return r.ACR
	}
	return r.MSISDN
}

// Result is the normalized, operation-specific success payload.
type Result struct {
	UUID          string
	Status        Status
	Amount        string
	Currency      string
	NextBillingAt string
	CheckoutURL   string
	TransactionID string
	PINSent       bool
	Eligible      bool
	DeliveryID    string
}

// Adapter is the fixed capability interface over one operator's billing API.
// Optional capabilities fail with CodeFeatureNotSupported rather than being
// absent from the interface, so callers never type-switch on adapters.
// Adapters do not retry; retry policy belongs to the transport client.
type Adapter interface {
	Code() string
	Definition() *catalog.Definition

	CreateSubscription(ctx context.Context, req Request) (Result, error)
	GetSubscriptionStatus(ctx context.Context, req Request) (Result, error)
	CancelSubscription(ctx context.Context, req Request) (Result, error)
	GeneratePIN(ctx context.Context, req Request) (Result, error)
	VerifyPIN(ctx context.Context, req Request) (Result, error)
	CheckEligibility(ctx context.Context, req Request) (Result, error)
	Charge(ctx context.Context, req Request) (Result, error)
	Refund(ctx context.Context, req Request) (Result, error)
	SendSMS(ctx context.Context, req Request) (Result, error)
}

// Dispatch invokes the adapter method matching the operation.
func Dispatch(ctx context.Context, a Adapter, op Operation, req Request) (Result, error) {
	switch op {
	case OpCreateSubscription:
		return a.CreateSubscription(ctx, req)
	case OpGetStatus:
		return a.GetSubscriptionStatus(ctx, req)
	case OpCancel:
		return a.CancelSubscription(ctx, req)
	case OpGeneratePIN:
		return a.GeneratePIN(ctx, req)
	case OpVerifyPIN:
		return a.VerifyPIN(ctx, req)
	case OpCheckEligibility:
		return a.CheckEligibility(ctx, req)
	case OpCharge:
		return a.Charge(ctx, req)
	case OpRefund:
		return a.Refund(ctx, req)
	case OpSendSMS:
		return a.SendSMS(ctx, req)
	default:
		return Result{}, dErrors.Newf(dErrors.CodeValidation, "unknown operation %q", op)
	}
}

// Transport is the outbound client an adapter shapes requests for. The
// transport owns HTTP, low-level auth, and any retries; the adapter only
// builds params and interprets the native response.
type Transport interface {
	Post(ctx context.Context, endpoint string, params map[string]string) (map[string]any, error)
}

// NativeError is an operator-native failure surfaced by a transport. It is
// kept opaque until the adapter's error table translates it.
type NativeError struct {
	Code       string
	Message    string
	HTTPStatus int
}

func (e *NativeError) Error() string {
	return "operator error " + e.Code + ": " + e.Message
}

// DefaultTimeout bounds a single transport call when a profile does not
// override it.
const DefaultTimeout = 30 * time.Second
