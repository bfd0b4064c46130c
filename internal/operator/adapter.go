package operator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"dcbgate/internal/catalog"
	dErrors "dcbgate/pkg/domain-errors"
	"dcbgate/pkg/sentinel"
)

// genericAdapter implements Adapter for any operator whose behavior is fully
// described by a Profile. It never retries and never swallows errors: every
// failure path returns a translated domain error wrapping the native one.
type genericAdapter struct {
	def       *catalog.Definition
	profile   Profile
	transport Transport
}

func newGenericAdapter(def *catalog.Definition, profile Profile, transport Transport) *genericAdapter {
	if profile.Timeout == 0 {
		profile.Timeout = DefaultTimeout
	}
	return &genericAdapter{def: def, profile: profile, transport: transport}
}

func (a *genericAdapter) Code() string                    { return a.def.Code }
func (a *genericAdapter) Definition() *catalog.Definition { return a.def }

func (a *genericAdapter) CreateSubscription(ctx context.Context, req Request) (Result, error) {
	params, err := a.subscriberParams(req)
	if err != nil {
		return Result{}, err
	}
	if req.PIN != "" {
		params["pin"] = req.PIN
	}
	if req.Trial {
		params["trial"] = "1"
	}
	if req.Language != "" {
		params["language"] = req.Language
	}
	if req.Amount != "" {
		if err := a.checkAmount(req.Amount); err != nil {
			return Result{}, err
		}
		params["amount"] = req.Amount
		params["currency"] = a.def.Currency
	}
	return a.post(ctx, OpCreateSubscription, params)
}

func (a *genericAdapter) GetSubscriptionStatus(ctx context.Context, req Request) (Result, error) {
	params, err := a.referenceParams(req)
	if err != nil {
		return Result{}, err
	}
	return a.post(ctx, OpGetStatus, params)
}

func (a *genericAdapter) CancelSubscription(ctx context.Context, req Request) (Result, error) {
	params, err := a.referenceParams(req)
	if err != nil {
		return Result{}, err
	}
	return a.post(ctx, OpCancel, params)
}

func (a *genericAdapter) GeneratePIN(ctx context.Context, req Request) (Result, error) {
	if a.def.CheckoutOnly() {
		return Result{}, a.notSupported("pin")
	}
	params, err := a.subscriberParams(req)
	if err != nil {
		return Result{}, err
	}
	if req.Template != "" {
		params["template"] = req.Template
	}
	if req.Language != "" {
		params["language"] = req.Language
	}
	if req.Amount != "" {
		params["amount"] = req.Amount
	}
	if req.FraudToken != "" {
		params["fraud_token"] = req.FraudToken
	}
	res, err := a.post(ctx, OpGeneratePIN, params)
	if err != nil {
		return Result{}, err
	}
	res.PINSent = true
	return res, nil
}

func (a *genericAdapter) VerifyPIN(ctx context.Context, req Request) (Result, error) {
	if a.def.CheckoutOnly() {
		return Result{}, a.notSupported("pin")
	}
	params, err := a.referenceParams(req)
	if err != nil {
		return Result{}, err
	}
	if req.PIN == "" {
		return Result{}, dErrors.New(dErrors.CodeValidation, "pin is required")
	}
	if a.def.PINLength > 0 && len(req.PIN) != a.def.PINLength {
		return Result{}, dErrors.Newf(dErrors.CodeInvalidPIN, "pin must be %d digits for %s", a.def.PINLength, a.def.Code)
	}
	params["pin"] = req.PIN
	return a.post(ctx, OpVerifyPIN, params)
}

func (a *genericAdapter) CheckEligibility(ctx context.Context, req Request) (Result, error) {
	params, err := a.subscriberParams(req)
	if err != nil {
		return Result{}, err
	}
	res, err := a.post(ctx, OpCheckEligibility, params)
	if err != nil {
		return Result{}, err
	}
	res.Eligible = true
	return res, nil
}

func (a *genericAdapter) Charge(ctx context.Context, req Request) (Result, error) {
	if a.def.CheckoutOnly() {
		return Result{}, a.notSupported("charge")
	}
	params, err := a.referenceParams(req)
	if err != nil {
		return Result{}, err
	}
	if err := a.checkAmount(req.Amount); err != nil {
		return Result{}, err
	}
	params["amount"] = req.Amount
	params["currency"] = a.chargeCurrency(req.Currency)
	return a.post(ctx, OpCharge, params)
}

func (a *genericAdapter) Refund(ctx context.Context, req Request) (Result, error) {
	if a.def.CheckoutOnly() {
		return Result{}, a.notSupported("refund")
	}
	params, err := a.referenceParams(req)
	if err != nil {
		return Result{}, err
	}
	if err := a.checkAmount(req.Amount); err != nil {
		return Result{}, err
	}
	params["amount"] = req.Amount
	params["currency"] = a.chargeCurrency(req.Currency)
	return a.post(ctx, OpRefund, params)
}

func (a *genericAdapter) SendSMS(ctx context.Context, req Request) (Result, error) {
	if a.def.CheckoutOnly() || !a.def.Has(catalog.CapSMS) {
		return Result{}, a.notSupported("sms")
	}
	params, err := a.subscriberParams(req)
	if err != nil {
		return Result{}, err
	}
	params["text"] = req.Text
	return a.post(ctx, OpSendSMS, params)
}

// subscriberParams builds the common parameter set for operations addressed
// by subscriber identifier.
func (a *genericAdapter) subscriberParams(req Request) (map[string]string, error) {
	params := map[string]string{
		"campaign": req.Campaign,
		"merchant": req.Merchant,
	}
	switch {
	case req.ACR != "":
		if len(req.ACR) != catalog.ACRLength {
			return nil, dErrors.Newf(dErrors.CodeInvalidACR, "acr must be %d characters", catalog.ACRLength)
		}
		params["acr"] = req.ACR
	case req.MSISDN != "":
		msisdn, err := a.NormalizeMSISDN(req.MSISDN)
		if err != nil {
			return nil, err
		}
		params["msisdn"] = msisdn
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "msisdn or acr is required")
	}
	if req.Correlator != "" {
		params["correlator"] = req.Correlator
	}
	return params, nil
}

// referenceParams builds parameters for operations addressed by subscription
// or transaction reference, falling back to the subscriber identifier when
// no reference is supplied.
func (a *genericAdapter) referenceParams(req Request) (map[string]string, error) {
	switch {
	case req.UUID != "":
		params := map[string]string{"uuid": req.UUID}
		if req.Correlator != "" {
			params["correlator"] = req.Correlator
		}
		return params, nil
	case req.TransactionID != "":
		params := map[string]string{"transaction_id": req.TransactionID}
		if req.Correlator != "" {
			params["correlator"] = req.Correlator
		}
		return params, nil
	default:
		return a.subscriberParams(req)
	}
}

// NormalizeMSISDN applies the operator's identifier rule: strip separators,
// drop a national leading zero when configured, prepend the calling code when
// missing, and enforce the national length.
func (a *genericAdapter) NormalizeMSISDN(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	n := digits.String()
	if n == "" {
		return "", dErrors.New(dErrors.CodeInvalidMSISDN, "msisdn has no digits")
	}

	cc := strings.TrimPrefix(a.def.CallingCode, "+")
	n = strings.TrimPrefix(n, "00")
	if strings.HasPrefix(n, cc) {
		n = n[len(cc):]
	} else if a.profile.MSISDN.StripLeadingZero {
		n = strings.TrimPrefix(n, "0")
	}

	if want := a.profile.MSISDN.NationalLength; want > 0 && len(n) != want {
		return "", dErrors.Newf(dErrors.CodeInvalidMSISDN,
			"national number must be %d digits for %s, got %d", want, a.def.Code, len(n))
	}
	return a.def.CallingCode + n, nil
}

func (a *genericAdapter) checkAmount(amount string) error {
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil || v <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be a positive number")
	}
	if max := a.def.MaxChargeAmount; max > 0 && v > max {
		return dErrors.Newf(dErrors.CodeChargeLimitExceeded,
			"amount %s exceeds %s limit of %g %s", amount, a.def.Code, max, a.def.Currency)
	}
	return nil
}

func (a *genericAdapter) chargeCurrency(requested string) string {
	if requested != "" {
		return requested
	}
	return a.def.Currency
}

func (a *genericAdapter) notSupported(feature string) error {
	return dErrors.Newf(dErrors.CodeFeatureNotSupported, "%s does not support %s", a.def.Code, feature)
}

// post performs the transport call under the profile timeout and translates
// the outcome. This is the single point where native responses and errors
// cross into the canonical model.
func (a *genericAdapter) post(ctx context.Context, op Operation, params map[string]string) (Result, error) {
	endpoint, ok := a.profile.Endpoints[op]
	if !ok {
		return Result{}, a.notSupported(string(op))
	}

	ctx, cancel := context.WithTimeout(ctx, a.profile.Timeout)
	defer cancel()

	native, err := a.transport.Post(ctx, endpoint, params)
	if err != nil {
		return Result{}, a.translateError(err)
	}
	return a.mapResult(native), nil
}

// mapResult projects a native success payload onto the canonical Result.
// Status strings always go through the profile table.
func (a *genericAdapter) mapResult(native map[string]any) Result {
	res := Result{
		UUID:          str(native, "uuid", "subscription_id"),
		Amount:        str(native, "amount"),
		Currency:      str(native, "currency"),
		NextBillingAt: str(native, "next_payment_timestamp", "next_billing_at"),
		CheckoutURL:   str(native, "checkout_url", "redirect_url"),
		TransactionID: str(native, "transaction_id"),
		DeliveryID:    str(native, "delivery_id"),
	}
	if res.Currency == "" && res.Amount != "" {
		res.Currency = a.def.Currency
	}
	if raw := str(native, "status", "transaction_status"); raw != "" {
		res.Status = a.MapStatus(raw)
	}
	return res
}

// MapStatus translates one native status string. Unmapped strings are
// StatusUnknown by contract.
func (a *genericAdapter) MapStatus(raw string) Status {
	if s, ok := a.profile.StatusTable[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusUnknown
}

// translateError converts a transport failure into the unified taxonomy via
// the profile's error table, then the substring heuristic, then the generic
// operator-error fallback. The native error is always kept as the cause.
func (a *genericAdapter) translateError(err error) error {
	var native *NativeError
	if errors.As(err, &native) {
		if code, ok := a.profile.ErrorTable[strings.ToUpper(native.Code)]; ok {
			return dErrors.Wrap(native, code, native.Message)
		}
		if code, ok := heuristicCode(native.Code + " " + native.Message); ok {
			return dErrors.Wrap(native, code, native.Message)
		}
		return dErrors.Wrap(native, dErrors.CodeOperatorError,
			fmt.Sprintf("unmapped %s error %s", a.def.Code, native.Code))
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeOperatorError, a.def.Code+" transport unavailable")
	}
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		// Already classified below us; never re-interpret.
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeOperatorError, a.def.Code+" call failed")
}

func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch t := v.(type) {
			case string:
				return t
			case float64:
				return strconv.FormatFloat(t, 'f', -1, 64)
			}
		}
	}
	return ""
}
