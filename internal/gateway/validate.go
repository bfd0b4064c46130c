package gateway

import (
	"strconv"
	"strings"

	"dcbgate/internal/catalog"
	"dcbgate/internal/operator"
	dErrors "dcbgate/pkg/domain-errors"
)

// validate checks the generic parameter shape per operation before any
// network interaction. Operator-specific normalization (lengths, leading
// zeros) happens later in the adapter; this layer only rejects requests that
// can never be valid anywhere.
func validate(req operator.Request) error {
	if req.Operator == "" {
		return dErrors.New(dErrors.CodeValidation, "operator is required")
	}
	if req.MSISDN != "" && req.ACR != "" {
		return dErrors.New(dErrors.CodeValidation, "msisdn and acr are mutually exclusive")
	}
	if req.ACR != "" && len(req.ACR) != catalog.ACRLength {
		return dErrors.Newf(dErrors.CodeInvalidACR, "acr must be %d characters", catalog.ACRLength)
	}
	if req.MSISDN != "" {
		if err := checkMSISDNShape(req.MSISDN); err != nil {
			return err
		}
	}

	switch req.Operation {
	case operator.OpCreateSubscription, operator.OpGeneratePIN, operator.OpCheckEligibility, operator.OpSendSMS:
		if req.Identifier() == "" {
			return dErrors.New(dErrors.CodeValidation, "msisdn or acr is required")
		}
		if req.Campaign == "" {
			return dErrors.New(dErrors.CodeValidation, "campaign is required")
		}
		if req.Merchant == "" {
			return dErrors.New(dErrors.CodeValidation, "merchant is required")
		}
		if req.Operation == operator.OpSendSMS && strings.TrimSpace(req.Text) == "" {
			return dErrors.New(dErrors.CodeValidation, "text is required")
		}
	case operator.OpCharge, operator.OpRefund:
		if req.UUID == "" && req.TransactionID == "" {
			return dErrors.New(dErrors.CodeValidation, "uuid or transaction_id is required")
		}
		if err := checkAmount(req.Amount); err != nil {
			return err
		}
		if req.Currency == "" {
			return dErrors.New(dErrors.CodeValidation, "currency is required")
		}
	case operator.OpGetStatus, operator.OpCancel, operator.OpVerifyPIN:
		if req.UUID == "" && req.Identifier() == "" {
			return dErrors.New(dErrors.CodeValidation, "uuid, msisdn or acr is required")
		}
		if req.Operation == operator.OpVerifyPIN && req.PIN == "" {
			return dErrors.New(dErrors.CodeValidation, "pin is required")
		}
	case "":
		return dErrors.New(dErrors.CodeValidation, "operation is required")
	default:
		return dErrors.Newf(dErrors.CodeValidation, "unknown operation %q", req.Operation)
	}
	return nil
}

// checkMSISDNShape enforces only the universal shape: optional +, 7-15
// digits (E.164 bounds), separators allowed.
func checkMSISDNShape(msisdn string) error {
	digits := 0
	for i, r := range msisdn {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return dErrors.Newf(dErrors.CodeInvalidMSISDN, "msisdn contains invalid character %q", r)
		}
	}
	if digits < 7 || digits > 15 {
		return dErrors.New(dErrors.CodeInvalidMSISDN, "msisdn must have 7-15 digits")
	}
	return nil
}

func checkAmount(amount string) error {
	if amount == "" {
		return dErrors.New(dErrors.CodeValidation, "amount is required")
	}
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil || v <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be a positive number")
	}
	return nil
}
