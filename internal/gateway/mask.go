package gateway

import (
	"strings"

	"dcbgate/internal/operator"
)

// Masking rules for audit records. Raw identifiers and secrets never reach
// the audit trail: MSISDNs keep the calling code and last two digits, ACRs
// keep their first eight characters, PINs and fraud tokens are always
// replaced wholesale.

func maskMSISDN(msisdn string) string {
	if msisdn == "" {
		return ""
	}
	keepTail := 2
	if len(msisdn) <= keepTail+1 {
		return "***"
	}
	// Keep a short head so the market is recognizable: "+", up to 4 digits.
	head := 4
	if len(msisdn) < head+keepTail {
		head = len(msisdn) - keepTail
	}
	return msisdn[:head] + strings.Repeat("*", len(msisdn)-head-keepTail) + msisdn[len(msisdn)-keepTail:]
}

func maskACR(acr string) string {
	if acr == "" {
		return ""
	}
	if len(acr) <= 8 {
		return "***"
	}
	return acr[:8] + "…"
}

func maskedParams(req operator.Request) map[string]string {
	params := map[string]string{}
	if req.MSISDN != "" {
		params["msisdn"] = maskMSISDN(req.MSISDN)
	}
	if req.ACR != "" {
		params["acr"] = maskACR(req.ACR)
	}
	if req.Campaign != "" {
		params["campaign"] = truncate(req.Campaign, 64)
	}
	if req.Merchant != "" {
		params["merchant"] = truncate(req.Merchant, 64)
	}
	if req.Amount != "" {
		params["amount"] = req.Amount
		params["currency"] = req.Currency
	}
	if req.PIN != "" {
		params["pin"] = "***"
	}
	if req.FraudToken != "" {
		params["fraud_token"] = "***"
	}
	if req.UUID != "" {
		params["uuid"] = req.UUID
	}
	if req.TransactionID != "" {
		params["transaction_id"] = req.TransactionID
	}
	if req.Correlator != "" {
		params["correlator"] = req.Correlator
	}
	return params
}

func maskedResult(res operator.Result) map[string]string {
	out := map[string]string{}
	if res.UUID != "" {
		out["uuid"] = res.UUID
	}
	if res.Status != "" {
		out["status"] = string(res.Status)
	}
	if res.Amount != "" {
		out["amount"] = res.Amount
		out["currency"] = res.Currency
	}
	if res.TransactionID != "" {
		out["transaction_id"] = res.TransactionID
	}
	if res.CheckoutURL != "" {
		out["checkout_url"] = truncate(res.CheckoutURL, 128)
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
