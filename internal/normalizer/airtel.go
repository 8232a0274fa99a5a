package normalizer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/payhubprime/payhub-gobackend/internal/models"
)

// AirtelNormalizer handles Airtel Money collection callbacks. Airtel's
// callback shape varies between deployments, so several key locations are
// probed in priority order.
type AirtelNormalizer struct{}

func NewAirtelNormalizer() *AirtelNormalizer {
	return &AirtelNormalizer{}
}

func (n *AirtelNormalizer) Provider() string { return "airtel_money" }

func (n *AirtelNormalizer) Normalize(payload []byte) (*models.NormalizedResult, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	// Transaction id for matching: transaction.id, then data.transaction.id,
	// then top-level reference. Some deployments echo our internal id here
	// instead of their own reference, so matching is disjunctive.
	ref := nestedString(raw, "transaction", "id")
	if ref == "" {
		ref = nestedString(raw, "data", "transaction", "id")
	}
	if ref == "" {
		ref = nestedString(raw, "reference")
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: no transaction reference", ErrMalformedCallback)
	}

	// Status key priority: transaction.status, status.code, status.
	status := nestedString(raw, "transaction", "status")
	if status == "" {
		status = nestedString(raw, "status", "code")
	}
	if status == "" {
		if v, ok := raw["status"]; ok {
			status = toString(v)
		}
	}

	result := &models.NormalizedResult{
		ProviderReference: ref,
		MatchByID:         true,
		RawPayload:        raw,
		Extras: map[string]interface{}{
			"status_code": status,
		},
	}

	switch status {
	case "TS", "200", "SUCCESS":
		result.Outcome = models.OutcomeSuccess
	case "TF", "FAILED":
		result.Outcome = models.OutcomeFailure
		return result, nil
	case "TIP", "PENDING":
		result.Outcome = models.OutcomePending
		return result, nil
	default:
		result.Outcome = models.OutcomeFailure
		return result, nil
	}

	// The transaction object nests under either transaction.* or
	// data.transaction.*.
	var txn map[string]interface{}
	if v, ok := nested(raw, "transaction"); ok {
		txn, _ = v.(map[string]interface{})
	}
	if txn == nil {
		if v, ok := nested(raw, "data", "transaction"); ok {
			txn, _ = v.(map[string]interface{})
		}
	}
	if txn == nil {
		txn = map[string]interface{}{}
	}

	receipt := toString(txn["airtel_money_id"])
	if receipt == "" {
		receipt = toString(txn["id"])
	}
	if receipt == "" {
		receipt = nestedString(raw, "reference")
	}
	if receipt != "" {
		result.ReceiptID = &receipt
		result.Extras["airtel_receipt"] = receipt
	}

	occurred := toString(txn["created_at"])
	if occurred == "" {
		occurred = nestedString(raw, "timestamp")
	}
	if occurred == "" {
		occurred = time.Now().UTC().Format(time.RFC3339)
	}
	result.OccurredAt = &occurred

	if amount, ok := toFloat(txn["amount"]); ok {
		result.ConfirmedAmount = &amount
		result.Extras["amount_paid"] = amount
	} else if amount, ok := toFloat(raw["amount"]); ok {
		result.ConfirmedAmount = &amount
		result.Extras["amount_paid"] = amount
	}

	return result, nil
}
