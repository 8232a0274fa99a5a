package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/payhubprime/payhub-gobackend/internal/models"
)

// ErrIgnored marks a well-formed callback that is acknowledged but produces
// no reconciliation (for example a card event carrying no transaction id in
// its metadata). Logged, never surfaced to the provider.
var ErrIgnored = errors.New("callback acknowledged without reconciliation")

// StripeNormalizer handles card-processor webhook events. The matching
// transaction id is recovered from intent metadata embedded at creation time,
// not from the provider reference.
type StripeNormalizer struct{}

func NewStripeNormalizer() *StripeNormalizer {
	return &StripeNormalizer{}
}

func (n *StripeNormalizer) Provider() string { return "credit_card" }

func (n *StripeNormalizer) Normalize(payload []byte) (*models.NormalizedResult, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	eventType := toString(raw["type"])
	if eventType == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedCallback)
	}

	object, ok := nested(raw, "data", "object")
	if !ok {
		return nil, fmt.Errorf("%w: missing data.object", ErrMalformedCallback)
	}
	intent, ok := object.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: data.object is not an object", ErrMalformedCallback)
	}

	transactionID := nestedString(intent, "metadata", "transaction_id")
	if transactionID == "" {
		return nil, fmt.Errorf("%w: no transaction_id in event metadata", ErrIgnored)
	}

	result := &models.NormalizedResult{
		ProviderReference: transactionID,
		MatchInternalOnly: true,
		RawPayload:        raw,
		Extras:            map[string]interface{}{},
	}

	switch eventType {
	case "payment_intent.succeeded":
		result.Outcome = models.OutcomeSuccess

		charge := firstCharge(intent)
		receipt := toString(charge["id"])
		if receipt == "" {
			receipt = toString(intent["id"])
		}
		if receipt != "" {
			result.ReceiptID = &receipt
		}
		if created, ok := toFloat(intent["created"]); ok {
			iso := time.Unix(int64(created), 0).UTC().Format(time.RFC3339)
			result.OccurredAt = &iso
		}
		// Stripe amounts are in minor units.
		if amount, ok := toFloat(charge["amount"]); ok && amount > 0 {
			major := amount / 100
			result.ConfirmedAmount = &major
		} else if amount, ok := toFloat(intent["amount_received"]); ok && amount > 0 {
			major := amount / 100
			result.ConfirmedAmount = &major
		}
		if url := toString(charge["receipt_url"]); url != "" {
			result.Extras["receipt_url"] = url
		}
		if brand := nestedString(charge, "payment_method_details", "card", "brand"); brand != "" {
			result.Extras["card_brand"] = brand
		}
		if last4 := nestedString(charge, "payment_method_details", "card", "last4"); last4 != "" {
			result.Extras["card_last4"] = last4
		}

	case "payment_intent.payment_failed":
		result.Outcome = models.OutcomeFailure
		if lastErr, ok := nested(intent, "last_payment_error"); ok {
			result.Extras["error"] = lastErr
		}

	case "charge.refunded":
		result.Outcome = models.OutcomeRefunded
		result.Extras["refund"] = intent

	default:
		return nil, fmt.Errorf("%w: unhandled event type %s", ErrIgnored, eventType)
	}

	return result, nil
}

func firstCharge(intent map[string]interface{}) map[string]interface{} {
	data, ok := nested(intent, "charges", "data")
	if !ok {
		return map[string]interface{}{}
	}
	list, ok := data.([]interface{})
	if !ok || len(list) == 0 {
		return map[string]interface{}{}
	}
	charge, ok := list[0].(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return charge
}
