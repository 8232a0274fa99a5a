package normalizer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/payhubprime/payhub-gobackend/internal/models"
)

// PayPalNormalizer handles order capture responses. Unlike the other
// providers the result arrives synchronously from our own capture call, and
// payer identity flows into the transaction's customer fields.
type PayPalNormalizer struct{}

func NewPayPalNormalizer() *PayPalNormalizer {
	return &PayPalNormalizer{}
}

func (n *PayPalNormalizer) Provider() string { return "paypal" }

// Normalize parses a v2 checkout capture response. The order id is the
// provider reference the transaction was created with.
func (n *PayPalNormalizer) Normalize(payload []byte) (*models.NormalizedResult, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	orderID := toString(raw["id"])
	if orderID == "" {
		return nil, fmt.Errorf("%w: missing order id", ErrMalformedCallback)
	}
	status := toString(raw["status"])

	result := &models.NormalizedResult{
		ProviderReference: orderID,
		RawPayload:        raw,
		Extras: map[string]interface{}{
			"paypal_order_id": orderID,
			"payment_status":  status,
		},
	}

	if status != "COMPLETED" {
		result.Outcome = models.OutcomeFailure
		return result, nil
	}
	result.Outcome = models.OutcomeSuccess

	capture := firstCapture(raw)
	receipt := toString(capture["id"])
	if receipt == "" {
		receipt = orderID
	}
	result.ReceiptID = &receipt
	result.Extras["paypal_transaction_id"] = receipt

	if amountValue := nestedString(capture, "amount", "value"); amountValue != "" {
		if amount, ok := toFloat(amountValue); ok {
			result.ConfirmedAmount = &amount
		}
	}

	occurred := toString(capture["create_time"])
	if occurred == "" {
		occurred = time.Now().UTC().Format(time.RFC3339)
	}
	result.OccurredAt = &occurred

	if payer, ok := nested(raw, "payer"); ok {
		if p, ok := payer.(map[string]interface{}); ok {
			result.PayerEmail = toString(p["email_address"])
			name := strings.TrimSpace(nestedString(p, "name", "given_name") + " " + nestedString(p, "name", "surname"))
			result.PayerName = name
			if id := toString(p["payer_id"]); id != "" {
				result.Extras["payer_id"] = id
			}
			if result.PayerEmail != "" {
				result.Extras["payer_email"] = result.PayerEmail
			}
		}
	}

	return result, nil
}

func firstCapture(raw map[string]interface{}) map[string]interface{} {
	units, ok := raw["purchase_units"].([]interface{})
	if !ok || len(units) == 0 {
		return map[string]interface{}{}
	}
	unit, ok := units[0].(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	captures, ok := nested(unit, "payments", "captures")
	if !ok {
		return map[string]interface{}{}
	}
	list, ok := captures.([]interface{})
	if !ok || len(list) == 0 {
		return map[string]interface{}{}
	}
	capture, ok := list[0].(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return capture
}
