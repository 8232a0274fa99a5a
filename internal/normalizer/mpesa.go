package normalizer

import (
	"encoding/json"
	"fmt"

	"github.com/payhubprime/payhub-gobackend/internal/models"
)

// MpesaNormalizer handles Safaricom STK push result callbacks.
type MpesaNormalizer struct{}

func NewMpesaNormalizer() *MpesaNormalizer {
	return &MpesaNormalizer{}
}

func (n *MpesaNormalizer) Provider() string { return "mpesa" }

// Normalize parses Body.stkCallback: ResultCode 0 is success, 1032 is a user
// cancellation, anything else a failure. On success the flat CallbackMetadata
// item list carries receipt, amount, timestamp and phone; missing items are
// tolerated. A payload without a result code is malformed.
func (n *MpesaNormalizer) Normalize(payload []byte) (*models.NormalizedResult, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	callback, ok := nested(raw, "Body", "stkCallback")
	if !ok {
		return nil, fmt.Errorf("%w: missing Body.stkCallback", ErrMalformedCallback)
	}
	stk, ok := callback.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: stkCallback is not an object", ErrMalformedCallback)
	}
	codeVal, ok := stk["ResultCode"]
	if !ok {
		return nil, fmt.Errorf("%w: missing ResultCode", ErrMalformedCallback)
	}
	code, ok := toFloat(codeVal)
	if !ok {
		return nil, fmt.Errorf("%w: unreadable ResultCode %v", ErrMalformedCallback, codeVal)
	}

	result := &models.NormalizedResult{
		ProviderReference: toString(stk["CheckoutRequestID"]),
		RawPayload:        raw,
		Extras: map[string]interface{}{
			"result_desc": toString(stk["ResultDesc"]),
		},
	}

	switch int(code) {
	case 0:
		result.Outcome = models.OutcomeSuccess
	case 1032:
		result.Outcome = models.OutcomeCancelled
		return result, nil
	default:
		result.Outcome = models.OutcomeFailure
		return result, nil
	}

	items, ok := nested(stk, "CallbackMetadata", "Item")
	if !ok {
		return result, nil
	}
	list, ok := items.([]interface{})
	if !ok {
		return result, nil
	}
	for _, entry := range list {
		item, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		switch toString(item["Name"]) {
		// Sandbox payloads name the receipt item ReceiptNumber; production
		// sends MpesaReceiptNumber.
		case "MpesaReceiptNumber", "ReceiptNumber":
			receipt := toString(item["Value"])
			result.ReceiptID = &receipt
			result.Extras["mpesa_receipt"] = receipt
		case "TransactionDate":
			iso := convertMpesaTimestamp(toString(item["Value"]))
			result.OccurredAt = &iso
			result.Extras["transaction_date"] = iso
		case "Amount":
			if amount, ok := toFloat(item["Value"]); ok {
				result.ConfirmedAmount = &amount
				result.Extras["amount_paid"] = amount
			}
		case "PhoneNumber":
			result.Phone = toString(item["Value"])
			result.Extras["phone_number"] = result.Phone
		}
	}
	return result, nil
}

// convertMpesaTimestamp slices an M-Pesa YYYYMMDDHHmmss timestamp into
// ISO-8601. Anything that is not 14 digits passes through untouched.
func convertMpesaTimestamp(s string) string {
	if len(s) != 14 {
		return s
	}
	return fmt.Sprintf("%s-%s-%sT%s:%s:%sZ",
		s[0:4], s[4:6], s[6:8], s[8:10], s[10:12], s[12:14])
}
