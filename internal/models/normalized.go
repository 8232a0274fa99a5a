package models

// Outcome of a normalized provider result.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomePending   = "pending"
	OutcomeCancelled = "cancelled"
	// OutcomeRefunded only occurs on the card path (charge.refunded events).
	OutcomeRefunded = "refunded"
)

// NormalizedResult is the provider-agnostic view of a payment-result
// callback, produced by the per-provider normalizers. Fields the provider did
// not report stay nil/empty.
type NormalizedResult struct {
	// ProviderReference is the provider-side id used to locate the matching
	// transaction. For card callbacks this is the internal transaction id
	// recovered from intent metadata instead.
	ProviderReference string
	// MatchByID additionally matches ProviderReference against the internal
	// transaction id (some Airtel deployments echo our id back).
	MatchByID bool
	// MatchInternalOnly locates the transaction by internal id alone (card
	// path, where the id travels in intent metadata).
	MatchInternalOnly bool

	Outcome         string
	ReceiptID       *string
	ConfirmedAmount *float64
	OccurredAt      *string
	Phone           string
	PayerEmail      string
	PayerName       string

	// RawPayload is the decoded callback body, merged into the transaction's
	// metadata bag under the provider subkey.
	RawPayload map[string]interface{}
	// Extras are flat provider-specific details (result descriptions, status
	// codes, card brand/last4) merged alongside the raw payload.
	Extras map[string]interface{}
}
