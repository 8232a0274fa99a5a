package models

import (
	"math"
	"time"
)

// Transaction statuses. processing is the initial state at creation;
// completed, failed, cancelled and refunded are terminal for the
// reconciliation engine.
const (
	StatusProcessing           = "processing"
	StatusAwaitingConfirmation = "awaiting_confirmation"
	StatusCompleted            = "completed"
	StatusFailed               = "failed"
	StatusCancelled            = "cancelled"
	StatusRefunded             = "refunded"
)

// Verification statuses, derived when a completed result is reconciled.
const (
	VerificationUnverified = "unverified"
	VerificationVerified   = "verified"
	VerificationMismatched = "mismatched"
)

// VerificationEpsilon is the tolerance when comparing the confirmed amount
// against the expected amount.
const VerificationEpsilon = 0.01

type Transaction struct {
	ID                 string                 `bson:"_id" json:"id"`
	SessionID          string                 `bson:"session_id,omitempty" json:"session_id,omitempty"`
	MerchantID         string                 `bson:"merchant_id" json:"merchant_id"`
	ProviderReference  string                 `bson:"provider_reference,omitempty" json:"provider_reference,omitempty"`
	PaymentMethod      string                 `bson:"payment_method" json:"payment_method"`
	Amount             float64                `bson:"amount" json:"amount"`
	Currency           string                 `bson:"currency" json:"currency"`
	AmountPaid         *float64               `bson:"amount_paid,omitempty" json:"amount_paid,omitempty"`
	Status             string                 `bson:"status" json:"status"`
	VerificationStatus string                 `bson:"verification_status" json:"verification_status"`
	ReceiptNumber      *string                `bson:"receipt_number,omitempty" json:"receipt_number,omitempty"`
	TransactionTime    *string                `bson:"transaction_timestamp,omitempty" json:"transaction_timestamp,omitempty"`
	CustomerPhone      string                 `bson:"customer_phone,omitempty" json:"customer_phone,omitempty"`
	CustomerEmail      string                 `bson:"customer_email,omitempty" json:"customer_email,omitempty"`
	CustomerName       string                 `bson:"customer_name,omitempty" json:"customer_name,omitempty"`
	WebhookDelivered   bool                   `bson:"webhook_delivered" json:"webhook_delivered"`
	WebhookAttempts    int                    `bson:"webhook_attempts" json:"webhook_attempts"`
	WebhookLastAttempt *time.Time             `bson:"webhook_last_attempt,omitempty" json:"webhook_last_attempt,omitempty"`
	Metadata           map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt          time.Time              `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time              `bson:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether no further provider callback may change the
// transaction's status. Providers have been observed to redeliver stale
// callbacks, so terminal transactions only ever merge metadata.
func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// VerifyAmount compares a confirmed amount against the expected amount and
// returns the resulting verification status.
func (t *Transaction) VerifyAmount(paid float64) string {
	if math.Abs(paid-t.Amount) < VerificationEpsilon {
		return VerificationVerified
	}
	return VerificationMismatched
}
