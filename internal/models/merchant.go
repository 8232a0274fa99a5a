package models

import (
	"time"
)

// Merchant owns payment sessions and transactions. The APIKey doubles as the
// HMAC secret for signing outbound webhook envelopes.
type Merchant struct {
	ID           string    `bson:"_id" json:"id"`
	UserID       string    `bson:"user_id" json:"user_id"`
	BusinessName string    `bson:"business_name" json:"business_name"`
	APIKey       string    `bson:"api_key" json:"-"`
	IsActive     bool      `bson:"is_active" json:"is_active"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// PaymentConfig holds per-provider credentials a merchant has configured.
// Only the fields relevant to the capture/reconciliation paths live here;
// provider initiation credentials are managed by the dashboard CRUD.
type PaymentConfig struct {
	ID             string    `bson:"_id" json:"id"`
	MerchantID     string    `bson:"merchant_id" json:"merchant_id"`
	PaymentMethod  string    `bson:"payment_method" json:"payment_method"`
	IsSandbox      bool      `bson:"is_sandbox" json:"is_sandbox"`
	PayPalClientID string    `bson:"paypal_client_id,omitempty" json:"-"`
	PayPalSecret   string    `bson:"paypal_secret,omitempty" json:"-"`
	IsActive       bool      `bson:"is_active" json:"is_active"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}
