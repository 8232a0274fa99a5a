package models

import (
	"time"
)

// PaymentSession is the checkout session a merchant creates for a customer.
// Transactions reference their parent session; the session carries the
// merchant's callback URL for webhook forwarding.
type PaymentSession struct {
	ID                 string    `bson:"_id" json:"id"`
	MerchantID         string    `bson:"merchant_id" json:"merchant_id"`
	Amount             float64   `bson:"amount" json:"amount"`
	Currency           string    `bson:"currency" json:"currency"`
	Description        string    `bson:"description,omitempty" json:"description,omitempty"`
	Status             string    `bson:"status" json:"status"`
	PaymentMethod      string    `bson:"payment_method,omitempty" json:"payment_method,omitempty"`
	CallbackURL        string    `bson:"callback_url,omitempty" json:"callback_url,omitempty"`
	SuccessRedirectURL string    `bson:"success_redirect_url,omitempty" json:"success_redirect_url,omitempty"`
	FailureRedirectURL string    `bson:"failure_redirect_url,omitempty" json:"failure_redirect_url,omitempty"`
	CancelRedirectURL  string    `bson:"cancel_redirect_url,omitempty" json:"cancel_redirect_url,omitempty"`
	CustomerEmail      string    `bson:"customer_email,omitempty" json:"customer_email,omitempty"`
	CustomerPhone      string    `bson:"customer_phone,omitempty" json:"customer_phone,omitempty"`
	CheckoutURL        string    `bson:"checkout_url,omitempty" json:"checkout_url,omitempty"`
	ExpiresAt          time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	CreatedAt          time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time `bson:"updated_at" json:"updated_at"`
}
