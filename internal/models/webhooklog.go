package models

import (
	"time"
)

// WebhookLog records a single webhook delivery attempt. Logs are append-only;
// the set of logs for a transaction is its delivery audit trail.
type WebhookLog struct {
	ID             string                 `bson:"_id" json:"id"`
	TransactionID  string                 `bson:"transaction_id" json:"transaction_id"`
	MerchantID     string                 `bson:"merchant_id" json:"merchant_id"`
	WebhookURL     string                 `bson:"webhook_url" json:"webhook_url"`
	RequestPayload map[string]interface{} `bson:"request_payload" json:"request_payload"`
	ResponseStatus *int                   `bson:"response_status,omitempty" json:"response_status,omitempty"`
	ResponseBody   *string                `bson:"response_body,omitempty" json:"response_body,omitempty"`
	AttemptNumber  int                    `bson:"attempt_number" json:"attempt_number"`
	Success        bool                   `bson:"success" json:"success"`
	ErrorMessage   *string                `bson:"error_message,omitempty" json:"error_message,omitempty"`
	CreatedAt      time.Time              `bson:"created_at" json:"created_at"`
}
