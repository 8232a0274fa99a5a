package store

import (
	"context"
	"errors"
	"time"

	"github.com/payhubprime/payhub-gobackend/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
)

// TransactionUpdate carries the fields a reconcile or capture may set. Nil
// fields are left untouched; Metadata replaces the stored bag with the merged
// one computed by the caller.
type TransactionUpdate struct {
	Status             *string
	ProviderReference  *string
	ReceiptNumber      *string
	TransactionTime    *string
	AmountPaid         *float64
	VerificationStatus *string
	CustomerPhone      *string
	CustomerEmail      *string
	CustomerName       *string
	Metadata           map[string]interface{}
}

// Store is the persistence boundary for the reconciliation and delivery
// subsystem. Services depend on this interface so they can run against the
// in-memory implementation in tests.
type Store interface {
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	GetTransactionByProviderReference(ctx context.Context, ref string) (*models.Transaction, error)
	// GetTransactionByReferenceOrID matches ref against provider_reference or
	// the internal id, whichever hits first.
	GetTransactionByReferenceOrID(ctx context.Context, ref string) (*models.Transaction, error)
	GetLatestTransactionBySession(ctx context.Context, sessionID string) (*models.Transaction, error)
	InsertTransaction(ctx context.Context, txn *models.Transaction) error
	UpdateTransaction(ctx context.Context, id string, upd TransactionUpdate) error
	UpdateWebhookDelivery(ctx context.Context, id string, delivered bool, attempts int, at time.Time) error

	GetSession(ctx context.Context, id string) (*models.PaymentSession, error)
	InsertSession(ctx context.Context, session *models.PaymentSession) error
	UpdateSessionStatus(ctx context.Context, id, status string) error

	GetMerchant(ctx context.Context, id string) (*models.Merchant, error)
	GetMerchantByAPIKey(ctx context.Context, apiKey string) (*models.Merchant, error)
	GetPaymentConfig(ctx context.Context, merchantID, method string) (*models.PaymentConfig, error)

	InsertWebhookLog(ctx context.Context, logEntry *models.WebhookLog) error
	ListWebhookLogs(ctx context.Context, transactionID string) ([]models.WebhookLog, error)
}
