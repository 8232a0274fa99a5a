package services

import (
	"context"
	"errors"
	"log"

	"github.com/payhubprime/payhub-gobackend/internal/models"
	"github.com/payhubprime/payhub-gobackend/internal/store"
)

var (
	ErrTransactionNotFound = errors.New("no matching transaction for callback")
)

// ReconcileService applies normalized provider results to stored
// transactions. It is the only writer of status and verification fields.
type ReconcileService struct {
	store   store.Store
	webhook *WebhookService
}

func NewReconcileService(st store.Store, webhook *WebhookService) *ReconcileService {
	return &ReconcileService{store: st, webhook: webhook}
}

// Apply matches a normalized result to its transaction and commits the state
// transition. Callers on the inbound path acknowledge the provider regardless
// of the returned error; it exists for logging and tests. Persistence
// failures are logged and swallowed here so a storage hiccup never induces a
// provider retry storm.
func (s *ReconcileService) Apply(ctx context.Context, provider string, result *models.NormalizedResult) (*models.Transaction, error) {
	txn, err := s.locate(ctx, result)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("Transaction not found for %s reference %s", provider, result.ProviderReference)
			return nil, ErrTransactionNotFound
		}
		log.Printf("Failed to fetch transaction for %s reference %s: %v", provider, result.ProviderReference, err)
		return nil, err
	}

	newStatus := statusFor(result.Outcome)
	merged := mergeMetadata(txn.Metadata, provider, result)

	// Terminal-state protection: stale or reordered callbacks may still merge
	// their payload, but never regress the status. The one terminal
	// transition is completed -> refunded on the card path.
	if txn.IsTerminal() && !(txn.Status == models.StatusCompleted && newStatus == models.StatusRefunded) {
		log.Printf("Transaction %s already %s, merging metadata only", txn.ID, txn.Status)
		if err := s.store.UpdateTransaction(ctx, txn.ID, store.TransactionUpdate{Metadata: merged}); err != nil {
			log.Printf("Failed to merge metadata for %s: %v", txn.ID, err)
		}
		txn.Metadata = merged
		return txn, nil
	}

	upd := store.TransactionUpdate{
		Status:   &newStatus,
		Metadata: merged,
	}

	verification := txn.VerificationStatus
	if result.Outcome == models.OutcomeSuccess {
		verification = models.VerificationUnverified
		if result.ConfirmedAmount != nil {
			verification = txn.VerifyAmount(*result.ConfirmedAmount)
			if verification == models.VerificationMismatched {
				log.Printf("Amount mismatch on %s: expected %.2f, got %.2f", txn.ID, txn.Amount, *result.ConfirmedAmount)
			}
			upd.AmountPaid = result.ConfirmedAmount
		}
		upd.VerificationStatus = &verification

		if result.ReceiptID != nil {
			upd.ReceiptNumber = result.ReceiptID
			// The provider's own receipt becomes the reference going forward.
			upd.ProviderReference = result.ReceiptID
		}
		if result.OccurredAt != nil {
			upd.TransactionTime = result.OccurredAt
		}
		if result.Phone != "" {
			upd.CustomerPhone = &result.Phone
		}
		if result.PayerEmail != "" {
			upd.CustomerEmail = &result.PayerEmail
		}
		if result.PayerName != "" {
			upd.CustomerName = &result.PayerName
		}
	}

	log.Printf("Updating transaction %s to status: %s", txn.ID, newStatus)
	if err := s.store.UpdateTransaction(ctx, txn.ID, upd); err != nil {
		log.Printf("Failed to update transaction %s: %v", txn.ID, err)
		return txn, nil
	}

	applyUpdate(txn, upd)
	txn.VerificationStatus = verificationOr(upd.VerificationStatus, txn.VerificationStatus)

	// Propagate the coarse status to the parent session. Refunds happen long
	// after checkout and leave the session alone.
	if txn.SessionID != "" && newStatus != models.StatusRefunded {
		if err := s.store.UpdateSessionStatus(ctx, txn.SessionID, newStatus); err != nil {
			log.Printf("Failed to update session %s status: %v", txn.SessionID, err)
		}
	}

	// Completed payments are forwarded to the merchant's webhook URL off the
	// inbound request path.
	if newStatus == models.StatusCompleted && txn.SessionID != "" {
		session, err := s.store.GetSession(ctx, txn.SessionID)
		if err != nil {
			log.Printf("Failed to fetch session %s for webhook forwarding: %v", txn.SessionID, err)
		} else if session.CallbackURL != "" {
			s.webhook.Enqueue(DispatchJob{
				TransactionID: txn.ID,
				MerchantID:    txn.MerchantID,
				WebhookURL:    session.CallbackURL,
				Event:         "payment.completed",
				Data:          EventData(txn),
			})
		}
	}

	return txn, nil
}

func (s *ReconcileService) locate(ctx context.Context, result *models.NormalizedResult) (*models.Transaction, error) {
	switch {
	case result.MatchInternalOnly:
		return s.store.GetTransaction(ctx, result.ProviderReference)
	case result.MatchByID:
		return s.store.GetTransactionByReferenceOrID(ctx, result.ProviderReference)
	default:
		return s.store.GetTransactionByProviderReference(ctx, result.ProviderReference)
	}
}

func statusFor(outcome string) string {
	switch outcome {
	case models.OutcomeSuccess:
		return models.StatusCompleted
	case models.OutcomeCancelled:
		return models.StatusCancelled
	case models.OutcomePending:
		return models.StatusProcessing
	case models.OutcomeRefunded:
		return models.StatusRefunded
	default:
		return models.StatusFailed
	}
}

// mergeMetadata folds the raw payload (under a provider subkey) and the flat
// extras into a copy of the existing bag. Earlier provisional callbacks and
// intermediate polls are preserved.
func mergeMetadata(existing map[string]interface{}, provider string, result *models.NormalizedResult) map[string]interface{} {
	merged := make(map[string]interface{}, len(existing)+len(result.Extras)+1)
	for k, v := range existing {
		merged[k] = v
	}
	if result.RawPayload != nil {
		merged[provider+"_callback"] = result.RawPayload
	}
	for k, v := range result.Extras {
		merged[k] = v
	}
	return merged
}

func applyUpdate(txn *models.Transaction, upd store.TransactionUpdate) {
	if upd.Status != nil {
		txn.Status = *upd.Status
	}
	if upd.ProviderReference != nil {
		txn.ProviderReference = *upd.ProviderReference
	}
	if upd.ReceiptNumber != nil {
		txn.ReceiptNumber = upd.ReceiptNumber
	}
	if upd.TransactionTime != nil {
		txn.TransactionTime = upd.TransactionTime
	}
	if upd.AmountPaid != nil {
		txn.AmountPaid = upd.AmountPaid
	}
	if upd.CustomerPhone != nil {
		txn.CustomerPhone = *upd.CustomerPhone
	}
	if upd.CustomerEmail != nil {
		txn.CustomerEmail = *upd.CustomerEmail
	}
	if upd.CustomerName != nil {
		txn.CustomerName = *upd.CustomerName
	}
	if upd.Metadata != nil {
		txn.Metadata = upd.Metadata
	}
}

func verificationOr(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}
