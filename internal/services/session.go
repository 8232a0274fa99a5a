package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/payhubprime/payhub-gobackend/internal/models"
	"github.com/payhubprime/payhub-gobackend/internal/store"
)

var (
	ErrInvalidAPIKey   = errors.New("invalid API key")
	ErrMerchantInactive = errors.New("merchant account is not active")
)

// SessionService covers the merchant-facing session lifecycle: creating
// checkout sessions and reporting their status.
type SessionService struct {
	store        store.Store
	checkoutBase string
}

func NewSessionService(st store.Store, checkoutBase string) *SessionService {
	return &SessionService{store: st, checkoutBase: checkoutBase}
}

type CreateSessionRequest struct {
	Amount             float64 `json:"amount"`
	Currency           string  `json:"currency"`
	Description        string  `json:"description"`
	CallbackURL        string  `json:"callback_url"`
	SuccessRedirectURL string  `json:"success_redirect_url"`
	FailureRedirectURL string  `json:"failure_redirect_url"`
	CancelRedirectURL  string  `json:"cancel_redirect_url"`
	CustomerEmail      string  `json:"customer_email"`
	CustomerPhone      string  `json:"customer_phone"`
	PaymentMethod      string  `json:"payment_method"`
}

// CreateSession authenticates the merchant by API key and creates a pending
// checkout session.
func (s *SessionService) CreateSession(ctx context.Context, apiKey string, req CreateSessionRequest) (*models.PaymentSession, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	merchant, err := s.store.GetMerchantByAPIKey(ctx, strings.TrimSpace(apiKey))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidAPIKey
		}
		log.Printf("Failed to fetch merchant by api key: %v", err)
		return nil, fmt.Errorf("failed to fetch merchant: %w", err)
	}
	if !merchant.IsActive {
		return nil, ErrMerchantInactive
	}

	if req.Amount <= 0 {
		return nil, errors.New("valid amount is required")
	}
	currency := req.Currency
	if currency == "" {
		currency = "KES"
	}

	session := &models.PaymentSession{
		ID:                 uuid.NewString(),
		MerchantID:         merchant.ID,
		Amount:             req.Amount,
		Currency:           currency,
		Description:        req.Description,
		Status:             "pending",
		PaymentMethod:      req.PaymentMethod,
		CallbackURL:        req.CallbackURL,
		SuccessRedirectURL: req.SuccessRedirectURL,
		FailureRedirectURL: req.FailureRedirectURL,
		CancelRedirectURL:  req.CancelRedirectURL,
		CustomerEmail:      req.CustomerEmail,
		CustomerPhone:      req.CustomerPhone,
		ExpiresAt:          time.Now().Add(24 * time.Hour),
	}
	session.CheckoutURL = s.checkoutBase + "/checkout/" + session.ID

	if err := s.store.InsertSession(ctx, session); err != nil {
		log.Printf("Failed to create payment session: %v", err)
		return nil, fmt.Errorf("failed to create payment session: %w", err)
	}

	log.Printf("Payment session created: %s", session.ID)
	return session, nil
}

// SessionStatus is the merchant-facing view of a session and its latest
// transaction.
type SessionStatus struct {
	SessionID     string                 `json:"session_id"`
	Status        string                 `json:"status"`
	Amount        float64                `json:"amount"`
	Currency      string                 `json:"currency"`
	PaymentMethod string                 `json:"payment_method,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	ExpiresAt     time.Time              `json:"expires_at"`
	Transaction   map[string]interface{} `json:"transaction"`
}

// GetStatus returns the session state for the merchant owning the API key.
func (s *SessionService) GetStatus(ctx context.Context, apiKey, sessionID string) (*SessionStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("payment session not found")
		}
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}

	merchant, err := s.store.GetMerchant(ctx, session.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch merchant: %w", err)
	}
	if merchant.APIKey != strings.TrimSpace(apiKey) {
		return nil, ErrUnauthorized
	}

	status := &SessionStatus{
		SessionID:     session.ID,
		Status:        session.Status,
		Amount:        session.Amount,
		Currency:      session.Currency,
		PaymentMethod: session.PaymentMethod,
		CreatedAt:     session.CreatedAt,
		ExpiresAt:     session.ExpiresAt,
	}

	txn, err := s.store.GetLatestTransactionBySession(ctx, sessionID)
	if err == nil {
		status.Transaction = map[string]interface{}{
			"id":     txn.ID,
			"status": txn.Status,
		}
		if txn.ReceiptNumber != nil {
			status.Transaction["receipt_number"] = *txn.ReceiptNumber
		}
		if txn.TransactionTime != nil {
			status.Transaction["completed_at"] = *txn.TransactionTime
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Printf("Failed to fetch transaction for session %s: %v", sessionID, err)
	}

	return status, nil
}

// GetTransaction fetches a transaction for the dashboard, proving the caller
// owns the merchant account first.
func (s *SessionService) GetTransaction(ctx context.Context, transactionID, userID string) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	txn, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	merchant, err := s.store.GetMerchant(ctx, txn.MerchantID)
	if err != nil {
		return nil, err
	}
	if merchant.UserID != userID {
		return nil, ErrUnauthorized
	}
	return txn, nil
}

// ListWebhookLogs returns the delivery audit trail for a transaction the
// caller owns.
func (s *SessionService) ListWebhookLogs(ctx context.Context, transactionID, userID string) ([]models.WebhookLog, error) {
	if _, err := s.GetTransaction(ctx, transactionID, userID); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.store.ListWebhookLogs(ctx, transactionID)
}
