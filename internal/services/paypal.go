package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/payhubprime/payhub-gobackend/internal/models"
	"github.com/payhubprime/payhub-gobackend/internal/normalizer"
	"github.com/payhubprime/payhub-gobackend/internal/store"
)

var ErrConfigNotFound = errors.New("PayPal config not found")

// PayPalService finalizes wallet-redirect payments. Capturing an approved
// order is the synchronous counterpart of the async provider callbacks: the
// capture response is normalized and reconciled like any other result.
type PayPalService struct {
	store     store.Store
	reconcile *ReconcileService
	client    *http.Client

	// Base URLs are fields so tests can point them at a local server.
	LiveBaseURL    string
	SandboxBaseURL string
}

func NewPayPalService(st store.Store, reconcile *ReconcileService) *PayPalService {
	return &PayPalService{
		store:          st,
		reconcile:      reconcile,
		client:         &http.Client{Timeout: 10 * time.Second},
		LiveBaseURL:    "https://api-m.paypal.com",
		SandboxBaseURL: "https://api-m.sandbox.paypal.com",
	}
}

type CaptureResult struct {
	Success       bool   `json:"success"`
	Status        string `json:"status"`
	ReceiptNumber string `json:"receiptNumber"`
	TransactionID string `json:"transactionId"`
}

// Capture exchanges the merchant's PayPal credentials for an OAuth token,
// captures the approved order, and reconciles the result.
func (s *PayPalService) Capture(ctx context.Context, orderID, sessionID string) (*CaptureResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.New("session not found")
		}
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}

	txn, err := s.store.GetTransactionByProviderReference(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.New("transaction not found")
		}
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}

	cfg, err := s.store.GetPaymentConfig(ctx, session.MerchantID, "paypal")
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to fetch payment config: %w", err)
	}

	baseURL := s.LiveBaseURL
	if cfg.IsSandbox {
		baseURL = s.SandboxBaseURL
	}

	token, err := s.oauthToken(ctx, baseURL, cfg)
	if err != nil {
		return nil, err
	}

	log.Printf("Capturing PayPal order %s", orderID)
	captureBody, captureOK, err := s.captureOrder(ctx, baseURL, token, orderID)
	if err != nil {
		return nil, err
	}

	result, err := normalizer.NewPayPalNormalizer().Normalize(captureBody)
	if err != nil {
		return nil, fmt.Errorf("unreadable capture response: %w", err)
	}

	if !captureOK || result.Outcome != models.OutcomeSuccess {
		// Record the failed capture before surfacing the error.
		if _, applyErr := s.reconcile.Apply(ctx, "paypal", result); applyErr != nil {
			log.Printf("Failed to record capture failure for order %s: %v", orderID, applyErr)
		}
		return nil, errors.New("failed to capture payment")
	}

	updated, err := s.reconcile.Apply(ctx, "paypal", result)
	if err != nil {
		return nil, err
	}

	receipt := orderID
	if updated.ReceiptNumber != nil {
		receipt = *updated.ReceiptNumber
	}
	return &CaptureResult{
		Success:       true,
		Status:        models.StatusCompleted,
		ReceiptNumber: receipt,
		TransactionID: txn.ID,
	}, nil
}

func (s *PayPalService) oauthToken(ctx context.Context, baseURL string, cfg *models.PaymentConfig) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(cfg.PayPalClientID, cfg.PayPalSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("PayPal auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("PayPal auth failed with status %d: %s", resp.StatusCode, string(body))
	}

	var auth struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", fmt.Errorf("failed to decode PayPal auth response: %w", err)
	}
	if auth.AccessToken == "" {
		return "", errors.New("PayPal auth returned no access token")
	}
	return auth.AccessToken, nil
}

func (s *PayPalService) captureOrder(ctx context.Context, baseURL, token, orderID string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/v2/checkout/orders/"+orderID+"/capture", nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("PayPal capture request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read capture response: %w", err)
	}
	return body, resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
