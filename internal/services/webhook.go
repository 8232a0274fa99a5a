package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/payhubprime/payhub-gobackend/internal/metrics"
	"github.com/payhubprime/payhub-gobackend/internal/models"
	"github.com/payhubprime/payhub-gobackend/internal/store"
)

const (
	maxWebhookAttempts = 3
	webhookTimeout     = 10 * time.Second
	maxResponseBody    = 1024
)

var (
	ErrUnauthorized  = errors.New("caller does not own this transaction")
	ErrNoCallbackURL = errors.New("no callback URL configured for this transaction")
)

// DispatchJob is one webhook delivery request: a canonical event for one
// transaction, bound for one merchant URL.
type DispatchJob struct {
	TransactionID string
	MerchantID    string
	WebhookURL    string
	Event         string
	Data          map[string]interface{}
}

// DeliveryResult summarizes a dispatch invocation. Delivery failure is
// reported here, never as an error.
type DeliveryResult struct {
	Success  bool   `json:"success"`
	Attempts int    `json:"attempts"`
	Message  string `json:"message"`
}

// WebhookService signs and delivers canonical events to merchant endpoints
// with bounded retries, recording every attempt in the webhook log. A small
// worker pool decouples inbound callback latency from delivery latency.
type WebhookService struct {
	store  store.Store
	client *http.Client

	// sleep is swapped out in tests so retries don't block.
	sleep func(time.Duration)

	jobs chan DispatchJob
	wg   sync.WaitGroup
}

func NewWebhookService(st store.Store) *WebhookService {
	return &WebhookService{
		store:  st,
		client: &http.Client{Timeout: webhookTimeout},
		sleep:  time.Sleep,
		jobs:   make(chan DispatchJob, 64),
	}
}

// Start launches n delivery workers.
func (s *WebhookService) Start(n int) {
	for i := 0; i < n; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for job := range s.jobs {
				s.Dispatch(context.Background(), job)
			}
		}()
	}
}

// Stop drains queued jobs and waits for in-flight deliveries to finish.
func (s *WebhookService) Stop() {
	close(s.jobs)
	s.wg.Wait()
}

// Enqueue hands a job to the worker pool without blocking the caller. If the
// queue is full the job is delivered on its own goroutine instead of being
// dropped.
func (s *WebhookService) Enqueue(job DispatchJob) {
	select {
	case s.jobs <- job:
	default:
		log.Printf("Webhook queue full, delivering %s inline", job.TransactionID)
		go s.Dispatch(context.Background(), job)
	}
}

// Sign computes the hex HMAC-SHA256 of payload under the merchant secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Dispatch delivers one event: up to 3 attempts with 1s/2s backoff, one log
// record per attempt, delivery bookkeeping written after the loop. Attempt
// numbering restarts at 1 for every invocation.
func (s *WebhookService) Dispatch(ctx context.Context, job DispatchJob) *DeliveryResult {
	envelope := map[string]interface{}{
		"event":     job.Event,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data":      job.Data,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("Failed to marshal webhook envelope for %s: %v", job.TransactionID, err)
		return &DeliveryResult{Success: false, Message: "failed to build envelope"}
	}

	// The merchant's API key is the HMAC secret. A missing merchant record
	// still delivers, unsigned, matching the dashboard's behavior.
	signature := ""
	merchant, err := s.store.GetMerchant(ctx, job.MerchantID)
	if err != nil {
		log.Printf("Failed to fetch merchant %s for signing: %v", job.MerchantID, err)
	} else {
		signature = Sign(body, merchant.APIKey)
	}

	var (
		success   bool
		attempt   int
		lastError string
	)

	for attempt = 1; attempt <= maxWebhookAttempts; attempt++ {
		log.Printf("Webhook attempt %d/%d to %s", attempt, maxWebhookAttempts, job.WebhookURL)

		status, respBody, attemptErr := s.post(ctx, job, body, signature)

		logEntry := &models.WebhookLog{
			TransactionID:  job.TransactionID,
			MerchantID:     job.MerchantID,
			WebhookURL:     job.WebhookURL,
			RequestPayload: envelope,
			AttemptNumber:  attempt,
		}
		if status != 0 {
			st := status
			logEntry.ResponseStatus = &st
			truncated := truncate(respBody, maxResponseBody)
			logEntry.ResponseBody = &truncated
		}

		if attemptErr == nil && status >= 200 && status < 300 {
			success = true
			logEntry.Success = true
			metrics.WebhookAttemptsTotal.WithLabelValues("success").Inc()
		} else {
			if attemptErr != nil {
				lastError = attemptErr.Error()
			} else {
				lastError = fmt.Sprintf("HTTP %d: %s", status, truncate(respBody, maxResponseBody))
			}
			logEntry.ErrorMessage = &lastError
			metrics.WebhookAttemptsTotal.WithLabelValues("failure").Inc()
			log.Printf("Webhook attempt %d failed: %s", attempt, lastError)
		}

		if err := s.store.InsertWebhookLog(ctx, logEntry); err != nil {
			log.Printf("Failed to record webhook attempt for %s: %v", job.TransactionID, err)
		}

		if success {
			log.Printf("Webhook delivered successfully on attempt %d", attempt)
			break
		}
		if attempt < maxWebhookAttempts {
			// Exponential backoff: 1s, 2s.
			s.sleep(time.Duration(1<<(attempt-1)) * time.Second)
		}
	}
	if attempt > maxWebhookAttempts {
		attempt = maxWebhookAttempts
	}

	if err := s.store.UpdateWebhookDelivery(ctx, job.TransactionID, success, attempt, time.Now()); err != nil {
		log.Printf("Failed to update delivery bookkeeping for %s: %v", job.TransactionID, err)
	}

	if success {
		metrics.WebhookDeliveriesTotal.WithLabelValues("delivered").Inc()
		return &DeliveryResult{
			Success:  true,
			Attempts: attempt,
			Message:  "Webhook delivered successfully",
		}
	}
	metrics.WebhookDeliveriesTotal.WithLabelValues("failed").Inc()
	return &DeliveryResult{
		Success:  false,
		Attempts: attempt,
		Message:  fmt.Sprintf("Webhook delivery failed after %d attempts: %s", attempt, lastError),
	}
}

func (s *WebhookService) post(ctx context.Context, job DispatchJob, body []byte, signature string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", job.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)
	req.Header.Set("X-Webhook-Event", job.Event)
	req.Header.Set("User-Agent", "PaymentGateway-Webhook/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	return resp.StatusCode, string(respBody), nil
}

// RetryWebhook re-dispatches the canonical event for a previously recorded
// transaction, after proving the caller owns the merchant account. Attempt
// numbering restarts for the fresh invocation.
func (s *WebhookService) RetryWebhook(ctx context.Context, transactionID, userID string) (*DeliveryResult, error) {
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

	if txn.SessionID == "" {
		return nil, ErrNoCallbackURL
	}
	session, err := s.store.GetSession(ctx, txn.SessionID)
	if err != nil {
		return nil, err
	}
	if session.CallbackURL == "" {
		return nil, ErrNoCallbackURL
	}

	event := "payment.failed"
	if txn.Status == models.StatusCompleted {
		event = "payment.completed"
	}

	result := s.Dispatch(ctx, DispatchJob{
		TransactionID: txn.ID,
		MerchantID:    txn.MerchantID,
		WebhookURL:    session.CallbackURL,
		Event:         event,
		Data:          EventData(txn),
	})
	return result, nil
}

// EventData builds the canonical data payload for a transaction's webhook
// envelope.
func EventData(txn *models.Transaction) map[string]interface{} {
	data := map[string]interface{}{
		"transaction_id": txn.ID,
		"status":         txn.Status,
		"amount":         txn.Amount,
		"currency":       txn.Currency,
		"payment_method": txn.PaymentMethod,
	}
	if txn.SessionID != "" {
		data["session_id"] = txn.SessionID
	}
	if txn.ReceiptNumber != nil {
		data["receipt_number"] = *txn.ReceiptNumber
	}
	if txn.TransactionTime != nil {
		data["transaction_timestamp"] = *txn.TransactionTime
	}
	if txn.CustomerPhone != "" {
		data["customer_phone"] = txn.CustomerPhone
	}
	if txn.VerificationStatus != "" {
		data["verification_status"] = txn.VerificationStatus
	}
	if txn.Metadata != nil {
		data["metadata"] = txn.Metadata
	}
	return data
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
