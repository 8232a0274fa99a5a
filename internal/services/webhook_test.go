package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payhubprime/payhub-gobackend/internal/models"
	"github.com/payhubprime/payhub-gobackend/internal/store"
)

// newTestWebhook returns a service whose retry backoff records instead of
// sleeping.
func newTestWebhook(mem *store.Memory) (*WebhookService, *[]time.Duration) {
	svc := NewWebhookService(mem)
	var mu sync.Mutex
	slept := &[]time.Duration{}
	svc.sleep = func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		*slept = append(*slept, d)
	}
	return svc, slept
}

func seedDelivery(t *testing.T, mem *store.Memory) {
	t.Helper()
	mem.InsertMerchant(&models.Merchant{ID: "m-1", UserID: "user-1", APIKey: "sk_test_secret"})
	require.NoError(t, mem.InsertTransaction(context.Background(), &models.Transaction{
		ID:         "txn-1",
		SessionID:  "sess-1",
		MerchantID: "m-1",
		Amount:     500,
		Currency:   "KES",
		Status:     models.StatusCompleted,
	}))
}

func TestDispatchSuccessFirstAttempt(t *testing.T) {
	mem := store.NewMemory()
	svc, slept := newTestWebhook(mem)
	seedDelivery(t, mem)

	var (
		gotBody      []byte
		gotSignature string
		gotEvent     string
		gotAgent     string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get("X-Webhook-Signature")
		gotEvent = r.Header.Get("X-Webhook-Event")
		gotAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	result := svc.Dispatch(context.Background(), DispatchJob{
		TransactionID: "txn-1",
		MerchantID:    "m-1",
		WebhookURL:    server.URL,
		Event:         "payment.completed",
		Data:          map[string]interface{}{"transaction_id": "txn-1"},
	})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, *slept)

	// The signature must verify against the exact bytes the merchant received.
	assert.Equal(t, Sign(gotBody, "sk_test_secret"), gotSignature)
	assert.Equal(t, "payment.completed", gotEvent)
	assert.Equal(t, "PaymentGateway-Webhook/1.0", gotAgent)

	txn, err := mem.GetTransaction(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.True(t, txn.WebhookDelivered)
	assert.Equal(t, 1, txn.WebhookAttempts)
	assert.NotNil(t, txn.WebhookLastAttempt)

	logs, err := mem.ListWebhookLogs(context.Background(), "txn-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
	assert.Equal(t, 1, logs[0].AttemptNumber)
}

func TestDispatchExhaustsRetries(t *testing.T) {
	mem := store.NewMemory()
	svc, slept := newTestWebhook(mem)
	seedDelivery(t, mem)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "merchant down", http.StatusInternalServerError)
	}))
	defer server.Close()

	result := svc.Dispatch(context.Background(), DispatchJob{
		TransactionID: "txn-1",
		MerchantID:    "m-1",
		WebhookURL:    server.URL,
		Event:         "payment.completed",
		Data:          map[string]interface{}{},
	})

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Contains(t, result.Message, "failed after 3 attempts")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)

	txn, err := mem.GetTransaction(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.False(t, txn.WebhookDelivered)
	assert.Equal(t, 3, txn.WebhookAttempts)

	logs, err := mem.ListWebhookLogs(context.Background(), "txn-1")
	require.NoError(t, err)
	require.Len(t, logs, 3)
	for _, l := range logs {
		assert.False(t, l.Success)
		require.NotNil(t, l.ResponseStatus)
		assert.Equal(t, http.StatusInternalServerError, *l.ResponseStatus)
		require.NotNil(t, l.ErrorMessage)
	}
}

func TestDispatchRecoversOnSecondAttempt(t *testing.T) {
	mem := store.NewMemory()
	svc, slept := newTestWebhook(mem)
	seedDelivery(t, mem)

	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	result := svc.Dispatch(context.Background(), DispatchJob{
		TransactionID: "txn-1",
		MerchantID:    "m-1",
		WebhookURL:    server.URL,
		Event:         "payment.completed",
		Data:          map[string]interface{}{},
	})

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, []time.Duration{time.Second}, *slept)

	logs, err := mem.ListWebhookLogs(context.Background(), "txn-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)

	txn, err := mem.GetTransaction(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.True(t, txn.WebhookDelivered)
	assert.Equal(t, 2, txn.WebhookAttempts)
}

func TestDispatchUnreachableURL(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestWebhook(mem)
	seedDelivery(t, mem)

	result := svc.Dispatch(context.Background(), DispatchJob{
		TransactionID: "txn-1",
		MerchantID:    "m-1",
		WebhookURL:    "http://127.0.0.1:1/hook",
		Event:         "payment.completed",
		Data:          map[string]interface{}{},
	})

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)

	logs, err := mem.ListWebhookLogs(context.Background(), "txn-1")
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Nil(t, logs[0].ResponseStatus)
	assert.NotNil(t, logs[0].ErrorMessage)
}

func TestSign(t *testing.T) {
	payload := []byte(`{"event":"payment.completed"}`)

	first := Sign(payload, "secret")
	assert.Equal(t, first, Sign(payload, "secret"))
	assert.Len(t, first, 64)
	assert.NotEqual(t, first, Sign(payload, "other-secret"))
	assert.NotEqual(t, first, Sign([]byte(`{"event":"payment.failed"}`), "secret"))
}

func TestRetryWebhookOwnership(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestWebhook(mem)
	seedDelivery(t, mem)

	_, err := svc.RetryWebhook(context.Background(), "txn-1", "someone-else")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRetryWebhookNoCallbackURL(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestWebhook(mem)
	seedDelivery(t, mem)
	require.NoError(t, mem.InsertSession(context.Background(), &models.PaymentSession{
		ID: "sess-1", MerchantID: "m-1",
	}))

	_, err := svc.RetryWebhook(context.Background(), "txn-1", "user-1")
	assert.ErrorIs(t, err, ErrNoCallbackURL)
}

func TestRetryWebhookEventSelection(t *testing.T) {
	tests := []struct {
		status string
		event  string
	}{
		{models.StatusCompleted, "payment.completed"},
		{models.StatusFailed, "payment.failed"},
	}
	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			mem := store.NewMemory()
			svc, _ := newTestWebhook(mem)
			mem.InsertMerchant(&models.Merchant{ID: "m-1", UserID: "user-1", APIKey: "k"})

			var gotEvent string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotEvent = r.Header.Get("X-Webhook-Event")
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			require.NoError(t, mem.InsertTransaction(context.Background(), &models.Transaction{
				ID: "txn-1", SessionID: "sess-1", MerchantID: "m-1", Status: tc.status,
			}))
			require.NoError(t, mem.InsertSession(context.Background(), &models.PaymentSession{
				ID: "sess-1", MerchantID: "m-1", CallbackURL: server.URL,
			}))

			result, err := svc.RetryWebhook(context.Background(), "txn-1", "user-1")
			require.NoError(t, err)
			assert.True(t, result.Success)
			assert.Equal(t, tc.event, gotEvent)

			// A fresh invocation numbers its attempts from 1.
			logs, lerr := mem.ListWebhookLogs(context.Background(), "txn-1")
			require.NoError(t, lerr)
			require.Len(t, logs, 1)
			assert.Equal(t, 1, logs[0].AttemptNumber)
		})
	}
}

func TestRetryWebhookTransactionNotFound(t *testing.T) {
	mem := store.NewMemory()
	svc, _ := newTestWebhook(mem)

	_, err := svc.RetryWebhook(context.Background(), "missing", "user-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
