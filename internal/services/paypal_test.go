package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payhubprime/payhub-gobackend/internal/models"
	"github.com/payhubprime/payhub-gobackend/internal/store"
)

// fakePayPal serves the OAuth token and capture endpoints.
func fakePayPal(t *testing.T, captureStatus string, captureCode int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/oauth2/token":
			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "client-id", user)
			assert.Equal(t, "client-secret", pass)
			json.NewEncoder(w).Encode(map[string]string{"access_token": "fake-token"})
		case strings.HasSuffix(r.URL.Path, "/capture"):
			assert.Equal(t, "Bearer fake-token", r.Header.Get("Authorization"))
			w.WriteHeader(captureCode)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":     "ORDER-1",
				"status": captureStatus,
				"purchase_units": []map[string]interface{}{{
					"payments": map[string]interface{}{
						"captures": []map[string]interface{}{{
							"id":     "CAPTURE-9",
							"amount": map[string]interface{}{"value": "500.00"},
						}},
					},
				}},
				"payer": map[string]interface{}{
					"email_address": "buyer@example.com",
					"name":          map[string]interface{}{"given_name": "Jane", "surname": "Doe"},
				},
			})
		default:
			t.Errorf("unexpected PayPal request: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func seedPayPal(t *testing.T, mem *store.Memory, sandbox bool) {
	t.Helper()
	require.NoError(t, mem.InsertSession(context.Background(), &models.PaymentSession{
		ID: "sess-1", MerchantID: "m-1",
	}))
	require.NoError(t, mem.InsertTransaction(context.Background(), &models.Transaction{
		ID:                "txn-1",
		SessionID:         "sess-1",
		MerchantID:        "m-1",
		ProviderReference: "ORDER-1",
		PaymentMethod:     "paypal",
		Amount:            500,
		Status:            models.StatusProcessing,
	}))
	mem.InsertPaymentConfig(&models.PaymentConfig{
		MerchantID:     "m-1",
		PaymentMethod:  "paypal",
		IsSandbox:      sandbox,
		PayPalClientID: "client-id",
		PayPalSecret:   "client-secret",
	})
}

func TestPayPalCaptureSuccess(t *testing.T) {
	mem := store.NewMemory()
	seedPayPal(t, mem, true)
	server := fakePayPal(t, "COMPLETED", http.StatusCreated)
	defer server.Close()

	svc := NewPayPalService(mem, newReconcile(mem))
	svc.SandboxBaseURL = server.URL

	result, err := svc.Capture(context.Background(), "ORDER-1", "sess-1")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, models.StatusCompleted, result.Status)
	assert.Equal(t, "CAPTURE-9", result.ReceiptNumber)
	assert.Equal(t, "txn-1", result.TransactionID)

	txn, err := mem.GetTransaction(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, txn.Status)
	assert.Equal(t, models.VerificationVerified, txn.VerificationStatus)
	assert.Equal(t, "buyer@example.com", txn.CustomerEmail)
	assert.Equal(t, "Jane Doe", txn.CustomerName)
}

func TestPayPalCaptureDeclined(t *testing.T) {
	mem := store.NewMemory()
	seedPayPal(t, mem, true)
	server := fakePayPal(t, "DECLINED", http.StatusOK)
	defer server.Close()

	svc := NewPayPalService(mem, newReconcile(mem))
	svc.SandboxBaseURL = server.URL

	_, err := svc.Capture(context.Background(), "ORDER-1", "sess-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to capture payment")

	// The failed capture is still recorded against the transaction.
	txn, terr := mem.GetTransaction(context.Background(), "txn-1")
	require.NoError(t, terr)
	assert.Equal(t, models.StatusFailed, txn.Status)
}

func TestPayPalCaptureMissingConfig(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.InsertSession(context.Background(), &models.PaymentSession{
		ID: "sess-1", MerchantID: "m-1",
	}))
	require.NoError(t, mem.InsertTransaction(context.Background(), &models.Transaction{
		ID: "txn-1", SessionID: "sess-1", ProviderReference: "ORDER-1",
	}))

	svc := NewPayPalService(mem, newReconcile(mem))
	_, err := svc.Capture(context.Background(), "ORDER-1", "sess-1")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestPayPalCaptureUnknownSession(t *testing.T) {
	mem := store.NewMemory()
	svc := NewPayPalService(mem, newReconcile(mem))

	_, err := svc.Capture(context.Background(), "ORDER-1", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}
