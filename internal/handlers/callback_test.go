package handlers

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
	"github.com/payhubprime/payhub-gobackend/internal/services"
	"github.com/payhubprime/payhub-gobackend/internal/store"
)

func newCallbackHandler(mem *store.Memory) *CallbackHandler {
	return NewCallbackHandler(services.NewReconcileService(mem, services.NewWebhookService(mem)))
}

func postCallback(t *testing.T, handler http.HandlerFunc, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/callback/test", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	var ack map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	return rec, ack
}

func TestMpesaCallbackSuccess(t *testing.T) {
	mem := store.NewMemory()
	h := newCallbackHandler(mem)
	require.NoError(t, mem.InsertTransaction(context.Background(), &models.Transaction{
		ID:                "txn-1",
		ProviderReference: "ws_CO_1",
		Amount:            500,
		Status:            models.StatusAwaitingConfirmation,
	}))

	rec, ack := postCallback(t, h.Mpesa, `{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_1",
				"ResultCode": 0,
				"ResultDesc": "ok",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 500},
						{"Name": "MpesaReceiptNumber", "Value": "ABC123"}
					]
				}
			}
		}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), ack["ResultCode"])
	assert.Equal(t, "Accepted", ack["ResultDesc"])

	txn, err := mem.GetTransaction(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, txn.Status)
	assert.Equal(t, models.VerificationVerified, txn.VerificationStatus)
}

func TestMpesaCallbackMalformedStillAcked(t *testing.T) {
	mem := store.NewMemory()
	h := newCallbackHandler(mem)

	rec, ack := postCallback(t, h.Mpesa, `not json at all`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), ack["ResultCode"])
}

func TestMpesaCallbackUnmatchedStillAcked(t *testing.T) {
	mem := store.NewMemory()
	h := newCallbackHandler(mem)

	rec, ack := postCallback(t, h.Mpesa, `{
		"Body": {"stkCallback": {"CheckoutRequestID": "unknown", "ResultCode": 0}}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Accepted", ack["ResultDesc"])
}

func TestAirtelCallbackSuccess(t *testing.T) {
	mem := store.NewMemory()
	h := newCallbackHandler(mem)
	require.NoError(t, mem.InsertTransaction(context.Background(), &models.Transaction{
		ID:                "txn-1",
		ProviderReference: "airtel-ref-1",
		Amount:            750,
		Status:            models.StatusProcessing,
	}))

	rec, ack := postCallback(t, h.Airtel, `{
		"transaction": {
			"id": "airtel-ref-1",
			"status": "TS",
			"airtel_money_id": "AM-900",
			"amount": "750.00"
		}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ACCEPTED", ack["status"])
	assert.Equal(t, "Callback processed successfully", ack["message"])

	txn, err := mem.GetTransaction(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, txn.Status)
}

func TestAirtelCallbackNotFoundAck(t *testing.T) {
	mem := store.NewMemory()
	h := newCallbackHandler(mem)

	rec, ack := postCallback(t, h.Airtel, `{
		"transaction": {"id": "unknown-ref", "status": "TS"}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ACCEPTED", ack["status"])
	assert.Equal(t, "Transaction not found but callback accepted", ack["message"])
}

func TestStripeCallbackSuccess(t *testing.T) {
	mem := store.NewMemory()
	h := newCallbackHandler(mem)
	require.NoError(t, mem.InsertTransaction(context.Background(), &models.Transaction{
		ID:     "txn-uuid-9",
		Amount: 500,
		Status: models.StatusProcessing,
	}))

	rec, ack := postCallback(t, h.Stripe, `{
		"type": "payment_intent.succeeded",
		"data": {
			"object": {
				"id": "pi_123",
				"metadata": {"transaction_id": "txn-uuid-9"},
				"charges": {"data": [{"id": "ch_456", "amount": 50000}]}
			}
		}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, ack["received"])

	txn, err := mem.GetTransaction(context.Background(), "txn-uuid-9")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, txn.Status)
	require.NotNil(t, txn.ReceiptNumber)
	assert.Equal(t, "ch_456", *txn.ReceiptNumber)
}

func TestStripeCallbackIgnoredEventAcked(t *testing.T) {
	mem := store.NewMemory()
	h := newCallbackHandler(mem)

	rec, ack := postCallback(t, h.Stripe, `{
		"type": "customer.created",
		"data": {"object": {}}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, ack["received"])
}

func TestStripeCallbackStaleFailureDoesNotRegress(t *testing.T) {
	mem := store.NewMemory()
	h := newCallbackHandler(mem)
	require.NoError(t, mem.InsertTransaction(context.Background(), &models.Transaction{
		ID:     "txn-uuid-9",
		Amount: 500,
		Status: models.StatusCompleted,
	}))

	rec, _ := postCallback(t, h.Stripe, `{
		"type": "payment_intent.payment_failed",
		"data": {
			"object": {
				"metadata": {"transaction_id": "txn-uuid-9"},
				"last_payment_error": {"message": "late failure"}
			}
		}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	txn, err := mem.GetTransaction(context.Background(), "txn-uuid-9")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, txn.Status)
}
