package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/payhubprime/payhub-gobackend/internal/metrics"
	"github.com/payhubprime/payhub-gobackend/internal/normalizer"
	"github.com/payhubprime/payhub-gobackend/internal/services"
)

// CallbackHandler terminates the inbound provider callback endpoints. Every
// error path still acknowledges with HTTP 200: a non-200 response would
// trigger unwanted provider-side retries.
type CallbackHandler struct {
	reconcile *services.ReconcileService
	mpesa     *normalizer.MpesaNormalizer
	airtel    *normalizer.AirtelNormalizer
	stripe    *normalizer.StripeNormalizer
}

func NewCallbackHandler(reconcile *services.ReconcileService) *CallbackHandler {
	return &CallbackHandler{
		reconcile: reconcile,
		mpesa:     normalizer.NewMpesaNormalizer(),
		airtel:    normalizer.NewAirtelNormalizer(),
		stripe:    normalizer.NewStripeNormalizer(),
	}
}

// Mpesa handles STK push result callbacks.
func (h *CallbackHandler) Mpesa(w http.ResponseWriter, r *http.Request) {
	h.process(w, r, h.mpesa, map[string]interface{}{
		"ResultCode": 0,
		"ResultDesc": "Accepted",
	})
}

// Airtel handles Airtel Money collection callbacks.
func (h *CallbackHandler) Airtel(w http.ResponseWriter, r *http.Request) {
	h.processWithNotFoundAck(w, r, h.airtel,
		map[string]interface{}{
			"status":  "ACCEPTED",
			"message": "Callback processed successfully",
		},
		map[string]interface{}{
			"status":  "ACCEPTED",
			"message": "Transaction not found but callback accepted",
		})
}

// Stripe handles card-processor webhook events.
func (h *CallbackHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	h.process(w, r, h.stripe, map[string]interface{}{
		"received": true,
	})
}

func (h *CallbackHandler) process(w http.ResponseWriter, r *http.Request, n normalizer.Normalizer, ack map[string]interface{}) {
	h.processWithNotFoundAck(w, r, n, ack, ack)
}

func (h *CallbackHandler) processWithNotFoundAck(w http.ResponseWriter, r *http.Request, n normalizer.Normalizer, ack, notFoundAck map[string]interface{}) {
	provider := n.Provider()
	timer := prometheus.NewTimer(metrics.CallbackLatency.WithLabelValues(provider))
	defer timer.ObserveDuration()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Failed to read %s callback body: %v", provider, err)
		metrics.CallbacksTotal.WithLabelValues(provider, "malformed").Inc()
		respondJSON(w, http.StatusOK, ack)
		return
	}
	log.Printf("%s callback received: %s", provider, string(body))

	result, err := n.Normalize(body)
	if err != nil {
		switch {
		case errors.Is(err, normalizer.ErrIgnored):
			log.Printf("Ignoring %s callback: %v", provider, err)
			metrics.CallbacksTotal.WithLabelValues(provider, "ignored").Inc()
		default:
			log.Printf("Malformed %s callback: %v", provider, err)
			metrics.CallbacksTotal.WithLabelValues(provider, "malformed").Inc()
		}
		respondJSON(w, http.StatusOK, ack)
		return
	}

	if _, err := h.reconcile.Apply(r.Context(), provider, result); err != nil {
		// Accept-and-drop: the provider gets its acknowledgment either way.
		log.Printf("Reconciliation failed for %s callback: %v", provider, err)
		metrics.CallbacksTotal.WithLabelValues(provider, "unmatched").Inc()
		if errors.Is(err, services.ErrTransactionNotFound) {
			respondJSON(w, http.StatusOK, notFoundAck)
		} else {
			respondJSON(w, http.StatusOK, ack)
		}
		return
	}

	metrics.CallbacksTotal.WithLabelValues(provider, result.Outcome).Inc()
	respondJSON(w, http.StatusOK, ack)
}
