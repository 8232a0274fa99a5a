package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/payhubprime/payhub-gobackend/internal/services"
	"github.com/payhubprime/payhub-gobackend/internal/store"
)

// WebhookHandler exposes the manual retry entrypoint and the delivery audit
// trail. Unlike the inbound callback endpoints, these propagate errors.
type WebhookHandler struct {
	webhook   *services.WebhookService
	session   *services.SessionService
	jwtSecret []byte
}

func NewWebhookHandler(webhook *services.WebhookService, session *services.SessionService, jwtSecret []byte) *WebhookHandler {
	return &WebhookHandler{webhook: webhook, session: session, jwtSecret: jwtSecret}
}

// Retry re-dispatches the webhook for a transaction owned by the caller.
func (h *WebhookHandler) Retry(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r, h.jwtSecret)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	transactionID := mux.Vars(r)["transactionID"]
	if transactionID == "" {
		respondError(w, http.StatusBadRequest, "Transaction ID is required")
		return
	}

	result, err := h.webhook.RetryWebhook(r.Context(), transactionID, userID)
	if err != nil {
		log.Printf("Webhook retry failed for %s: %v", transactionID, err)
		switch {
		case errors.Is(err, store.ErrNotFound), errors.Is(err, services.ErrUnauthorized):
			respondError(w, http.StatusBadRequest, "Transaction not found or unauthorized")
		case errors.Is(err, services.ErrNoCallbackURL):
			respondError(w, http.StatusBadRequest, "No callback URL configured for this transaction")
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	log.Printf("Webhook retry result for %s: success=%t attempts=%d", transactionID, result.Success, result.Attempts)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Webhook retry initiated",
		"result":  result,
	})
}

// Logs returns the delivery attempts recorded for a transaction.
func (h *WebhookHandler) Logs(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r, h.jwtSecret)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	transactionID := mux.Vars(r)["transactionID"]
	logs, err := h.session.ListWebhookLogs(r.Context(), transactionID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, services.ErrUnauthorized) {
			respondError(w, http.StatusBadRequest, "Transaction not found or unauthorized")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"logs":    logs,
	})
}
