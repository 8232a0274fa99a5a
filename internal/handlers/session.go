package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/payhubprime/payhub-gobackend/internal/services"
	"github.com/payhubprime/payhub-gobackend/internal/store"
)

type SessionHandler struct {
	service   *services.SessionService
	jwtSecret []byte
}

func NewSessionHandler(service *services.SessionService, jwtSecret []byte) *SessionHandler {
	return &SessionHandler{service: service, jwtSecret: jwtSecret}
}

// Create makes a payment session for the merchant identified by API key.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	apiKey := bearerToken(r)
	if apiKey == "" {
		respondError(w, http.StatusBadRequest, "Missing Authorization header")
		return
	}

	var req services.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.service.CreateSession(r.Context(), apiKey, req)
	if err != nil {
		log.Printf("Failed to create payment session: %v", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"session_id":   session.ID,
		"checkout_url": session.CheckoutURL,
		"expires_at":   session.ExpiresAt,
	})
}

// Status reports the session and its latest transaction to the owning
// merchant.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	apiKey := bearerToken(r)
	if apiKey == "" {
		respondError(w, http.StatusBadRequest, "Missing Authorization header")
		return
	}

	sessionID := mux.Vars(r)["sessionID"]
	status, err := h.service.GetStatus(r.Context(), apiKey, sessionID)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			respondError(w, http.StatusBadRequest, "Unauthorized access to this session")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"session_id":     status.SessionID,
		"status":         status.Status,
		"amount":         status.Amount,
		"currency":       status.Currency,
		"payment_method": status.PaymentMethod,
		"created_at":     status.CreatedAt,
		"expires_at":     status.ExpiresAt,
		"transaction":    status.Transaction,
	})
}

// Transaction fetches a single transaction for the dashboard.
func (h *SessionHandler) Transaction(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r, h.jwtSecret)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	transactionID := mux.Vars(r)["transactionID"]
	txn, err := h.service.GetTransaction(r.Context(), transactionID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, services.ErrUnauthorized) {
			respondError(w, http.StatusBadRequest, "Transaction not found or unauthorized")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, txn)
}
