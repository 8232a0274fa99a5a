package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/payhubprime/payhub-gobackend/internal/services"
)

type PayPalHandler struct {
	service *services.PayPalService
}

func NewPayPalHandler(service *services.PayPalService) *PayPalHandler {
	return &PayPalHandler{service: service}
}

// Capture finalizes an approved PayPal order and reconciles the result.
func (h *PayPalHandler) Capture(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID   string `json:"orderId"`
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OrderID == "" || req.SessionID == "" {
		respondError(w, http.StatusBadRequest, "orderId and sessionId are required")
		return
	}

	result, err := h.service.Capture(r.Context(), req.OrderID, req.SessionID)
	if err != nil {
		log.Printf("PayPal capture failed for order %s: %v", req.OrderID, err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}
