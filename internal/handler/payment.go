package handler

import (
	"io"
	"net/http"
)

type intentRequest struct {
	OrderID string `json:"orderId"`
}

type intentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// CreatePaymentIntent handles POST /payments/intent.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	secret, err := h.payments.CreateIntent(r.Context(), caller(r).UserID, req.OrderID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, intentResponse{ClientSecret: secret})
}

// PaymentWebhook handles POST /payments/webhook. The raw body is needed for
// signature verification.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Cannot read body")
		return
	}

	if err := h.payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
