package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/hema22923/AgriConnect/internal/service"
)

type CheckoutHandler struct {
	checkout *service.CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(checkout *service.CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

type CheckoutRequestDTO struct {
	ShippingAddress string `json:"shippingAddress"`
}

type CheckoutResponseDTO struct {
	OrderID string `json:"orderId"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// The body is optional; an empty one means "ship to my profile address".
	var req CheckoutRequestDTO
	if r.Body != nil {
		if err := decodeBody(r.Body, &req); err != nil {
			respondError(w, r, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body")
			return
		}
	}

	orderID, err := h.checkout.PlaceOrder(ctx, getIdentity(r.Context()), req.ShippingAddress)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, CheckoutResponseDTO{OrderID: orderID})
}

func decodeBody(body io.Reader, dst interface{}) error {
	err := json.NewDecoder(body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
