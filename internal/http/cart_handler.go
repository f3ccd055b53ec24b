package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hema22923/AgriConnect/internal/domain"
	"github.com/hema22923/AgriConnect/internal/service"
	"github.com/shopspring/decimal"
)

type CartHandler struct {
	carts   *service.CartService
	timeout time.Duration
}

func NewCartHandler(carts *service.CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

// AddItemRequestDTO adds one unit when quantity is omitted.
type AddItemRequestDTO struct {
	ProductID string           `json:"productId"`
	Quantity  *decimal.Decimal `json:"quantity,omitempty"`
}

func (req AddItemRequestDTO) quantity() decimal.Decimal {
	if req.Quantity == nil {
		return decimal.NewFromInt(1)
	}
	return *req.Quantity
}

type UpdateQuantityRequestDTO struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type CartDTO struct {
	Items     []domain.CartLine `json:"items"`
	ItemCount decimal.Decimal   `json:"itemCount"`
	CartTotal decimal.Decimal   `json:"cartTotal"`
}

type CartResponseDTO struct {
	Cart    CartDTO         `json:"cart"`
	Code    domain.CartCode `json:"code"`
	Message string          `json:"message,omitempty"`
}

func cartResponse(c *domain.Cart, res domain.CartResult) CartResponseDTO {
	items := c.Lines
	if items == nil {
		items = []domain.CartLine{}
	}
	code := res.Code
	if code == "" {
		code = domain.CartOK
	}
	return CartResponseDTO{
		Cart: CartDTO{
			Items:     items,
			ItemCount: c.ItemCount(),
			CartTotal: c.Total(),
		},
		Code:    code,
		Message: cartMessage(res),
	}
}

func cartMessage(res domain.CartResult) string {
	switch res.Code {
	case domain.CartOutOfStock:
		return "this product is out of stock"
	case domain.CartLimitedStock:
		if res.Line != nil {
			return "only " + res.Line.Quantity.String() + " available, quantity adjusted"
		}
		return "quantity adjusted to available stock"
	}
	return ""
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.GetCart(ctx, getIdentity(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cartResponse(cart, domain.CartResult{}))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		respondError(w, r, http.StatusBadRequest, codeInvalidArgument, "productId is required")
		return
	}

	cart, res, err := h.carts.AddItem(ctx, getIdentity(r.Context()), req.ProductID, req.quantity())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cartResponse(cart, res))
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, res, err := h.carts.UpdateQuantity(ctx, getIdentity(r.Context()), chi.URLParam(r, "product_id"), req.Quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cartResponse(cart, res))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.RemoveItem(ctx, getIdentity(r.Context()), chi.URLParam(r, "product_id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cartResponse(cart, domain.CartResult{}))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.ClearCart(ctx, getIdentity(r.Context())); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cartResponse(domain.NewCart(getIdentity(r.Context()).UserID), domain.CartResult{}))
}
