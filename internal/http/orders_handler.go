package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hema22923/AgriConnect/internal/domain"
	"github.com/hema22923/AgriConnect/internal/service"
	"github.com/rs/zerolog"
)

const streamHeartbeat = 25 * time.Second

type OrdersHandler struct {
	feed    *service.OrderFeed
	timeout time.Duration
	log     zerolog.Logger
}

func NewOrdersHandler(feed *service.OrderFeed, timeout time.Duration, log zerolog.Logger) *OrdersHandler {
	return &OrdersHandler{
		feed:    feed,
		timeout: timeout,
		log:     log,
	}
}

type OrdersResponseDTO struct {
	Orders []*domain.Order `json:"orders"`
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

type RatingRequestDTO struct {
	Rating int `json:"rating"`
}

func ordersResponse(orders []*domain.Order) OrdersResponseDTO {
	if orders == nil {
		orders = []*domain.Order{}
	}
	return OrdersResponseDTO{Orders: orders}
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.feed.BuyerOrders(ctx, getIdentity(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, ordersResponse(orders))
}

// GET /api/v1/farmer/orders
func (h *OrdersHandler) ListFarmerOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.feed.FarmerOrders(ctx, getIdentity(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, ordersResponse(orders))
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	o, err := h.feed.Order(ctx, getIdentity(r.Context()), chi.URLParam(r, "order_id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, o)
}

// PATCH /api/v1/farmer/orders/{order_id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateStatusRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	next, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		handleError(w, r, err)
		return
	}

	o, err := h.feed.UpdateStatus(ctx, getIdentity(r.Context()), chi.URLParam(r, "order_id"), next)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, o)
}

// POST /api/v1/orders/{order_id}/items/{product_id}/rating
func (h *OrdersHandler) RateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RatingRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.feed.RateItem(ctx, getIdentity(r.Context()),
		chi.URLParam(r, "order_id"), chi.URLParam(r, "product_id"), req.Rating)
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/orders/stream
func (h *OrdersHandler) StreamOrders(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, h.feed.SubscribeBuyerOrders)
}

// GET /api/v1/farmer/orders/stream
func (h *OrdersHandler) StreamFarmerOrders(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, h.feed.SubscribeFarmerOrders)
}

type subscribeFunc func(ctx context.Context, id domain.Identity, fn func([]*domain.Order)) (*service.Subscription, error)

// stream serves a live order list as server-sent events. Every event
// carries the full list; a slow client only ever sees the latest one.
func (h *OrdersHandler) stream(w http.ResponseWriter, r *http.Request, subscribe subscribeFunc) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, http.StatusInternalServerError, codeInternal, "streaming unsupported")
		return
	}

	updates := make(chan []*domain.Order, 1)
	sub, err := subscribe(r.Context(), getIdentity(r.Context()), func(orders []*domain.Order) {
		for {
			select {
			case updates <- orders:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case orders := <-updates:
			data, err := json.Marshal(ordersResponse(orders))
			if err != nil {
				h.log.Error().Err(err).Msg("failed to encode order snapshot")
				return
			}
			if _, err := fmt.Fprintf(w, "event: orders\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
