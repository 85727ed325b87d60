package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_bullion/internal/backend"
	"github.com/fjod/go_bullion/internal/domain"
	"github.com/go-chi/chi/v5"
)

type OrderHistory interface {
	MyOrders(ctx context.Context) ([]domain.Order, error)
	GetOrder(ctx context.Context, id string) (domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderHistory
	timeout time.Duration
}

func NewOrdersHandler(orders OrderHistory, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type OrderListResponse struct {
	Orders []domain.Order `json:"orders"`
	Count  int            `json:"count"`
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.MyOrders(ctx)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, OrderListResponse{Orders: orders, Count: len(orders)})
}

// GET /api/v1/orders/{id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_order_id", "order id is required")
		return
	}

	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		if backend.IsNotFound(err) {
			respondError(w, r, http.StatusNotFound, "not_found", "Order not found")
			return
		}
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, order)
}
