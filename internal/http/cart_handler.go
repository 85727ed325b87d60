package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_bullion/internal/backend"
	"github.com/fjod/go_bullion/internal/cart"
	"github.com/fjod/go_bullion/internal/domain"
	"github.com/fjod/go_bullion/internal/session"
	"github.com/fjod/go_bullion/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Carts resolves the cart bound to a session.
type Carts interface {
	Cart(ctx context.Context, sessionID string) (*cart.Store, error)
}

type CartHandler struct {
	carts       Carts
	catalog     Catalog
	timeout     time.Duration
	maxBodySize int64
}

func NewCartHandler(carts Carts, catalog Catalog, timeout time.Duration, maxBodySize int64) *CartHandler {
	return &CartHandler{
		carts:       carts,
		catalog:     catalog,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	Items []domain.CartLine `json:"items"`
	Count int               `json:"count"`
	Total decimal.Decimal   `json:"total"`
}

func cartView(c *cart.Store) CartResponseDTO {
	return CartResponseDTO{
		Items: c.Lines(),
		Count: c.Count(),
		Total: c.GetTotal(),
	}
}

func (h *CartHandler) sessionCart(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	c, err := h.carts.Cart(r.Context(), sessionIDFromContext(r.Context()))
	if err != nil {
		respondCartError(w, r, err)
		return nil, false
	}
	return c, true
}

func respondCartError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, session.ErrEmptySessionID) {
		respondError(w, r, http.StatusBadRequest, "invalid_session", err.Error())
		return
	}
	logger.FromContext(r.Context()).WithError(err).Warn("cart unavailable")
	respondError(w, r, http.StatusServiceUnavailable, "service_unavailable", "Cart is temporarily unavailable")
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}
	respondJSON(w, r, http.StatusOK, cartView(c))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, h.maxBodySize, &req) {
		return
	}
	if req.ProductID == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		if backend.IsNotFound(err) {
			respondError(w, r, http.StatusNotFound, "not_found", "Product not found")
			return
		}
		handleBackendError(w, r, err)
		return
	}

	c.AddToCart(product)
	respondJSON(w, r, http.StatusCreated, cartView(c))
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, h.maxBodySize, &req) {
		return
	}

	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}

	c.UpdateQuantity(productID, req.Quantity)
	respondJSON(w, r, http.StatusOK, cartView(c))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}

	c.RemoveFromCart(productID)
	respondJSON(w, r, http.StatusOK, cartView(c))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}

	c.ClearCart()
	respondJSON(w, r, http.StatusOK, cartView(c))
}
