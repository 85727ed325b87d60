package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_bullion/internal/checkout"
	"github.com/fjod/go_bullion/internal/domain"
	"github.com/shopspring/decimal"
)

const cartRoute = "/cart"

type Identity interface {
	Me(ctx context.Context) (domain.User, error)
}

type OrderPlacer interface {
	SubmitOrder(ctx context.Context, sessionID string, c checkout.Cart, in checkout.Input) (checkout.Result, error)
	Status(sessionID string) checkout.Status
}

type CheckoutHandler struct {
	carts       Carts
	identity    Identity
	flow        OrderPlacer
	timeout     time.Duration
	maxBodySize int64
}

func NewCheckoutHandler(carts Carts, identity Identity, flow OrderPlacer, timeout time.Duration, maxBodySize int64) *CheckoutHandler {
	return &CheckoutHandler{
		carts:       carts,
		identity:    identity,
		flow:        flow,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

type CheckoutSummaryDTO struct {
	Items  []domain.CartLine `json:"items"`
	Count  int               `json:"count"`
	Total  decimal.Decimal   `json:"total"`
	Form   checkout.Input    `json:"form"`
	Status checkout.Status   `json:"status"`
}

func respondEmptyCart(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Location", cartRoute)
	respondJSON(w, r, http.StatusConflict, ErrorResponse{
		Error:   "Your cart is empty",
		Code:    "empty_cart",
		Details: cartRoute,
	})
}

// GET /api/v1/checkout
func (h *CheckoutHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := sessionIDFromContext(r.Context())
	c, err := h.carts.Cart(r.Context(), sessionID)
	if err != nil {
		respondCartError(w, r, err)
		return
	}
	if c.IsEmpty() {
		respondEmptyCart(w, r)
		return
	}

	user, err := h.identity.Me(ctx)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, CheckoutSummaryDTO{
		Items:  c.Lines(),
		Count:  c.Count(),
		Total:  c.GetTotal(),
		Form:   checkout.Prefill(&user),
		Status: h.flow.Status(sessionID),
	})
}

// POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var in checkout.Input
	if !decodeJSON(w, r, h.maxBodySize, &in) {
		return
	}

	sessionID := sessionIDFromContext(r.Context())
	c, err := h.carts.Cart(r.Context(), sessionID)
	if err != nil {
		respondCartError(w, r, err)
		return
	}

	res, err := h.flow.SubmitOrder(ctx, sessionID, c, in)
	if err != nil {
		h.handleSubmitError(w, r, err)
		return
	}

	w.Header().Set("Location", res.Redirect)
	respondJSON(w, r, http.StatusCreated, res)
}

func (h *CheckoutHandler) handleSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var failure *checkout.Failure
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondEmptyCart(w, r)
	case errors.Is(err, checkout.ErrInvalidAddress):
		respondError(w, r, http.StatusBadRequest, "invalid_address", "Please fill in all shipping address fields")
	case errors.Is(err, checkout.ErrUnsupportedPaymentMethod):
		respondError(w, r, http.StatusBadRequest, "invalid_payment_method", "Only cash on delivery is available")
	case errors.Is(err, checkout.ErrSubmissionInProgress):
		respondError(w, r, http.StatusConflict, "submission_in_progress", "Your order is already being placed")
	case errors.As(err, &failure):
		respondBackendError(w, r, failure.Err, failure.Notice)
	default:
		handleBackendError(w, r, err)
	}
}
