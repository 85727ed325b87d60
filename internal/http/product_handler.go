package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_bullion/internal/backend"
	"github.com/fjod/go_bullion/internal/domain"
	"github.com/go-chi/chi/v5"
)

type Catalog interface {
	ListProducts(ctx context.Context, f backend.Filter) ([]domain.ProductSnapshot, error)
	GetProduct(ctx context.Context, id string) (domain.ProductSnapshot, error)
}

type ProductHandler struct {
	catalog Catalog
	timeout time.Duration
}

func NewProductHandler(catalog Catalog, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

type ProductListResponse struct {
	Products []domain.ProductSnapshot `json:"products"`
	Count    int                      `json:"count"`
}

// GET /api/v1/products?metalType=&search=&sort=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	filter := backend.Filter{
		MetalType: domain.MetalType(q.Get("metalType")),
		Search:    q.Get("search"),
		Sort:      backend.SortOrder(q.Get("sort")),
	}
	if filter.MetalType != "" && filter.MetalType != "all" && !filter.MetalType.Valid() {
		respondError(w, r, http.StatusBadRequest, "invalid_metal_type", "metalType must be one of gold, silver, platinum, palladium")
		return
	}

	products, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, ProductListResponse{Products: products, Count: len(products)})
}

// GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_product_id", "product id is required")
		return
	}

	product, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		if backend.IsNotFound(err) {
			respondError(w, r, http.StatusNotFound, "not_found", "Product not found")
			return
		}
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, product)
}
