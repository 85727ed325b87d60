package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/fjod/go_bullion/internal/domain"
)

type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceLow  SortOrder = "price-low"
	SortPriceHigh SortOrder = "price-high"
	SortName      SortOrder = "name"
)

// Filter narrows a product listing. MetalType is applied by the backend,
// Search and Sort locally.
type Filter struct {
	MetalType domain.MetalType
	Search    string
	Sort      SortOrder
}

// ListProducts fetches the catalog and applies the local search and sort.
// The backend already returns newest first.
func (c *Client) ListProducts(ctx context.Context, f Filter) ([]domain.ProductSnapshot, error) {
	query := url.Values{}
	if f.MetalType != "" && f.MetalType != "all" {
		query.Set("metalType", string(f.MetalType))
	}

	var env envelope[[]domain.ProductSnapshot]
	if err := c.do(ctx, http.MethodGet, "/products", query, nil, &env); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	products := env.Data
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		filtered := products[:0]
		for _, p := range products {
			if strings.Contains(strings.ToLower(p.Name), search) {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}

	switch f.Sort {
	case SortPriceLow:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].TotalPrice.LessThan(products[j].TotalPrice)
		})
	case SortPriceHigh:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].TotalPrice.GreaterThan(products[j].TotalPrice)
		})
	case SortName:
		sort.SliceStable(products, func(i, j int) bool {
			return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
		})
	}

	if products == nil {
		products = []domain.ProductSnapshot{}
	}
	return products, nil
}

// GetProduct fetches one product. Concurrent lookups of the same id share a
// single request.
func (c *Client) GetProduct(ctx context.Context, id string) (domain.ProductSnapshot, error) {
	if id == "" {
		return domain.ProductSnapshot{}, invalidInput("Product id is required")
	}

	v, err, _ := c.sfg.Do(id, func() (interface{}, error) {
		var env envelope[domain.ProductSnapshot]
		if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, nil, &env); err != nil {
			return domain.ProductSnapshot{}, err
		}
		return env.Data, nil
	})
	if err != nil {
		return domain.ProductSnapshot{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return v.(domain.ProductSnapshot), nil
}
