package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fjod/go_bullion/internal/domain"
)

// CreateOrder submits the draft in one request. There is no retry.
func (c *Client) CreateOrder(ctx context.Context, draft domain.OrderDraft) (domain.Order, error) {
	var env envelope[domain.Order]
	if err := c.do(ctx, http.MethodPost, "/orders", nil, draft, &env); err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}
	return env.Data, nil
}

func (c *Client) MyOrders(ctx context.Context) ([]domain.Order, error) {
	var env envelope[[]domain.Order]
	if err := c.do(ctx, http.MethodGet, "/orders/my-orders", nil, nil, &env); err != nil {
		return nil, fmt.Errorf("list my orders: %w", err)
	}
	if env.Data == nil {
		return []domain.Order{}, nil
	}
	return env.Data, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	var env envelope[domain.Order]
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, nil, &env); err != nil {
		return domain.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	return env.Data, nil
}
