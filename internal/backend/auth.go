package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fjod/go_bullion/internal/domain"
)

// authBody accepts the token and user either at top level or under "data".
type authBody struct {
	Token string             `json:"token"`
	User  *domain.User       `json:"user"`
	Data  *domain.AuthResult `json:"data"`
}

func (b authBody) result() domain.AuthResult {
	if b.Data != nil && b.Data.Token != "" {
		return *b.Data
	}
	res := domain.AuthResult{Token: b.Token}
	if b.User != nil {
		res.User = *b.User
	}
	return res
}

func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.AuthResult, error) {
	var body authBody
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, creds, &body); err != nil {
		return domain.AuthResult{}, fmt.Errorf("login: %w", err)
	}
	return body.result(), nil
}

func (c *Client) Register(ctx context.Context, reg domain.Registration) (domain.AuthResult, error) {
	var body authBody
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, reg, &body); err != nil {
		return domain.AuthResult{}, fmt.Errorf("register: %w", err)
	}
	return body.result(), nil
}

// Me resolves the identity behind the bearer token in ctx.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	if TokenFromContext(ctx) == "" {
		return domain.User{}, ErrUnauthorized
	}
	var env envelope[domain.User]
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &env); err != nil {
		return domain.User{}, fmt.Errorf("get current user: %w", err)
	}
	return env.Data, nil
}
