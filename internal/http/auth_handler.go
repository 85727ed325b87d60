package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_bullion/internal/domain"
)

type Accounts interface {
	Identity
	Login(ctx context.Context, creds domain.Credentials) (domain.AuthResult, error)
	Register(ctx context.Context, reg domain.Registration) (domain.AuthResult, error)
}

type AuthHandler struct {
	accounts    Accounts
	timeout     time.Duration
	maxBodySize int64
}

func NewAuthHandler(accounts Accounts, timeout time.Duration, maxBodySize int64) *AuthHandler {
	return &AuthHandler{
		accounts:    accounts,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var creds domain.Credentials
	if !decodeJSON(w, r, h.maxBodySize, &creds) {
		return
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_credentials", "email and password are required")
		return
	}

	res, err := h.accounts.Login(ctx, creds)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, res)
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var reg domain.Registration
	if !decodeJSON(w, r, h.maxBodySize, &reg) {
		return
	}
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Name == "" || reg.Email == "" || reg.Password == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_registration", "name, email and password are required")
		return
	}

	res, err := h.accounts.Register(ctx, reg)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, res)
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, err := h.accounts.Me(ctx)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, user)
}
