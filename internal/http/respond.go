package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_bullion/internal/backend"
	"github.com/fjod/go_bullion/pkg/logger"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).WithError(err).Error("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleBackendError maps a backend client failure onto the gateway's answer.
// Rejections keep their status; anything the backend could not serve becomes 502/503/504.
func handleBackendError(w http.ResponseWriter, r *http.Request, err error) {
	respondBackendError(w, r, err, backend.UserMessage(err, backend.GenericFailureNotice))
}

func respondBackendError(w http.ResponseWriter, r *http.Request, err error, message string) {
	httpStatus, code := backendStatus(err)
	log := logger.FromContext(r.Context()).WithError(err).WithField("status", httpStatus)
	if httpStatus >= http.StatusInternalServerError {
		log.Error("backend call failed")
	} else {
		log.Debug("backend rejected request")
	}
	respondError(w, r, httpStatus, code, message)
}

func backendStatus(err error) (int, string) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, backend.ErrUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(err, backend.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, backend.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.As(err, &apiErr):
		return apiErrorStatus(apiErr)
	default:
		return http.StatusBadGateway, "bad_gateway"
	}
}

func apiErrorStatus(apiErr *backend.APIError) (int, string) {
	switch apiErr.Status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return http.StatusBadRequest, "invalid_argument"
	case http.StatusNotFound:
		return http.StatusNotFound, "not_found"
	case http.StatusConflict:
		return http.StatusConflict, "already_exists"
	case http.StatusForbidden:
		return http.StatusForbidden, "permission_denied"
	case http.StatusTooManyRequests:
		return http.StatusTooManyRequests, "rate_limit_exceeded"
	}
	if apiErr.Status >= http.StatusInternalServerError {
		return http.StatusBadGateway, "bad_gateway"
	}
	return apiErr.Status, "rejected"
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}
