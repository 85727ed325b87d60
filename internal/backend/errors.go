package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fjod/go_bullion/pkg/circuitbreaker"
)

var (
	ErrUnavailable  = errors.New("backend temporarily unavailable")
	ErrUnauthorized = errors.New("authentication required")
	ErrInvalidInput = errors.New("invalid input")
)

// GenericFailureNotice is shown when the backend gave no usable message.
const GenericFailureNotice = "Something went wrong. Please try again."

// ValidationError is a request rejected before it left the storefront.
// Message is safe to show to the customer.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidInput(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// Is lets errors.Is(err, ErrUnauthorized) match a 401.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// UserMessage converts any client error into a notice fit for the customer:
// the server-provided message for rejected requests, fallback otherwise.
func UserMessage(err error, fallback string) string {
	if fallback == "" {
		fallback = GenericFailureNotice
	}
	var (
		apiErr *APIError
		valErr *ValidationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError && apiErr.Message != "":
		return apiErr.Message
	case errors.As(err, &valErr):
		return valErr.Message
	default:
		return fallback
	}
}

// countsAsFailure decides which errors move the breaker towards open.
func countsAsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	return true
}

func wrapBreakerErr(err error) error {
	if circuitbreaker.IsOpen(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
