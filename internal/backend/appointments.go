package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fjod/go_bullion/internal/domain"
)

// ValidateAppointment checks a booking before it is sent.
func ValidateAppointment(req domain.AppointmentRequest) error {
	if !req.MetalType.Valid() {
		return invalidInput("Unknown metal type %q", req.MetalType)
	}
	if !req.EstimatedWeight.Value.IsPositive() {
		return invalidInput("Estimated weight must be positive")
	}
	if !req.EstimatedWeight.Unit.Valid() {
		return invalidInput("Unknown weight unit %q", req.EstimatedWeight.Unit)
	}
	if req.AppointmentDate == "" {
		return invalidInput("Appointment date is required")
	}
	if _, err := time.Parse("2006-01-02", req.AppointmentDate); err != nil {
		return invalidInput("Appointment date must be YYYY-MM-DD")
	}
	if !domain.ValidTimeSlot(req.TimeSlot) {
		return invalidInput("Unknown time slot %q", req.TimeSlot)
	}
	return nil
}

func (c *Client) CreateAppointment(ctx context.Context, req domain.AppointmentRequest) (domain.Appointment, error) {
	if err := ValidateAppointment(req); err != nil {
		return domain.Appointment{}, err
	}
	var env envelope[domain.Appointment]
	if err := c.do(ctx, http.MethodPost, "/appointments", nil, req, &env); err != nil {
		return domain.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}
	return env.Data, nil
}

func (c *Client) MyAppointments(ctx context.Context) ([]domain.Appointment, error) {
	var env envelope[[]domain.Appointment]
	if err := c.do(ctx, http.MethodGet, "/appointments/my-appointments", nil, nil, &env); err != nil {
		return nil, fmt.Errorf("list my appointments: %w", err)
	}
	if env.Data == nil {
		return []domain.Appointment{}, nil
	}
	return env.Data, nil
}

func (c *Client) CancelAppointment(ctx context.Context, id string) (domain.Appointment, error) {
	var env envelope[domain.Appointment]
	path := "/appointments/" + url.PathEscape(id) + "/cancel"
	if err := c.do(ctx, http.MethodPut, path, nil, nil, &env); err != nil {
		return domain.Appointment{}, fmt.Errorf("cancel appointment %s: %w", id, err)
	}
	return env.Data, nil
}
