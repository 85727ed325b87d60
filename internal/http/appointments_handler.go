package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_bullion/internal/domain"
	"github.com/go-chi/chi/v5"
)

type Appointments interface {
	CreateAppointment(ctx context.Context, req domain.AppointmentRequest) (domain.Appointment, error)
	MyAppointments(ctx context.Context) ([]domain.Appointment, error)
	CancelAppointment(ctx context.Context, id string) (domain.Appointment, error)
}

type AppointmentsHandler struct {
	appointments Appointments
	timeout      time.Duration
	maxBodySize  int64
}

func NewAppointmentsHandler(appointments Appointments, timeout time.Duration, maxBodySize int64) *AppointmentsHandler {
	return &AppointmentsHandler{
		appointments: appointments,
		timeout:      timeout,
		maxBodySize:  maxBodySize,
	}
}

type AppointmentListResponse struct {
	Appointments []domain.Appointment `json:"appointments"`
	TimeSlots    []string             `json:"timeSlots"`
}

// GET /api/v1/appointments
func (h *AppointmentsHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.appointments.MyAppointments(ctx)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, AppointmentListResponse{Appointments: list, TimeSlots: domain.TimeSlots})
}

// POST /api/v1/appointments
func (h *AppointmentsHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req domain.AppointmentRequest
	if !decodeJSON(w, r, h.maxBodySize, &req) {
		return
	}

	appt, err := h.appointments.CreateAppointment(ctx, req)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, appt)
}

// PUT /api/v1/appointments/{id}/cancel
func (h *AppointmentsHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_appointment_id", "appointment id is required")
		return
	}

	appt, err := h.appointments.CancelAppointment(ctx, id)
	if err != nil {
		handleBackendError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, appt)
}
