package domain

import "time"

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// TimeSlots are the bookable hourly windows for a sell-back appointment.
var TimeSlots = []string{
	"09:00 AM - 10:00 AM",
	"10:00 AM - 11:00 AM",
	"11:00 AM - 12:00 PM",
	"12:00 PM - 01:00 PM",
	"02:00 PM - 03:00 PM",
	"03:00 PM - 04:00 PM",
	"04:00 PM - 05:00 PM",
}

func ValidTimeSlot(slot string) bool {
	for _, s := range TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// AppointmentRequest books a visit to sell metal back to the shop.
type AppointmentRequest struct {
	MetalType       MetalType `json:"metalType"`
	EstimatedWeight Weight    `json:"estimatedWeight"`
	AppointmentDate string    `json:"appointmentDate"`
	TimeSlot        string    `json:"timeSlot"`
	Notes           string    `json:"notes"`
}

type Appointment struct {
	ID                string            `json:"_id"`
	AppointmentNumber string            `json:"appointmentNumber"`
	MetalType         MetalType         `json:"metalType"`
	EstimatedWeight   Weight            `json:"estimatedWeight"`
	AppointmentDate   time.Time         `json:"appointmentDate"`
	TimeSlot          string            `json:"timeSlot"`
	Status            AppointmentStatus `json:"status"`
	Notes             string            `json:"notes,omitempty"`
}

// Cancellable reports whether the customer may still cancel the appointment.
func (a Appointment) Cancellable() bool {
	return a.Status == AppointmentPending
}
