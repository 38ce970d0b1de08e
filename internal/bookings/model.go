package bookings

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. The only transition is confirmed -> cancelled.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Appointment holds one exclusively-allocated slot. Service name, price and
// duration are denormalized at booking time so later catalog changes never
// rewrite existing appointments.
type Appointment struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	ServiceName     string    `json:"service_name"`
	PriceUSD        int       `json:"price"`
	DurationMinutes int       `json:"duration_minutes"`
	Date            string    `json:"appointment_date"`
	Time            string    `json:"appointment_time"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}
