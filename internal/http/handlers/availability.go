package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/salonhq/booking-agent/internal/bookings"
	"github.com/salonhq/booking-agent/pkg/logging"
)

// AvailabilityHandler serves the slot availability API.
type AvailabilityHandler struct {
	engine *bookings.Service
	logger *logging.Logger
}

// NewAvailabilityHandler creates the availability API handler.
func NewAvailabilityHandler(engine *bookings.Service, logger *logging.Logger) *AvailabilityHandler {
	if engine == nil {
		panic("handlers: bookings engine required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{engine: engine, logger: logger}
}

type availabilityResponse struct {
	Date           string   `json:"date"`
	AvailableSlots []string `json:"availableSlots"`
}

// Get handles GET /api/availability/{date}. A storage failure is a 500, not
// a full grid: advertising openings the database can't confirm would let a
// user walk into a conflict.
func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	slots, err := h.engine.SlotsFor(r.Context(), date)
	if err != nil {
		if errors.Is(err, bookings.ErrInvalidSlot) {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		h.logger.Error("failed to check availability", "error", err, "date", date)
		writeError(w, http.StatusInternalServerError, "failed to check availability")
		return
	}

	writeJSON(w, http.StatusOK, availabilityResponse{Date: date, AvailableSlots: slots})
}
