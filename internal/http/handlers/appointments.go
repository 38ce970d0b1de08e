package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/salonhq/booking-agent/internal/bookings"
	"github.com/salonhq/booking-agent/internal/catalog"
	"github.com/salonhq/booking-agent/internal/messaging"
	"github.com/salonhq/booking-agent/pkg/logging"
)

// AppointmentsHandler serves the appointments REST API.
type AppointmentsHandler struct {
	engine *bookings.Service
	logger *logging.Logger
}

// NewAppointmentsHandler creates the appointments API handler.
func NewAppointmentsHandler(engine *bookings.Service, logger *logging.Logger) *AppointmentsHandler {
	if engine == nil {
		panic("handlers: bookings engine required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{engine: engine, logger: logger}
}

// List handles GET /api/appointments/{phone}. The address is accepted with
// or without the transport prefix.
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	phone, err := messaging.NormalizeAddress(chi.URLParam(r, "phone"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid phone address")
		return
	}

	appts, err := h.engine.ListForUser(r.Context(), phone)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err, "phone", phone)
		writeError(w, http.StatusInternalServerError, "failed to fetch appointments")
		return
	}
	if appts == nil {
		appts = []bookings.Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

type createAppointmentRequest struct {
	Phone           string `json:"phone"`
	ServiceName     string `json:"service_name"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
}

// Create handles POST /api/appointments.
func (h *AppointmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Phone == "" || req.ServiceName == "" || req.AppointmentDate == "" || req.AppointmentTime == "" {
		writeError(w, http.StatusBadRequest, "phone, service_name, appointment_date and appointment_time are required")
		return
	}

	phone, err := messaging.NormalizeAddress(req.Phone)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid phone address")
		return
	}

	appt, err := h.engine.Book(r.Context(), phone, "", serviceKeyFor(req.ServiceName), req.AppointmentDate, req.AppointmentTime)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, appt)
	case errors.Is(err, bookings.ErrInvalidService), errors.Is(err, bookings.ErrInvalidSlot):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, bookings.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot already booked")
	default:
		h.logger.Error("failed to create appointment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create appointment")
	}
}

// serviceKeyFor accepts either a catalog key or a display name.
func serviceKeyFor(name string) string {
	if _, ok := catalog.LookupService(name); ok {
		return name
	}
	for _, svc := range catalog.Services() {
		if strings.EqualFold(svc.Name, strings.TrimSpace(name)) {
			return svc.Key
		}
	}
	return name
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
