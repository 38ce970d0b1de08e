package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonhq/booking-agent/internal/bookings"
	"github.com/salonhq/booking-agent/internal/catalog"
	"github.com/salonhq/booking-agent/internal/users"
	"github.com/salonhq/booking-agent/pkg/logging"
)

func newAvailabilityRouter(t *testing.T) (chi.Router, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	engine := bookings.NewService(bookings.NewRepository(mock), users.NewRepository(mock), logging.Default())
	h := NewAvailabilityHandler(engine, logging.Default())

	r := chi.NewRouter()
	r.Get("/api/availability/{date}", h.Get)
	return r, mock
}

func TestGetAvailability(t *testing.T) {
	r, mock := newAvailabilityRouter(t)

	mock.ExpectQuery("SELECT appointment_time FROM appointments").
		WithArgs("2026-09-03", bookings.StatusCancelled).
		WillReturnRows(pgxmock.NewRows([]string{"appointment_time"}).AddRow("10:00"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/availability/2026-09-03", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Date           string   `json:"date"`
		AvailableSlots []string `json:"availableSlots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2026-09-03", resp.Date)
	assert.Len(t, resp.AvailableSlots, len(catalog.TimeSlots())-1)
	assert.NotContains(t, resp.AvailableSlots, "10:00")
}

func TestGetAvailabilityBadDate(t *testing.T) {
	r, _ := newAvailabilityRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/availability/tomorrow", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAvailabilityStorageFailureIsServerError(t *testing.T) {
	r, mock := newAvailabilityRouter(t)

	mock.ExpectQuery("SELECT appointment_time FROM appointments").
		WithArgs("2026-09-03", bookings.StatusCancelled).
		WillReturnError(errors.New("connection reset"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/availability/2026-09-03", nil))

	// An unreachable database must not advertise the full grid.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "09:00")
}
