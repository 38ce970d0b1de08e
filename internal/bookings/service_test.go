package bookings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonhq/booking-agent/internal/catalog"
	"github.com/salonhq/booking-agent/internal/users"
	"github.com/salonhq/booking-agent/pkg/logging"
)

func newTestService(t *testing.T) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewService(NewRepository(mock), users.NewRepository(mock), logging.Default()), mock
}

func TestSlotsForPreservesGridOrder(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT appointment_time FROM appointments").
		WithArgs("2026-09-03", StatusCancelled).
		WillReturnRows(pgxmock.NewRows([]string{"appointment_time"}).AddRow("10:00").AddRow("09:00"))

	slots, err := svc.SlotsFor(context.Background(), "2026-09-03")
	require.NoError(t, err)

	grid := catalog.TimeSlots()
	assert.Len(t, slots, len(grid)-2)
	assert.NotContains(t, slots, "09:00")
	assert.NotContains(t, slots, "10:00")
	assert.Equal(t, "09:30", slots[0], "grid order must be preserved")
	assert.Equal(t, "17:30", slots[len(slots)-1])
}

func TestSlotsForRejectsBadDate(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SlotsFor(context.Background(), "tomorrow")
	require.ErrorIs(t, err, ErrInvalidSlot)
}

func TestSlotsForFailsClosedOnStorageError(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT appointment_time FROM appointments").
		WithArgs("2026-09-03", StatusCancelled).
		WillReturnError(errors.New("connection reset"))

	slots, err := svc.SlotsFor(context.Background(), "2026-09-03")
	require.Error(t, err)
	assert.Nil(t, slots, "a storage failure must not advertise the full grid")
}

func TestBookRejectsUnknownService(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Book(context.Background(), "+15551234567", "", "massage", "2026-09-03", "10:00")
	require.ErrorIs(t, err, ErrInvalidService)
}

func TestBookRejectsInvalidSlot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, "+15551234567", "", "haircut", "2026-09-03", "13:00")
	require.ErrorIs(t, err, ErrInvalidSlot, "lunch hour is not on the grid")

	_, err = svc.Book(ctx, "+15551234567", "", "haircut", "03/09/2026", "10:00")
	require.ErrorIs(t, err, ErrInvalidSlot)
}

func TestBookRejectsSunday(t *testing.T) {
	svc, _ := newTestService(t)

	// 2026-09-06 is a Sunday.
	_, err := svc.Book(context.Background(), "+15551234567", "", "haircut", "2026-09-06", "10:00")
	require.ErrorIs(t, err, ErrInvalidSlot)
}

func TestBookTakenSlotPreCheck(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("2026-09-03", "10:00", StatusCancelled).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	_, err := svc.Book(context.Background(), "+15551234567", "", "haircut", "2026-09-03", "10:00")
	require.ErrorIs(t, err, ErrSlotTaken)
}

func TestBookDenormalizesCatalogEntry(t *testing.T) {
	svc, mock := newTestService(t)

	userID := uuid.New()
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("2026-09-03", "14:30", StatusCancelled).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "+15551234567", "Ada").
		WillReturnRows(pgxmock.NewRows([]string{"id", "phone", "name", "created_at"}).
			AddRow(userID, "+15551234567", "Ada", time.Now()))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), userID, "Hair Coloring", 75, 60, "2026-09-03", "14:30", StatusConfirmed).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	appt, err := svc.Book(context.Background(), "+15551234567", "Ada", "COLORING", "2026-09-03", "14:30")
	require.NoError(t, err)

	assert.Equal(t, "Hair Coloring", appt.ServiceName)
	assert.Equal(t, 75, appt.PriceUSD)
	assert.Equal(t, 60, appt.DurationMinutes)
	assert.Equal(t, StatusConfirmed, appt.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookSurfacesInsertConflict(t *testing.T) {
	svc, mock := newTestService(t)

	// The pre-check passes but the unique index rejects the insert, as it
	// would when two requests race for the same slot.
	userID := uuid.New()
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("2026-09-03", "10:00", StatusCancelled).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "+15551234567", "User").
		WillReturnRows(pgxmock.NewRows([]string{"id", "phone", "name", "created_at"}).
			AddRow(userID, "+15551234567", "User", time.Now()))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), userID, "Haircut", 25, 30, "2026-09-03", "10:00", StatusConfirmed).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := svc.Book(context.Background(), "+15551234567", "", "haircut", "2026-09-03", "10:00")
	require.ErrorIs(t, err, ErrSlotTaken)
}

func TestBookUserResolutionFailure(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("2026-09-03", "10:00", StatusCancelled).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "+15551234567", "User").
		WillReturnError(errors.New("db down"))

	_, err := svc.Book(context.Background(), "+15551234567", "", "haircut", "2026-09-03", "10:00")
	require.ErrorIs(t, err, ErrUserResolution)
}

func TestListForUserReturnsExistingAppointments(t *testing.T) {
	svc, mock := newTestService(t)

	userID := uuid.New()
	mock.ExpectQuery("SELECT id, phone, name, created_at FROM users").
		WithArgs("+15551234567").
		WillReturnRows(pgxmock.NewRows([]string{"id", "phone", "name", "created_at"}).
			AddRow(userID, "+15551234567", "Ada", time.Now()))
	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "service_name", "price", "duration_minutes",
			"appointment_date", "appointment_time", "status", "created_at",
		}).AddRow(uuid.New(), userID, "Haircut", 25, 30, "2026-09-10", "10:00", StatusConfirmed, time.Now()))

	appts, err := svc.ListForUser(context.Background(), "+15551234567")
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "Haircut", appts[0].ServiceName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListForUserUnknownPhoneIsEmptyNotCreated(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT id, phone, name, created_at FROM users").
		WithArgs("+15550000000").
		WillReturnError(pgx.ErrNoRows)

	appts, err := svc.ListForUser(context.Background(), "+15550000000")
	require.NoError(t, err)
	assert.Empty(t, appts)
	require.NoError(t, mock.ExpectationsWereMet())
}
