package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides persistence for appointments.
type Repository struct {
	db DB
}

// NewRepository creates an appointment repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// appointment_date is a DATE column; it is cast to text so it scans into the
// model's string field under pgx's binary result format.
const appointmentColumns = `id, user_id, service_name, price, duration_minutes,
	appointment_date::text, appointment_time, status, created_at`

// Insert creates a confirmed appointment. The partial unique index on
// (appointment_date, appointment_time) over non-cancelled rows makes the
// insert the authoritative exclusivity check; its violation surfaces as
// ErrSlotTaken.
func (r *Repository) Insert(ctx context.Context, appt *Appointment) error {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	if appt.Status == "" {
		appt.Status = StatusConfirmed
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, user_id, service_name, price, duration_minutes, appointment_date, appointment_time, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING created_at`,
		appt.ID, appt.UserID, appt.ServiceName, appt.PriceUSD, appt.DurationMinutes,
		appt.Date, appt.Time, appt.Status,
	)
	if err := row.Scan(&appt.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("bookings: insert: %w", err)
	}
	return nil
}

// BookedTimes returns the times with a non-cancelled appointment on the date.
func (r *Repository) BookedTimes(ctx context.Context, date string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT appointment_time FROM appointments
		WHERE appointment_date = $1 AND status <> $2`,
		date, StatusCancelled,
	)
	if err != nil {
		return nil, fmt.Errorf("bookings: booked times: %w", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("bookings: scan time: %w", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: booked times rows: %w", err)
	}
	return times, nil
}

// ExistsAt reports whether a non-cancelled appointment occupies the slot.
func (r *Repository) ExistsAt(ctx context.Context, date, timeOfDay string) (bool, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE appointment_date = $1 AND appointment_time = $2 AND status <> $3`,
		date, timeOfDay, StatusCancelled,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("bookings: exists at: %w", err)
	}
	return count > 0, nil
}

// ListByUser returns the user's appointments, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE user_id = $1
		ORDER BY appointment_date DESC, appointment_time DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("bookings: list by user: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ConfirmedOn returns confirmed appointments for the date joined with the
// owning user's phone and name, for reminder dispatch.
func (r *Repository) ConfirmedOn(ctx context.Context, date string) ([]ReminderTarget, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.service_name, a.price, a.appointment_date::text, a.appointment_time, u.phone, u.name
		FROM appointments a
		JOIN users u ON a.user_id = u.id
		WHERE a.appointment_date = $1 AND a.status = $2`,
		date, StatusConfirmed,
	)
	if err != nil {
		return nil, fmt.Errorf("bookings: confirmed on: %w", err)
	}
	defer rows.Close()

	var targets []ReminderTarget
	for rows.Next() {
		var t ReminderTarget
		if err := rows.Scan(&t.AppointmentID, &t.ServiceName, &t.PriceUSD, &t.Date, &t.Time, &t.Phone, &t.Name); err != nil {
			return nil, fmt.Errorf("bookings: scan reminder target: %w", err)
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: confirmed on rows: %w", err)
	}
	return targets, nil
}

// ReminderTarget is one confirmed appointment plus the contact details the
// reminder needs.
type ReminderTarget struct {
	AppointmentID uuid.UUID
	ServiceName   string
	PriceUSD      int
	Date          string
	Time          string
	Phone         string
	Name          string
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	var appts []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.ServiceName, &a.PriceUSD, &a.DurationMinutes,
			&a.Date, &a.Time, &a.Status, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("bookings: scan appointment: %w", err)
		}
		appts = append(appts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: appointment rows: %w", err)
	}
	return appts, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
