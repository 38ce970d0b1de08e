package reminders

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

// Store is the idempotence ledger for reminder sends. One row per
// (appointment, reminder day); the unique index makes duplicate runs of the
// same day's scan skip appointments that were already reminded.
type Store struct {
	db DB
}

// NewStore creates a reminder ledger store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// MarkSent records that a reminder went out for the appointment on remindOn.
// Returns false when a previous run already recorded it.
func (s *Store) MarkSent(ctx context.Context, appointmentID uuid.UUID, remindOn string) (bool, error) {
	_, err := s.db.Exec(ctx, `
		INSERT INTO reminder_log (id, appointment_id, remind_on, sent_at)
		VALUES ($1, $2, $3, now())`,
		uuid.New(), appointmentID, remindOn,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("reminders: mark sent: %w", err)
	}
	return true, nil
}

// AlreadySent reports whether a reminder was recorded for the appointment on
// remindOn.
func (s *Store) AlreadySent(ctx context.Context, appointmentID uuid.UUID, remindOn string) (bool, error) {
	var one int
	err := s.db.QueryRow(ctx, `
		SELECT 1 FROM reminder_log
		WHERE appointment_id = $1 AND remind_on = $2`,
		appointmentID, remindOn,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("reminders: already sent: %w", err)
	}
	return true, nil
}
