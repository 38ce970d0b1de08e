package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MaxMessageLen bounds both inbound and outbound message text before
// persistence. Longer text is truncated silently for the user but the
// truncation is logged by callers.
const MaxMessageLen = 500

// Truncate caps text at MaxMessageLen runes.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxMessageLen {
		return text
	}
	return string(runes[:MaxMessageLen])
}

// Turn is one inbound message and its outbound reply, stored as a unit.
// Turns are immutable except for the single outbound patch.
type Turn struct {
	ID        uuid.UUID
	UserPhone string
	Inbound   string
	Outbound  string
	CreatedAt time.Time
}

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides the append-only conversation log.
type Store struct {
	db DB
}

// NewStore creates a conversation store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// AppendInbound writes the inbound half of a turn and returns its handle.
// The outbound half stays NULL until PatchOutbound.
func (s *Store) AppendInbound(ctx context.Context, phone, text string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.Exec(ctx, `
		INSERT INTO conversations (id, user_phone, user_message, created_at)
		VALUES ($1, $2, $3, now())`,
		id, phone, Truncate(text),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("conversation: append inbound: %w", err)
	}
	return id, nil
}

// PatchOutbound fills in the outbound half of the turn identified by the
// handle from AppendInbound. Targeting the handle rather than "most recent
// turn" means concurrent turns for the same user can never patch the wrong
// row. The patch applies at most once.
func (s *Store) PatchOutbound(ctx context.Context, turnID uuid.UUID, text string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE conversations SET ai_response = $2
		WHERE id = $1 AND ai_response IS NULL`,
		turnID, Truncate(text),
	)
	if err != nil {
		return fmt.Errorf("conversation: patch outbound: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation: patch outbound: no unpatched turn with id %s", turnID)
	}
	return nil
}

// RecentHistory returns the user's most recent completed turns, oldest first.
// Turns still awaiting their outbound patch (including the one created by the
// current inbound event) are excluded. The seq tiebreak keeps "most recent"
// well-defined for turns sharing a timestamp.
func (s *Store) RecentHistory(ctx context.Context, phone string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_phone, user_message, ai_response, created_at
		FROM conversations
		WHERE user_phone = $1 AND ai_response IS NOT NULL
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`,
		phone, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("conversation: recent history: %w", err)
	}
	defer rows.Close()

	var newestFirst []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.UserPhone, &t.Inbound, &t.Outbound, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: scan turn: %w", err)
		}
		newestFirst = append(newestFirst, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: recent history rows: %w", err)
	}

	history := make([]Turn, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		history = append(history, newestFirst[i])
	}
	return history, nil
}
