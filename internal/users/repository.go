package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultName is used when the transport supplies no display name.
const DefaultName = "User"

// ErrNotFound is returned by GetByPhone when no user exists for the address.
var ErrNotFound = errors.New("users: not found")

// User is identified by a normalized phone address and created lazily on
// first contact. Never deleted by this service.
type User struct {
	ID        uuid.UUID `json:"id"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores users in the relational database.
type Repository struct {
	db DB
}

// NewRepository creates a user repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// GetOrCreate resolves the user for a normalized phone address, creating the
// row on first contact. An existing user keeps their stored name; the
// supplied name only applies to the insert.
func (r *Repository) GetOrCreate(ctx context.Context, phone, name string) (*User, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}

	// The upsert keeps the single-roundtrip get-or-create race free under
	// concurrent first contacts from the same phone.
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (id, phone, name, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (phone) DO UPDATE SET phone = EXCLUDED.phone
		RETURNING id, phone, name, created_at`,
		uuid.New(), phone, name,
	)

	var u User
	if err := row.Scan(&u.ID, &u.Phone, &u.Name, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("users: get or create: %w", err)
	}
	return &u, nil
}

// GetByPhone looks up a user without creating one. Read-only callers use this
// so a lookup for a never-seen phone does not mint a user row.
func (r *Repository) GetByPhone(ctx context.Context, phone string) (*User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, phone, name, created_at FROM users WHERE phone = $1`,
		phone,
	)

	var u User
	if err := row.Scan(&u.ID, &u.Phone, &u.Name, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: get by phone: %w", err)
	}
	return &u, nil
}
