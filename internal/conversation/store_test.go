package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestTruncateCapsAtRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", MaxMessageLen+50)
	got := Truncate(long)
	if n := len([]rune(got)); n != MaxMessageLen {
		t.Fatalf("expected %d runes, got %d", MaxMessageLen, n)
	}
	if !strings.HasSuffix(got, "é") {
		t.Fatal("truncation split a multi-byte rune")
	}

	short := "hello"
	if Truncate(short) != short {
		t.Fatal("short text must pass through unchanged")
	}
}

func TestAppendInboundTruncatesBeforePersist(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	long := strings.Repeat("a", MaxMessageLen+1)
	mock.ExpectExec("INSERT INTO conversations").
		WithArgs(pgxmock.AnyArg(), "+15551234567", strings.Repeat("a", MaxMessageLen)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewStore(mock)
	id, err := store.AppendInbound(context.Background(), "+15551234567", long)
	if err != nil {
		t.Fatalf("append inbound: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("expected a turn handle")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPatchOutboundAppliesOnce(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	turnID := uuid.New()
	mock.ExpectExec("UPDATE conversations SET ai_response").
		WithArgs(turnID, "first reply").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE conversations SET ai_response").
		WithArgs(turnID, "second reply").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewStore(mock)
	if err := store.PatchOutbound(context.Background(), turnID, "first reply"); err != nil {
		t.Fatalf("first patch: %v", err)
	}
	if err := store.PatchOutbound(context.Background(), turnID, "second reply"); err == nil {
		t.Fatal("second patch of the same turn must fail")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecentHistoryReturnsOldestFirst(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	// The query returns newest first; the store reverses for the advisor.
	rows := pgxmock.NewRows([]string{"id", "user_phone", "user_message", "ai_response", "created_at"}).
		AddRow(uuid.New(), "+15551234567", "newest", "reply c", now).
		AddRow(uuid.New(), "+15551234567", "middle", "reply b", now.Add(-time.Minute)).
		AddRow(uuid.New(), "+15551234567", "oldest", "reply a", now.Add(-2*time.Minute))

	mock.ExpectQuery("SELECT id, user_phone, user_message, ai_response, created_at").
		WithArgs("+15551234567", 5).
		WillReturnRows(rows)

	store := NewStore(mock)
	history, err := store.RecentHistory(context.Background(), "+15551234567", 5)
	if err != nil {
		t.Fatalf("recent history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(history))
	}
	if history[0].Inbound != "oldest" || history[2].Inbound != "newest" {
		t.Fatalf("history not oldest-first: %q .. %q", history[0].Inbound, history[2].Inbound)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecentHistoryDefaultsLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT id, user_phone, user_message, ai_response, created_at").
		WithArgs("+15551234567", 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_phone", "user_message", "ai_response", "created_at"}))

	store := NewStore(mock)
	history, err := store.RecentHistory(context.Background(), "+15551234567", 0)
	if err != nil {
		t.Fatalf("recent history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecentHistoryPropagatesQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT id, user_phone, user_message, ai_response, created_at").
		WithArgs("+15551234567", 5).
		WillReturnError(errors.New("connection reset"))

	store := NewStore(mock)
	if _, err := store.RecentHistory(context.Background(), "+15551234567", 5); err == nil {
		t.Fatal("expected an error")
	}
}
