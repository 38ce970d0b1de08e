package conversation

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonhq/booking-agent/internal/bookings"
	"github.com/salonhq/booking-agent/internal/users"
	"github.com/salonhq/booking-agent/pkg/logging"
)

type chanMessenger struct {
	sent chan string
}

func (m *chanMessenger) SendMessage(_ context.Context, _, body string) error {
	m.sent <- body
	return nil
}

func (m *chanMessenger) StartCall(_ context.Context, _, _ string) error {
	return nil
}

func TestWorkerProcessesQueuedJob(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(false)

	expectUserUpsert(mock, "+15551234567", "User")
	expectAppendInbound(mock, "+15551234567")
	expectPatchOutbound(mock)

	usersRepo := users.NewRepository(mock)
	engine := bookings.NewService(bookings.NewRepository(mock), usersRepo, logging.Default())
	messenger := &chanMessenger{sent: make(chan string, 1)}
	resolver := NewResolver(&fakeAdvisor{}, time.Second, logging.Default())
	pipeline := NewPipeline(NewStore(mock), usersRepo, resolver, engine, messenger, testVoiceURL, logging.Default())

	queue := NewMemoryQueue(4)
	worker := NewWorker(pipeline, queue, logging.Default(), WithWorkerCount(1), WithJobTimeout(5*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	pub := NewPublisher(queue, logging.Default())
	require.NoError(t, pub.Enqueue(ctx, InboundJob{From: "whatsapp:+15551234567", Body: "MENU"}))

	select {
	case body := <-messenger.sent:
		assert.Contains(t, body, "Haircut")
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not process the job in time")
	}

	cancel()
	worker.Wait()
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerDeadLettersGarbagePayload(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	usersRepo := users.NewRepository(mock)
	engine := bookings.NewService(bookings.NewRepository(mock), usersRepo, logging.Default())
	messenger := &chanMessenger{sent: make(chan string, 1)}
	resolver := NewResolver(&fakeAdvisor{}, time.Second, logging.Default())
	pipeline := NewPipeline(NewStore(mock), usersRepo, resolver, engine, messenger, testVoiceURL, logging.Default())

	queue := NewMemoryQueue(4)
	require.NoError(t, queue.Send(context.Background(), "{not json"))

	worker := NewWorker(pipeline, queue, logging.Default(), WithWorkerCount(1))
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	// The malformed payload must be consumed without a send or a crash.
	select {
	case body := <-messenger.sent:
		t.Fatalf("unexpected send: %q", body)
	case <-time.After(500 * time.Millisecond):
	}

	cancel()
	worker.Wait()
	require.NoError(t, mock.ExpectationsWereMet(), "garbage payload must not touch storage")
}

func TestWorkerOptionsIgnoreInvalidValues(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	usersRepo := users.NewRepository(mock)
	engine := bookings.NewService(bookings.NewRepository(mock), usersRepo, logging.Default())
	resolver := NewResolver(&fakeAdvisor{}, time.Second, logging.Default())
	pipeline := NewPipeline(NewStore(mock), usersRepo, resolver, engine, &fakeMessenger{}, testVoiceURL, logging.Default())

	worker := NewWorker(pipeline, NewMemoryQueue(1), logging.Default(),
		WithWorkerCount(0), WithJobTimeout(-time.Second))
	assert.Equal(t, defaultWorkerCount, worker.workers)
	assert.Equal(t, defaultJobTimeout, worker.jobTimeout)
}
