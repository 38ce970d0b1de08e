package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue is a Queue backed by a Redis list, so queued jobs survive
// a process restart. Delivery is at-least-once: a job popped by a crashing
// worker is lost rather than redelivered, which matches the pipeline's
// best-effort contract.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue creates a RedisQueue draining the given list key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if key == "" {
		key = "conversation:jobs"
	}
	return &RedisQueue{client: client, key: key}
}

// Send pushes a payload onto the queue.
func (q *RedisQueue) Send(ctx context.Context, body string) error {
	if err := q.client.LPush(ctx, q.key, body).Err(); err != nil {
		return fmt.Errorf("conversation: redis enqueue: %w", err)
	}
	return nil
}

// Receive pops up to maxMessages payloads, blocking up to waitSeconds for the first.
func (q *RedisQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error) {
	if maxMessages <= 0 {
		maxMessages = 1
	}
	wait := time.Duration(waitSeconds) * time.Second
	if wait <= 0 {
		wait = time.Second
	}

	res, err := q.client.BRPop(ctx, wait, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("conversation: redis receive: %w", err)
	}
	// BRPOP returns [key, value].
	messages := []queueMessage{{
		ID:            uuid.NewString(),
		Body:          res[1],
		ReceiptHandle: uuid.NewString(),
	}}

	for len(messages) < maxMessages {
		body, err := q.client.RPop(ctx, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				break
			}
			return messages, nil
		}
		messages = append(messages, queueMessage{
			ID:            uuid.NewString(),
			Body:          body,
			ReceiptHandle: uuid.NewString(),
		})
	}
	return messages, nil
}

// Delete is a no-op: BRPOP already removed the payload.
func (q *RedisQueue) Delete(_ context.Context, _ string) error {
	return nil
}
