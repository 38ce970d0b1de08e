package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Queue carries encoded inbound jobs from the webhook to the worker pool.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// InboundJob is one webhook event deferred for post-ack processing.
type InboundJob struct {
	ID          string    `json:"id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Body        string    `json:"body"`
	ProfileName string    `json:"profile_name,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}

func encodeJob(job InboundJob) (InboundJob, string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.ReceivedAt.IsZero() {
		job.ReceivedAt = time.Now().UTC()
	}

	body, err := json.Marshal(job)
	if err != nil {
		return InboundJob{}, "", fmt.Errorf("conversation: failed to encode job: %w", err)
	}

	return job, string(body), nil
}

func decodeJob(body string) (InboundJob, error) {
	var job InboundJob
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return InboundJob{}, fmt.Errorf("conversation: failed to decode job: %w", err)
	}
	return job, nil
}
