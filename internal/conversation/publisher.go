package conversation

import (
	"context"
	"fmt"

	"github.com/salonhq/booking-agent/pkg/logging"
)

// Publisher enqueues inbound jobs for deferred processing. The webhook
// handler calls it after the transport ack has been written.
type Publisher struct {
	queue  Queue
	logger *logging.Logger
}

// NewPublisher creates a publisher over the given queue.
func NewPublisher(queue Queue, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("conversation: queue client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, logger: logger}
}

// Enqueue schedules one inbound event for background processing.
func (p *Publisher) Enqueue(ctx context.Context, job InboundJob) error {
	job, body, err := encodeJob(job)
	if err != nil {
		return err
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("conversation: enqueue job %s: %w", job.ID, err)
	}
	p.logger.Debug("conversation job enqueued", "job_id", job.ID, "from", job.From)
	return nil
}
