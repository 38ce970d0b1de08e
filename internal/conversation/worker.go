package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/salonhq/booking-agent/pkg/logging"
)

const (
	defaultWorkerCount = 2
	defaultJobTimeout  = 30 * time.Second
	receiveWaitSeconds = 2
	receiveBatchSize   = 5
)

// Worker drains the job queue with a fixed-size pool. Each job runs under
// its own timeout so one slow dependency cannot stall the pool, and a failed
// job lands in the dead-letter log rather than propagating anywhere near the
// transport.
type Worker struct {
	pipeline   *Pipeline
	queue      Queue
	workers    int
	jobTimeout time.Duration
	logger     *logging.Logger

	wg sync.WaitGroup
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*Worker)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(w *Worker) {
		if count > 0 {
			w.workers = count
		}
	}
}

// WithJobTimeout bounds the processing time of a single job.
func WithJobTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.jobTimeout = d
		}
	}
}

// NewWorker creates a worker pool over the queue.
func NewWorker(pipeline *Pipeline, queue Queue, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if pipeline == nil {
		panic("conversation: pipeline required")
	}
	if queue == nil {
		panic("conversation: queue required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	w := &Worker{
		pipeline:   pipeline,
		queue:      queue,
		workers:    defaultWorkerCount,
		jobTimeout: defaultJobTimeout,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the consumer goroutines. They exit when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.run(ctx, id)
		}(i)
	}
	w.logger.Info("conversation workers started", "count", w.workers)
}

// Wait blocks until all consumers have exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, receiveBatchSize, receiveWaitSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue receive failed", "worker", id, "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range messages {
			w.handle(ctx, id, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, id int, msg queueMessage) {
	job, err := decodeJob(msg.Body)
	if err != nil {
		w.deadLetter(msg.Body, err)
	} else {
		jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
		err = w.pipeline.Process(jobCtx, job)
		cancel()
		if err != nil {
			w.deadLetter(msg.Body, err)
		}
	}

	deleteCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.queue.Delete(deleteCtx, msg.ReceiptHandle); err != nil {
		w.logger.Error("queue delete failed", "worker", id, "error", err)
	}
}

// deadLetter records the full payload of a job that could not be processed.
// These jobs are not retried: the inbound message has already been acked to
// the transport, and the pipeline itself degrades per step.
func (w *Worker) deadLetter(payload string, err error) {
	w.logger.Error("conversation job dead-lettered", "error", err, "payload", payload)
}
