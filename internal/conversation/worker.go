package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/sms-scheduler/internal/events"
	"github.com/wolfman30/sms-scheduler/pkg/logging"
)

const (
	defaultWorkers          = 2
	defaultReceiveWait      = 2  // seconds
	defaultReceiveMax       = 5  // messages
	maxReceiveWaitSeconds   = 20 // SQS limit
	maxReceiveBatchMessages = 10
)

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

// WorkerOption configures the worker pool.
type WorkerOption func(*workerConfig)

// WithWorkerCount overrides the number of queue polling goroutines.
func WithWorkerCount(workers int) WorkerOption {
	return func(cfg *workerConfig) {
		if workers > 0 {
			cfg.workers = workers
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait time for Receive calls.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxReceiveWaitSeconds {
			seconds = maxReceiveWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize overrides how many messages each poll should return.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchMessages {
			size = maxReceiveBatchMessages
		}
		cfg.receiveBatchSize = size
	}
}

// Workers drains the delivery queue in the background, handing each
// delivery's events to the ingestor. Once a job is dequeued it runs to
// completion; there is no per-turn cancellation.
type Workers struct {
	ingestor *events.Ingestor
	queue    QueueClient
	logger   *logging.Logger

	cfg workerConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StartWorkers launches the polling goroutines.
func StartWorkers(ingestor *events.Ingestor, queue QueueClient, logger *logging.Logger, opts ...WorkerOption) *Workers {
	if ingestor == nil {
		panic("conversation: ingestor cannot be nil")
	}
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkers,
		receiveWaitSecs:  defaultReceiveWait,
		receiveBatchSize: defaultReceiveMax,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Workers{
		ingestor: ingestor,
		queue:    queue,
		logger:   logger,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := 0; i < cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(i + 1)
	}

	return w
}

// Shutdown stops the polling goroutines and waits for in-flight jobs.
func (w *Workers) Shutdown(ctx context.Context) error {
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (w *Workers) run(workerID int) {
	defer w.wg.Done()
	w.logger.Debug("conversation worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("conversation worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(w.ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive delivery jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleQueueMessage(msg)
		}
	}
}

func (w *Workers) handleQueueMessage(msg QueueMessage) {
	defer w.deleteMessage(msg.ReceiptHandle)

	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("failed to decode delivery job", "error", err)
		return
	}

	// Dequeued jobs run to completion; shutdown waits for them rather than
	// cancelling a turn mid-flight.
	w.ingestor.ProcessDelivery(context.Background(), payload.Events)
}

func (w *Workers) deleteMessage(receiptHandle string) {
	deleteCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete delivery job", "error", err)
	}
}
