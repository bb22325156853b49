package conversation

import (
	"context"
	"fmt"

	"github.com/wolfman30/sms-scheduler/internal/events"
	"github.com/wolfman30/sms-scheduler/pkg/logging"
)

// Publisher enqueues webhook deliveries for asynchronous processing so the
// webhook handler can acknowledge immediately.
type Publisher struct {
	queue  QueueClient
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue QueueClient, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger,
	}
}

// EnqueueDelivery publishes a delivery's events as one background job.
func (p *Publisher) EnqueueDelivery(ctx context.Context, evts []events.Event) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(evts) == 0 {
		return nil
	}

	payload, body, err := encodePayload(queuePayload{Events: evts})
	if err != nil {
		return err
	}

	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("conversation: failed to enqueue delivery: %w", err)
	}

	p.logger.Debug("delivery enqueued", "job_id", payload.ID, "events", len(evts))
	return nil
}
