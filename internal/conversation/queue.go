package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/wolfman30/sms-scheduler/internal/events"
)

// QueueClient abstracts the delivery job queue so the in-memory and SQS
// implementations are interchangeable.
type QueueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]QueueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// QueueMessage is one dequeued delivery job.
type QueueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// queuePayload carries one webhook delivery's events to the background
// workers.
type queuePayload struct {
	ID     string         `json:"id"`
	Events []events.Event `json:"events"`
}

func encodePayload(payload queuePayload) (queuePayload, string, error) {
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return queuePayload{}, "", fmt.Errorf("conversation: failed to encode payload: %w", err)
	}

	return payload, string(body), nil
}
