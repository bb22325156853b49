package conversation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/sms-scheduler/internal/events"
	"github.com/wolfman30/sms-scheduler/pkg/logging"
)

type recordingHandler struct {
	mu       sync.Mutex
	messages []string
}

func (h *recordingHandler) HandleInbound(_ context.Context, from, message string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, from+":"+message)
	return nil
}

func (h *recordingHandler) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.messages))
	copy(out, h.messages)
	return out
}

func inboundEvent(t *testing.T, id, from, message string) events.Event {
	t.Helper()
	data, err := json.Marshal(map[string]string{
		"messageId": id,
		"from":      from,
		"message":   message,
	})
	require.NoError(t, err)
	return events.Event{ID: id, EventType: events.TypeSMSReceived, Data: data}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWorkersProcessEnqueuedDelivery(t *testing.T) {
	handler := &recordingHandler{}
	ingestor := events.NewIngestor(handler, logging.Default())
	queue := NewMemoryQueue(8)
	publisher := NewPublisher(queue, logging.Default())

	workers := StartWorkers(ingestor, queue, logging.Default(),
		WithWorkerCount(1), WithReceiveWaitSeconds(1))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, workers.Shutdown(ctx))
	}()

	evts := []events.Event{
		inboundEvent(t, "evt-1", "+15551111111", "Hi"),
		inboundEvent(t, "evt-2", "+15552222222", "Reschedule please"),
	}
	require.NoError(t, publisher.EnqueueDelivery(context.Background(), evts))

	waitFor(t, 3*time.Second, func() bool { return len(handler.snapshot()) == 2 })
	assert.Equal(t, []string{
		"+15551111111:Hi",
		"+15552222222:Reschedule please",
	}, handler.snapshot())
}

func TestWorkersSkipMalformedJob(t *testing.T) {
	handler := &recordingHandler{}
	ingestor := events.NewIngestor(handler, logging.Default())
	queue := NewMemoryQueue(8)

	workers := StartWorkers(ingestor, queue, logging.Default(),
		WithWorkerCount(1), WithReceiveWaitSeconds(1))

	require.NoError(t, queue.Send(context.Background(), "not json"))
	require.NoError(t, NewPublisher(queue, logging.Default()).EnqueueDelivery(
		context.Background(),
		[]events.Event{inboundEvent(t, "evt-1", "+15551111111", "Hi")},
	))

	waitFor(t, 3*time.Second, func() bool { return len(handler.snapshot()) == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, workers.Shutdown(ctx))
}

func TestPublisherSkipsEmptyDelivery(t *testing.T) {
	queue := NewMemoryQueue(1)
	publisher := NewPublisher(queue, logging.Default())

	require.NoError(t, publisher.EnqueueDelivery(context.Background(), nil))

	messages, err := queue.Receive(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestPublisherEncodesEvents(t *testing.T) {
	queue := NewMemoryQueue(1)
	publisher := NewPublisher(queue, logging.Default())

	evt := inboundEvent(t, "evt-9", "+15553333333", "Hello")
	require.NoError(t, publisher.EnqueueDelivery(context.Background(), []events.Event{evt}))

	messages, err := queue.Receive(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	var payload queuePayload
	require.NoError(t, json.Unmarshal([]byte(messages[0].Body), &payload))
	assert.NotEmpty(t, payload.ID)
	require.Len(t, payload.Events, 1)
	assert.Equal(t, "evt-9", payload.Events[0].ID)
	assert.Equal(t, events.TypeSMSReceived, payload.Events[0].EventType)
}

func TestShutdownStopsWorkers(t *testing.T) {
	handler := &recordingHandler{}
	ingestor := events.NewIngestor(handler, logging.Default())
	queue := NewMemoryQueue(1)

	workers := StartWorkers(ingestor, queue, logging.Default(), WithWorkerCount(2))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, workers.Shutdown(ctx))
}
