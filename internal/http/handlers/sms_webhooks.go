// Package handlers implements the HTTP surface: the Event Grid SMS webhook
// and the admin endpoints over conversations, appointments, and the calendar.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/wolfman30/sms-scheduler/internal/events"
	"github.com/wolfman30/sms-scheduler/internal/observability/metrics"
	"github.com/wolfman30/sms-scheduler/pkg/logging"
)

// eventGridProvider keys processed-event records for this webhook.
const eventGridProvider = "eventgrid"

type deliveryPublisher interface {
	EnqueueDelivery(ctx context.Context, evts []events.Event) error
}

type processedTracker interface {
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

// SMSWebhookHandler receives Event Grid deliveries. It always acknowledges
// with HTTP 200 and a structured JSON body: surfacing errors as HTTP failures
// would make the grid redeliver the same events in a retry storm.
type SMSWebhookHandler struct {
	publisher deliveryPublisher
	processed processedTracker
	metrics   *metrics.ConversationMetrics
	logger    *logging.Logger
}

// SMSWebhookConfig wires the webhook handler. Processed and Metrics may be nil.
type SMSWebhookConfig struct {
	Publisher deliveryPublisher
	Processed processedTracker
	Metrics   *metrics.ConversationMetrics
	Logger    *logging.Logger
}

// NewSMSWebhookHandler creates the webhook handler.
func NewSMSWebhookHandler(cfg SMSWebhookConfig) *SMSWebhookHandler {
	if cfg.Publisher == nil {
		panic("handlers: delivery publisher required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &SMSWebhookHandler{
		publisher: cfg.Publisher,
		processed: cfg.Processed,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// HandleDelivery processes one webhook POST.
func (h *SMSWebhookHandler) HandleDelivery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.ack(w, start, "error", map[string]any{"status": "error", "message": "unreadable body"})
		return
	}

	evts, err := events.ParseDelivery(body)
	if err != nil {
		h.logger.Warn("malformed webhook delivery", "error", err)
		h.ack(w, start, "error", map[string]any{"status": "error", "message": "invalid JSON payload"})
		return
	}

	// Subscription validation is a handshake, not traffic: answer it and stop.
	if code, ok := events.FindValidationCode(evts); ok {
		h.logger.Info("answered subscription validation handshake")
		h.ack(w, start, "validation", map[string]any{"validationResponse": code})
		return
	}

	fresh := make([]events.Event, 0, len(evts))
	for _, evt := range evts {
		h.metrics.ObserveInboundEvent(evt.EventType)
		first, err := h.markProcessed(r.Context(), evt.ID)
		if err != nil {
			// Fail open: a dedupe outage must not drop patient messages.
			h.logger.Error("processed-event check failed", "error", err, "event_id", evt.ID)
			first = true
		}
		if !first {
			h.logger.Info("skipping redelivered event", "event_id", evt.ID)
			continue
		}
		fresh = append(fresh, evt)
	}

	if len(fresh) > 0 {
		if err := h.publisher.EnqueueDelivery(r.Context(), fresh); err != nil {
			h.logger.Error("failed to enqueue webhook delivery", "error", err)
			h.ack(w, start, "error", map[string]any{"status": "error", "message": "failed to queue delivery"})
			return
		}
	}

	h.ack(w, start, "success", map[string]any{"status": "success", "events_queued": len(fresh)})
}

func (h *SMSWebhookHandler) markProcessed(ctx context.Context, eventID string) (bool, error) {
	if h.processed == nil {
		return true, nil
	}
	return h.processed.MarkProcessed(ctx, eventGridProvider, eventID)
}

func (h *SMSWebhookHandler) ack(w http.ResponseWriter, start time.Time, status string, body map[string]any) {
	h.metrics.ObserveWebhookDelivery(status, time.Since(start))
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
