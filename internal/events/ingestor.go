package events

import (
	"context"

	"github.com/wolfman30/sms-scheduler/pkg/logging"
)

// InboundHandler receives genuine inbound SMS messages.
type InboundHandler interface {
	HandleInbound(ctx context.Context, from, message string) error
}

// Ingestor walks a webhook delivery and dispatches inbound SMS events.
// Validation events are answered synchronously by the HTTP handler and
// skipped here; delivery reports and unknown types are acknowledged but
// otherwise ignored.
type Ingestor struct {
	handler InboundHandler
	logger  *logging.Logger
}

// NewIngestor creates an ingestor dispatching to handler.
func NewIngestor(handler InboundHandler, logger *logging.Logger) *Ingestor {
	if handler == nil {
		panic("events: inbound handler cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Ingestor{handler: handler, logger: logger}
}

// ProcessDelivery classifies and dispatches every event in a delivery.
func (i *Ingestor) ProcessDelivery(ctx context.Context, evts []Event) {
	for _, evt := range evts {
		switch evt.EventType {
		case TypeSubscriptionValidation:
			i.logger.Info("skipping validation event", "event_id", evt.ID)
		case TypeSMSReceived:
			sms, ok := evt.InboundSMS()
			if !ok || sms.Message == "" || sms.From == "" {
				i.logger.Warn("inbound SMS event missing message or sender", "event_id", evt.ID)
				continue
			}
			if err := i.handler.HandleInbound(ctx, sms.From, sms.Message); err != nil {
				i.logger.Error("failed to process inbound SMS", "error", err, "event_id", evt.ID)
			}
		case TypeSMSDeliveryReport:
			i.logger.Debug("acknowledged delivery report", "event_id", evt.ID)
		default:
			i.logger.Debug("ignoring event", "event_type", evt.EventType, "event_id", evt.ID)
		}
	}
}
