// Package metrics defines the Prometheus instruments for the scheduling
// assistant. All observe methods are nil-safe so call sites never need to
// guard against a missing registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConversationMetrics covers the webhook, dialogue, and delivery pipeline.
type ConversationMetrics struct {
	webhookDeliveries *prometheus.CounterVec
	webhookLatency    prometheus.Histogram
	inboundEvents     *prometheus.CounterVec
	turns             *prometheus.CounterVec
	llmLatency        prometheus.Histogram
	smsSends          *prometheus.CounterVec
}

// NewConversationMetrics registers the conversation instruments on reg.
func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sms_webhook_deliveries_total",
			Help: "Webhook deliveries received, by acknowledgement status.",
		}, []string{"status"}),
		webhookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sms_webhook_duration_seconds",
			Help:    "Time spent acknowledging a webhook delivery.",
			Buckets: prometheus.DefBuckets,
		}),
		inboundEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sms_inbound_events_total",
			Help: "Events processed by the ingestor, by event type.",
		}, []string{"event_type"}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conversation_turns_total",
			Help: "Conversation turns handled, by outcome.",
		}, []string{"outcome"}),
		llmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "conversation_llm_duration_seconds",
			Help:    "Latency of language model completions.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
		}),
		smsSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sms_sends_total",
			Help: "Outbound SMS attempts, by status.",
		}, []string{"status"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.webhookDeliveries,
			m.webhookLatency,
			m.inboundEvents,
			m.turns,
			m.llmLatency,
			m.smsSends,
		)
	}

	return m
}

// ObserveWebhookDelivery records one acknowledged delivery.
func (m *ConversationMetrics) ObserveWebhookDelivery(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(status).Inc()
	m.webhookLatency.Observe(duration.Seconds())
}

// ObserveInboundEvent records one event seen by the ingestor.
func (m *ConversationMetrics) ObserveInboundEvent(eventType string) {
	if m == nil {
		return
	}
	m.inboundEvents.WithLabelValues(eventType).Inc()
}

// ObserveTurn records one handled conversation turn.
func (m *ConversationMetrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(outcome).Inc()
}

// ObserveLLMLatency records the duration of one model completion.
func (m *ConversationMetrics) ObserveLLMLatency(duration time.Duration) {
	if m == nil {
		return
	}
	m.llmLatency.Observe(duration.Seconds())
}

// ObserveSMSSend records one outbound SMS attempt.
func (m *ConversationMetrics) ObserveSMSSend(status string) {
	if m == nil {
		return
	}
	m.smsSends.WithLabelValues(status).Inc()
}
