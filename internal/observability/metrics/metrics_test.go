package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversationMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversationMetrics(reg)
	require.NotNil(t, m)

	m.ObserveWebhookDelivery("success", 50*time.Millisecond)
	m.ObserveInboundEvent("Microsoft.Communication.SMSReceived")
	m.ObserveTurn("replied")
	m.ObserveTurn("replied")
	m.ObserveLLMLatency(1200 * time.Millisecond)
	m.ObserveSMSSend("sent")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.webhookDeliveries.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.inboundEvents.WithLabelValues("Microsoft.Communication.SMSReceived")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.turns.WithLabelValues("replied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.smsSends.WithLabelValues("sent")))
}

func TestConversationMetricsNilSafe(t *testing.T) {
	var m *ConversationMetrics

	assert.NotPanics(t, func() {
		m.ObserveWebhookDelivery("error", time.Second)
		m.ObserveInboundEvent("Microsoft.Communication.SMSReceived")
		m.ObserveTurn("llm_failed")
		m.ObserveLLMLatency(time.Second)
		m.ObserveSMSSend("failed")
	})
}

func TestNewConversationMetricsNilRegisterer(t *testing.T) {
	assert.NotPanics(t, func() {
		m := NewConversationMetrics(nil)
		m.ObserveTurn("replied")
	})
}
