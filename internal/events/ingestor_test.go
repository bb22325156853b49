package events

import (
	"context"
	"testing"

	"github.com/wolfman30/sms-scheduler/pkg/logging"
)

type recordingHandler struct {
	calls []string
}

func (r *recordingHandler) HandleInbound(_ context.Context, from, message string) error {
	r.calls = append(r.calls, from+"|"+message)
	return nil
}

func TestProcessDeliveryDispatchesInbound(t *testing.T) {
	handler := &recordingHandler{}
	ing := NewIngestor(handler, logging.Default())

	ing.ProcessDelivery(context.Background(), []Event{
		{ID: "1", EventType: TypeSMSReceived, Data: []byte(`{"message":"hello","from":"+15550001111"}`)},
		{ID: "2", EventType: TypeSMSDeliveryReport, Data: []byte(`{"deliveryStatus":"Delivered"}`)},
		{ID: "3", EventType: "Some.Unknown.Type", Data: []byte(`{}`)},
		{ID: "4", EventType: TypeSMSReceived, Data: []byte(`{"message":"again","from":"+15550001111"}`)},
	})

	if len(handler.calls) != 2 {
		t.Fatalf("expected 2 dispatches, got %d: %v", len(handler.calls), handler.calls)
	}
	if handler.calls[0] != "+15550001111|hello" || handler.calls[1] != "+15550001111|again" {
		t.Errorf("unexpected dispatches: %v", handler.calls)
	}
}

func TestProcessDeliverySkipsIncomplete(t *testing.T) {
	handler := &recordingHandler{}
	ing := NewIngestor(handler, logging.Default())

	ing.ProcessDelivery(context.Background(), []Event{
		{ID: "1", EventType: TypeSMSReceived, Data: []byte(`{"message":"","from":"+15550001111"}`)},
		{ID: "2", EventType: TypeSMSReceived, Data: []byte(`{"message":"no sender"}`)},
		{ID: "3", EventType: TypeSMSReceived, Data: []byte(`not json`)},
		{ID: "4", EventType: TypeSubscriptionValidation, Data: []byte(`{"validationCode":"x"}`)},
	})

	if len(handler.calls) != 0 {
		t.Fatalf("expected no dispatches, got %v", handler.calls)
	}
}
