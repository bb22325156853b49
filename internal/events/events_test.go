package events

import (
	"testing"
)

func TestParseDeliverySingle(t *testing.T) {
	body := []byte(`{"id":"evt-1","eventType":"Microsoft.Communication.SMSReceived","data":{"message":"hello","from":"+15551234567"}}`)

	evts, err := ParseDelivery(body)
	if err != nil {
		t.Fatalf("ParseDelivery failed: %v", err)
	}
	if len(evts) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evts))
	}
	if evts[0].EventType != TypeSMSReceived {
		t.Errorf("unexpected event type %s", evts[0].EventType)
	}
}

func TestParseDeliveryBatch(t *testing.T) {
	body := []byte(`[
		{"id":"evt-1","eventType":"Microsoft.Communication.SMSDeliveryReportReceived","data":{}},
		{"id":"evt-2","eventType":"Microsoft.Communication.SMSReceived","data":{"message":"hi","from":"+15550001111"}}
	]`)

	evts, err := ParseDelivery(body)
	if err != nil {
		t.Fatalf("ParseDelivery failed: %v", err)
	}
	if len(evts) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evts))
	}
}

func TestParseDeliveryMalformed(t *testing.T) {
	for _, body := range []string{"", "not json", "[{]"} {
		if _, err := ParseDelivery([]byte(body)); err == nil {
			t.Errorf("expected error for body %q", body)
		}
	}
}

func TestValidationCode(t *testing.T) {
	evt := Event{
		EventType: TypeSubscriptionValidation,
		Data:      []byte(`{"validationCode":"code-123"}`),
	}
	code, ok := evt.ValidationCode()
	if !ok || code != "code-123" {
		t.Fatalf("ValidationCode = %q, %v", code, ok)
	}

	other := Event{EventType: TypeSMSReceived, Data: []byte(`{"validationCode":"nope"}`)}
	if _, ok := other.ValidationCode(); ok {
		t.Error("non-validation event yielded a code")
	}
}

func TestFindValidationCodeAnywhere(t *testing.T) {
	evts := []Event{
		{EventType: TypeSMSReceived, Data: []byte(`{"message":"hi","from":"+15550001111"}`)},
		{EventType: TypeSubscriptionValidation, Data: []byte(`{"validationCode":"abc"}`)},
	}
	code, ok := FindValidationCode(evts)
	if !ok || code != "abc" {
		t.Fatalf("FindValidationCode = %q, %v", code, ok)
	}

	if _, ok := FindValidationCode(evts[:1]); ok {
		t.Error("found a code in a delivery without validation events")
	}
}

func TestInboundSMS(t *testing.T) {
	evt := Event{
		EventType: TypeSMSReceived,
		Data:      []byte(`{"messageId":"m-1","from":"+15551234567","to":"+15559990000","message":"hello there"}`),
	}
	sms, ok := evt.InboundSMS()
	if !ok {
		t.Fatal("InboundSMS returned not-ok for SMS event")
	}
	if sms.From != "+15551234567" || sms.Message != "hello there" {
		t.Errorf("unexpected payload: %+v", sms)
	}

	report := Event{EventType: TypeSMSDeliveryReport, Data: []byte(`{}`)}
	if _, ok := report.InboundSMS(); ok {
		t.Error("delivery report decoded as inbound SMS")
	}
}
