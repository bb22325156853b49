// Package events models the Event Grid webhook envelope delivered by the SMS
// platform and classifies its events.
package events

import (
	"encoding/json"
	"errors"
	"strings"
)

// Recognized eventType values.
const (
	TypeSubscriptionValidation = "Microsoft.EventGrid.SubscriptionValidationEvent"
	TypeSMSReceived            = "Microsoft.Communication.SMSReceived"
	TypeSMSDeliveryReport      = "Microsoft.Communication.SMSDeliveryReportReceived"
)

// Event is one entry of a webhook delivery.
type Event struct {
	ID        string          `json:"id"`
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
}

// InboundSMS is the data payload of a TypeSMSReceived event.
type InboundSMS struct {
	MessageID string `json:"messageId"`
	From      string `json:"from"`
	To        string `json:"to"`
	Message   string `json:"message"`
}

// ErrNotJSON reports a body that could not be decoded at all.
var ErrNotJSON = errors.New("events: delivery is not valid JSON")

// ParseDelivery decodes a webhook body, which is either a single event object
// or an array of event objects.
func ParseDelivery(body []byte) ([]Event, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, ErrNotJSON
	}

	if strings.HasPrefix(trimmed, "[") {
		var batch []Event
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, ErrNotJSON
		}
		return batch, nil
	}

	var single Event
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, ErrNotJSON
	}
	return []Event{single}, nil
}

// ValidationCode extracts the subscription-validation handshake code, if this
// is a validation event carrying one.
func (e Event) ValidationCode() (string, bool) {
	if e.EventType != TypeSubscriptionValidation {
		return "", false
	}
	var data struct {
		ValidationCode string `json:"validationCode"`
	}
	if err := json.Unmarshal(e.Data, &data); err != nil || data.ValidationCode == "" {
		return "", false
	}
	return data.ValidationCode, true
}

// FindValidationCode scans a delivery for a validation event. A hit takes
// priority over everything else in the delivery.
func FindValidationCode(evts []Event) (string, bool) {
	for _, e := range evts {
		if code, ok := e.ValidationCode(); ok {
			return code, true
		}
	}
	return "", false
}

// InboundSMS decodes the data payload of an SMS-received event.
func (e Event) InboundSMS() (InboundSMS, bool) {
	if e.EventType != TypeSMSReceived {
		return InboundSMS{}, false
	}
	var sms InboundSMS
	if err := json.Unmarshal(e.Data, &sms); err != nil {
		return InboundSMS{}, false
	}
	return sms, true
}
