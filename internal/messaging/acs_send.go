// Package messaging sends outbound SMS through Azure Communication Services.
package messaging

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/sms-scheduler/internal/conversation"
	"github.com/wolfman30/sms-scheduler/pkg/logging"
)

var acsSendTracer = otel.Tracer("scheduler.internal.messaging.acs_send")

const (
	smsPath       = "/sms"
	smsAPIVersion = "2021-03-07"
	sendAttempts  = 3
)

// ACSConfig configures the Azure Communication Services sender.
type ACSConfig struct {
	// Endpoint is the resource endpoint, e.g. https://<name>.communication.azure.com.
	Endpoint string
	// AccessKey is the base64-encoded resource access key used for HMAC signing.
	AccessKey string
	// Timeout bounds each HTTP attempt. Zero means 10 seconds.
	Timeout time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// ACSSender posts SMS messages using the Azure Communication Services REST
// API with HMAC-SHA256 request signing.
type ACSSender struct {
	endpoint   *url.URL
	accessKey  []byte
	httpClient *http.Client
	logger     *logging.Logger
	now        func() time.Time
}

// NewACSSender builds a sender against the configured ACS resource.
func NewACSSender(cfg ACSConfig) (*ACSSender, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("messaging: acs endpoint missing")
	}
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil || endpoint.Host == "" {
		return nil, fmt.Errorf("messaging: invalid acs endpoint %q", cfg.Endpoint)
	}
	key, err := base64.StdEncoding.DecodeString(cfg.AccessKey)
	if err != nil || len(key) == 0 {
		return nil, errors.New("messaging: acs access key must be non-empty base64")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &ACSSender{
		endpoint:   endpoint,
		accessKey:  key,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}, nil
}

var _ conversation.SMSSender = (*ACSSender)(nil)

type acsSendRequest struct {
	From          string         `json:"from"`
	SMSRecipients []acsRecipient `json:"smsRecipients"`
	Message       string         `json:"message"`
	SendOptions   acsSendOptions `json:"smsSendOptions"`
}

type acsRecipient struct {
	To string `json:"to"`
}

type acsSendOptions struct {
	EnableDeliveryReport bool `json:"enableDeliveryReport"`
}

type acsSendResponse struct {
	Value []struct {
		To             string `json:"to"`
		MessageID      string `json:"messageId"`
		HTTPStatusCode int    `json:"httpStatusCode"`
		Successful     bool   `json:"successful"`
		ErrorMessage   string `json:"errorMessage"`
	} `json:"value"`
}

// Send dispatches a single SMS, retrying transient failures. It returns the
// provider message ID on success.
func (s *ACSSender) Send(ctx context.Context, from, to, body string) (string, error) {
	if from == "" {
		return "", errors.New("messaging: from required")
	}
	if to == "" {
		return "", errors.New("messaging: to required")
	}
	if strings.TrimSpace(body) == "" {
		return "", errors.New("messaging: body required")
	}

	ctx, span := acsSendTracer.Start(ctx, "messaging.acs.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("sms.to", to),
		attribute.String("sms.from", from),
	)

	payload, err := json.Marshal(acsSendRequest{
		From:          from,
		SMSRecipients: []acsRecipient{{To: to}},
		Message:       body,
		SendOptions:   acsSendOptions{EnableDeliveryReport: true},
	})
	if err != nil {
		return "", fmt.Errorf("messaging: failed to marshal acs payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		id, retryable, err := s.attempt(ctx, payload)
		if err == nil {
			s.logger.Info("acs sms sent", "to", to, "from", from, "message_id", id)
			return id, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		if attempt < sendAttempts {
			time.Sleep(time.Duration(200+rand.Intn(300)) * time.Millisecond)
		}
	}

	span.RecordError(lastErr)
	s.logger.Error("failed to send acs sms", "error", lastErr, "to", to)
	return "", lastErr
}

func (s *ACSSender) attempt(ctx context.Context, payload []byte) (id string, retryable bool, err error) {
	target := *s.endpoint
	target.Path = smsPath
	target.RawQuery = "api-version=" + smsAPIVersion

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	s.sign(req, payload)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return "", retryable, fmt.Errorf("messaging: acs send failed: status %d, body: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed acsSendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil || len(parsed.Value) == 0 {
		return "", false, errors.New("messaging: acs send returned an unreadable response")
	}
	result := parsed.Value[0]
	if !result.Successful {
		return "", false, fmt.Errorf("messaging: acs rejected recipient: %s", result.ErrorMessage)
	}
	return result.MessageID, false, nil
}

// sign applies the ACS HMAC-SHA256 scheme: the request is authenticated by a
// signature over the method, path+query, and the x-ms-date, host, and
// x-ms-content-sha256 headers.
func (s *ACSSender) sign(req *http.Request, payload []byte) {
	contentHash := sha256.Sum256(payload)
	encodedHash := base64.StdEncoding.EncodeToString(contentHash[:])
	date := s.now().UTC().Format(http.TimeFormat)

	pathAndQuery := req.URL.Path
	if req.URL.RawQuery != "" {
		pathAndQuery += "?" + req.URL.RawQuery
	}
	stringToSign := req.Method + "\n" + pathAndQuery + "\n" + date + ";" + req.URL.Host + ";" + encodedHash

	mac := hmac.New(sha256.New, s.accessKey)
	mac.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("x-ms-date", date)
	req.Header.Set("x-ms-content-sha256", encodedHash)
	req.Header.Set("Authorization", "HMAC-SHA256 SignedHeaders=x-ms-date;host;x-ms-content-sha256&Signature="+signature)
}
