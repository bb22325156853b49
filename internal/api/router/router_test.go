package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/sms-scheduler/internal/calendar"
	"github.com/wolfman30/sms-scheduler/internal/events"
	"github.com/wolfman30/sms-scheduler/internal/http/handlers"
	"github.com/wolfman30/sms-scheduler/internal/session"
	"github.com/wolfman30/sms-scheduler/pkg/logging"
)

type noopPublisher struct{}

func (noopPublisher) EnqueueDelivery(_ context.Context, _ []events.Event) error { return nil }

func newTestRouter(t *testing.T, adminSecret string) http.Handler {
	t.Helper()

	cal := calendar.New()
	cal.Generate(time.Now())
	store := session.NewStore(cal)

	webhook := handlers.NewSMSWebhookHandler(handlers.SMSWebhookConfig{
		Publisher: noopPublisher{},
		Logger:    logging.Default(),
	})
	admin := handlers.NewAdminHandler(store, cal, logging.Default())

	return New(&Config{
		Logger:          logging.Default(),
		SMSWebhook:      webhook,
		Admin:           admin,
		AdminAuthSecret: adminSecret,
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, "")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestWebhookRoute(t *testing.T) {
	r := newTestRouter(t, "")
	body := strings.NewReader(`[{"id":"evt-1","eventType":"Microsoft.EventGrid.SubscriptionValidationEvent","data":{"validationCode":"abc"}}]`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sms/webhook", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	payload, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(payload), "abc")
}

func TestAdminRoutesOpenWithoutSecret(t *testing.T) {
	r := newTestRouter(t, "")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutesRequireTokenWithSecret(t *testing.T) {
	r := newTestRouter(t, "secret")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookNotGated(t *testing.T) {
	r := newTestRouter(t, "secret")
	body := strings.NewReader(`[{"id":"evt-1","eventType":"Microsoft.Communication.SMSReceived","data":{"from":"+15551234567","message":"Hi"}}]`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sms/webhook", body))

	assert.Equal(t, http.StatusOK, rec.Code)
}
