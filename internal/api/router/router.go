// Package router assembles the HTTP surface: the public webhook and health
// endpoints plus the JWT-protected admin API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/sms-scheduler/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/sms-scheduler/internal/http/middleware"
	"github.com/wolfman30/sms-scheduler/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	SMSWebhook      *handlers.SMSWebhookHandler
	Admin           *handlers.AdminHandler
	MetricsHandler  http.Handler
	AdminAuthSecret string
}

// New creates a Chi router with all routes configured. An empty
// AdminAuthSecret leaves the admin API open, matching local development use.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.SMSWebhook != nil {
		r.Post("/api/sms/webhook", cfg.SMSWebhook.HandleDelivery)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Admin != nil {
		r.Group(func(admin chi.Router) {
			if cfg.AdminAuthSecret != "" {
				admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			}
			admin.Get("/api/conversations", cfg.Admin.ListConversations)
			admin.Get("/api/conversations/{phone}", cfg.Admin.GetConversation)
			admin.Delete("/api/conversations/{phone}", cfg.Admin.DeleteConversation)
			admin.Get("/api/appointments/{phone}", cfg.Admin.GetAppointment)
			admin.Get("/api/calendar", cfg.Admin.GetCalendar)
			admin.Get("/api/calendar/{date}", cfg.Admin.GetCalendarDay)
		})
	}

	return r
}
