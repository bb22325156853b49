package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/sms-scheduler/internal/calendar"
	"github.com/wolfman30/sms-scheduler/internal/session"
	"github.com/wolfman30/sms-scheduler/pkg/logging"
)

// AdminHandler exposes the read/delete surface over conversations,
// appointments, and the calendar used for debugging a live process.
type AdminHandler struct {
	sessions *session.Store
	cal      *calendar.Calendar
	logger   *logging.Logger
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(sessions *session.Store, cal *calendar.Calendar, logger *logging.Logger) *AdminHandler {
	if sessions == nil {
		panic("handlers: session store required")
	}
	if cal == nil {
		panic("handlers: calendar required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{sessions: sessions, cal: cal, logger: logger}
}

// ConversationsListResponse lists the phone numbers with active sessions.
type ConversationsListResponse struct {
	PhoneNumbers []string `json:"phone_numbers"`
	Count        int      `json:"count"`
}

// ListConversations handles GET /api/conversations.
func (h *AdminHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	phones := h.sessions.List()
	writeJSON(w, http.StatusOK, ConversationsListResponse{
		PhoneNumbers: phones,
		Count:        len(phones),
	})
}

// GetConversation handles GET /api/conversations/{phone}.
func (h *AdminHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	sess, ok := h.sessions.Get(phone)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"status": "error", "message": "conversation not found"})
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// DeleteConversation handles DELETE /api/conversations/{phone}. The sender's
// appointment survives; only the transcript is dropped.
func (h *AdminHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if !h.sessions.Delete(phone) {
		writeJSON(w, http.StatusNotFound, map[string]any{"status": "error", "message": "conversation not found"})
		return
	}
	h.logger.Info("conversation deleted", "phone_digits", len(phone))
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "phone_number": phone})
}

// GetAppointment handles GET /api/appointments/{phone}.
func (h *AdminHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	appt, ok := h.sessions.GetAppointment(phone)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"status": "error", "message": "appointment not found"})
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// CalendarResponse lists the generated business dates.
type CalendarResponse struct {
	Dates []string `json:"dates"`
}

// GetCalendar handles GET /api/calendar.
func (h *AdminHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CalendarResponse{Dates: h.cal.Dates()})
}

// CalendarDayResponse lists the free slots remaining for one date.
type CalendarDayResponse struct {
	Date      string   `json:"date"`
	FreeSlots []string `json:"free_slots"`
}

// GetCalendarDay handles GET /api/calendar/{date}.
func (h *AdminHandler) GetCalendarDay(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	slots, ok := h.cal.Snapshot()[date]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"status": "error", "message": "date not in calendar"})
		return
	}
	writeJSON(w, http.StatusOK, CalendarDayResponse{Date: date, FreeSlots: slots})
}
