// Package conversation runs the SMS scheduling dialogue: it queues webhook
// deliveries, drives the per-sender state machine, and talks to the language
// model and the SMS provider.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/sms-scheduler/internal/calendar"
	"github.com/wolfman30/sms-scheduler/internal/observability/metrics"
	"github.com/wolfman30/sms-scheduler/internal/prompt"
	"github.com/wolfman30/sms-scheduler/internal/session"
	"github.com/wolfman30/sms-scheduler/pkg/logging"
)

var serviceTracer = otel.Tracer("scheduler.internal.conversation")

const (
	llmTimeout = 30 * time.Second

	// rescheduleLookaheadDays bounds how far ahead slot context reaches.
	rescheduleLookaheadDays = 14
	// rescheduleMaxDates and rescheduleSlotsPerDate keep the injected block
	// small enough for an SMS-scale prompt.
	rescheduleMaxDates     = 5
	rescheduleSlotsPerDate = 3

	fallbackApology = "Sorry, we're having trouble responding right now. Please try again in a few minutes."
)

// ServiceConfig carries the tunables the orchestrator needs.
type ServiceConfig struct {
	// FromNumber is the provider number outbound SMS is sent from.
	FromNumber string
	// ModelID is passed through to the LLM client on every completion.
	ModelID string
	// MaxReplyTokens caps completion length so replies fit in an SMS.
	MaxReplyTokens int
	// HistoryWindow bounds how many non-system turns are replayed to the
	// model. Zero or negative means the full history.
	HistoryWindow int
}

// Service is the dialogue orchestrator. It implements events.InboundHandler:
// every inbound SMS becomes one serialized turn against the sender's session.
type Service struct {
	cfg      ServiceConfig
	sessions *session.Store
	cal      *calendar.Calendar
	llm      LLMClient
	sms      SMSSender
	metrics  *metrics.ConversationMetrics
	logger   *logging.Logger
	clock    func() time.Time
}

// NewService wires the orchestrator. llm and sms may not be nil; metrics may.
func NewService(cfg ServiceConfig, sessions *session.Store, cal *calendar.Calendar, llm LLMClient, sms SMSSender, m *metrics.ConversationMetrics, logger *logging.Logger) *Service {
	if sessions == nil {
		panic("conversation: session store cannot be nil")
	}
	if cal == nil {
		panic("conversation: calendar cannot be nil")
	}
	if llm == nil {
		panic("conversation: LLM client cannot be nil")
	}
	if sms == nil {
		panic("conversation: SMS sender cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		cfg:      cfg,
		sessions: sessions,
		cal:      cal,
		llm:      llm,
		sms:      sms,
		metrics:  m,
		logger:   logger,
		clock:    time.Now,
	}
}

// HandleInbound processes one inbound SMS as a full conversation turn. Turns
// from the same sender are serialized behind the per-phone lock; different
// senders proceed concurrently.
func (s *Service) HandleInbound(ctx context.Context, from, message string) error {
	ctx, span := serviceTracer.Start(ctx, "HandleInbound")
	defer span.End()
	span.SetAttributes(attribute.Int("message.length", len(message)))

	if s.cfg.FromNumber == "" {
		err := fmt.Errorf("conversation: no outbound number configured")
		span.RecordError(err)
		s.metrics.ObserveTurn("misconfigured")
		return err
	}

	var err error
	s.sessions.WithPhoneLock(from, func() {
		err = s.handleTurn(ctx, from, message)
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *Service) handleTurn(ctx context.Context, from, message string) error {
	sess := s.sessions.GetOrInit(from)

	if sess.State == session.StateAwaitingFirstContact {
		return s.handleFirstContact(ctx, from)
	}
	return s.handleActiveTurn(ctx, from, message)
}

// handleFirstContact answers the sender's very first message with the canned
// appointment reminder. The inbound text itself is not recorded; the dialogue
// starts from the reminder.
func (s *Service) handleFirstContact(ctx context.Context, from string) error {
	ctx, span := serviceTracer.Start(ctx, "FirstContact")
	defer span.End()

	appt := s.sessions.GetOrInitAppointment(from)
	reminder := prompt.ReminderMessage(appt.Date, appt.Time)

	if err := s.sessions.AppendTurn(from, session.RoleAssistant, reminder); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.sessions.Activate(from); err != nil {
		span.RecordError(err)
		return err
	}

	s.metrics.ObserveTurn("first_contact")
	s.sendSMS(ctx, from, reminder)
	s.logger.Info("first contact reminder sent", "appointment_date", appt.Date, "appointment_time", appt.Time)
	return nil
}

func (s *Service) handleActiveTurn(ctx context.Context, from, message string) error {
	ctx, span := serviceTracer.Start(ctx, "ActiveTurn")
	defer span.End()

	if err := s.sessions.AppendTurn(from, session.RoleUser, message); err != nil {
		span.RecordError(err)
		return err
	}

	if wantsReschedule(message) {
		block := s.availabilityBlock()
		if block != "" {
			if err := s.sessions.AugmentSystemTurn(from, block); err != nil {
				span.RecordError(err)
				return err
			}
			span.SetAttributes(attribute.Bool("reschedule.context_injected", true))
		}
	}

	sess, ok := s.sessions.Get(from)
	if !ok {
		err := fmt.Errorf("conversation: session vanished for sender")
		span.RecordError(err)
		return err
	}

	reply, err := s.complete(ctx, sess)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("language model completion failed", "error", err)
		s.metrics.ObserveTurn("llm_failed")
		s.sendSMS(ctx, from, fallbackApology)
		return nil
	}

	if err := s.sessions.AppendTurn(from, session.RoleAssistant, reply); err != nil {
		span.RecordError(err)
		return err
	}

	s.metrics.ObserveTurn("replied")
	s.sendSMS(ctx, from, reply)
	return nil
}

// complete runs one model completion over the windowed history.
func (s *Service) complete(ctx context.Context, sess session.Session) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	req := LLMRequest{
		Model:       s.cfg.ModelID,
		Messages:    s.windowedHistory(sess),
		MaxTokens:   int32(s.cfg.MaxReplyTokens),
		Temperature: -1,
	}

	start := s.clock()
	resp, err := s.llm.Complete(ctx, req)
	s.metrics.ObserveLLMLatency(s.clock().Sub(start))
	if err != nil {
		return "", err
	}

	reply := strings.TrimSpace(resp.Text)
	if reply == "" {
		return "", fmt.Errorf("conversation: model returned an empty reply")
	}
	return reply, nil
}

// windowedHistory maps the session to chat messages: the system turn always,
// then the most recent HistoryWindow non-system turns.
func (s *Service) windowedHistory(sess session.Session) []ChatMessage {
	turns := sess.Turns
	var system []session.Turn
	if len(turns) > 0 && turns[0].Role == session.RoleSystem {
		system = turns[:1]
		turns = turns[1:]
	}

	if s.cfg.HistoryWindow > 0 && len(turns) > s.cfg.HistoryWindow {
		turns = turns[len(turns)-s.cfg.HistoryWindow:]
	}

	messages := make([]ChatMessage, 0, len(system)+len(turns))
	for _, t := range system {
		messages = append(messages, ChatMessage{Role: ChatRoleSystem, Content: t.Content})
	}
	for _, t := range turns {
		role := ChatRoleUser
		if t.Role == session.RoleAssistant {
			role = ChatRoleAssistant
		}
		messages = append(messages, ChatMessage{Role: role, Content: t.Content})
	}
	return messages
}

// availabilityBlock samples upcoming free slots into a prompt block. Empty
// string means nothing is bookable in the lookahead window.
func (s *Service) availabilityBlock() string {
	now := s.clock()
	var days []prompt.DayAvailability

	for offset := 1; offset <= rescheduleLookaheadDays && len(days) < rescheduleMaxDates; offset++ {
		day := now.AddDate(0, 0, offset)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		date := day.Format(calendar.DateLayout)
		slots := s.cal.FreeSlots(date, rescheduleSlotsPerDate)
		if len(slots) == 0 {
			continue
		}
		days = append(days, prompt.DayAvailability{Date: date, Slots: slots})
	}

	if len(days) == 0 {
		return ""
	}
	return prompt.CalendarContextBlock(days)
}

// sendSMS delivers best-effort: a provider failure is logged and counted but
// never fails the turn, since session state has already advanced.
func (s *Service) sendSMS(ctx context.Context, to, body string) {
	id, err := s.sms.Send(ctx, s.cfg.FromNumber, to, body)
	if err != nil {
		s.logger.Error("failed to send SMS", "error", err)
		s.metrics.ObserveSMSSend("failed")
		return
	}
	s.metrics.ObserveSMSSend("sent")
	s.logger.Debug("SMS sent", "message_id", id)
}

// wantsReschedule flags messages that should pull calendar context into the
// system turn.
func wantsReschedule(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "reschedule") || strings.Contains(lower, "change")
}
