package session

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/sms-scheduler/internal/calendar"
	"github.com/wolfman30/sms-scheduler/internal/prompt"
)

// Store owns the session and appointment maps. All reads and writes go
// through its methods, and WithPhoneLock serializes whole turns per sender so
// two concurrent deliveries from the same number cannot interleave.
type Store struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	appointments map[string]Appointment
	locks        map[string]*sync.Mutex

	cal   *calendar.Calendar
	rng   *rand.Rand
	clock func() time.Time
}

// NewStore creates an empty store booking against cal.
func NewStore(cal *calendar.Calendar) *Store {
	if cal == nil {
		panic("session: calendar cannot be nil")
	}
	return &Store{
		sessions:     make(map[string]*Session),
		appointments: make(map[string]Appointment),
		locks:        make(map[string]*sync.Mutex),
		cal:          cal,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		clock:        time.Now,
	}
}

// WithPhoneLock runs fn while holding the per-phone mutex, guaranteeing at
// most one in-flight turn per sender. Different phone numbers proceed
// concurrently.
func (s *Store) WithPhoneLock(phone string, fn func()) {
	l := s.lockFor(phone)
	l.Lock()
	defer l.Unlock()
	fn()
}

func (s *Store) lockFor(phone string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[phone]
	if !ok {
		l = &sync.Mutex{}
		s.locks[phone] = l
	}
	return l
}

// GetOrInit returns the session for phone, creating it on first sight. A new
// session starts in StateAwaitingFirstContact with a single system turn built
// from the sender's appointment.
func (s *Store) GetOrInit(phone string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[phone]; ok {
		return copySession(sess)
	}

	appt := s.getOrInitAppointmentLocked(phone)
	sess := &Session{
		Phone: phone,
		State: StateAwaitingFirstContact,
		Turns: []Turn{{
			Role:    RoleSystem,
			Content: prompt.BaseSystemPrompt(appt.Date, appt.Time, s.clock()),
		}},
	}
	s.sessions[phone] = sess
	return copySession(sess)
}

// Activate transitions the session out of the first-contact state.
func (s *Store) Activate(phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[phone]
	if !ok {
		return fmt.Errorf("session: no session for %s", phone)
	}
	sess.State = StateActive
	return nil
}

// AppendTurn appends to the session's turn sequence. The session must already
// exist; callers go through GetOrInit first.
func (s *Store) AppendTurn(phone, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[phone]
	if !ok {
		return fmt.Errorf("session: no session for %s", phone)
	}
	sess.Turns = append(sess.Turns, Turn{Role: role, Content: content})
	return nil
}

// AugmentSystemTurn appends extra to the system turn in place. It does not
// deduplicate: every matching trigger re-appends its context, so the system
// turn grows on repeated reschedule requests.
func (s *Store) AugmentSystemTurn(phone, extra string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[phone]
	if !ok {
		return fmt.Errorf("session: no session for %s", phone)
	}
	if len(sess.Turns) == 0 || sess.Turns[0].Role != RoleSystem {
		return fmt.Errorf("session: %s has no system turn", phone)
	}
	sess.Turns[0].Content += extra
	return nil
}

// Get returns a copy of the session for phone, if one exists.
func (s *Store) Get(phone string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[phone]
	if !ok {
		return Session{}, false
	}
	return copySession(sess), true
}

// List returns the phone numbers with sessions, sorted for stable output.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	phones := make([]string, 0, len(s.sessions))
	for phone := range s.sessions {
		phones = append(phones, phone)
	}
	sort.Strings(phones)
	return phones
}

// Delete removes the session for phone. The appointment is untouched; the
// two have distinct lifecycles.
func (s *Store) Delete(phone string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[phone]; !ok {
		return false
	}
	delete(s.sessions, phone)
	return true
}

// GetOrInitAppointment returns the sender's appointment, synthesizing a
// future-weekday consultation if none exists yet.
func (s *Store) GetOrInitAppointment(phone string) Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrInitAppointmentLocked(phone)
}

// GetAppointment returns the appointment for phone, if one exists.
func (s *Store) GetAppointment(phone string) (Appointment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appointments[phone]
	return appt, ok
}

// Rebook books (date, slot) on the calendar and, on success, replaces the
// sender's appointment. A false return means the slot was unknown or taken
// and nothing changed.
func (s *Store) Rebook(phone, date, slot string) bool {
	if !s.cal.Book(date, slot) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments[phone] = Appointment{
		Date:   date,
		Time:   slot,
		Kind:   appointmentKind,
		Status: statusScheduled,
	}
	return true
}

// getOrInitAppointmentLocked synthesizes a random weekday/slot appointment.
// The result is mock data and is not validated against calendar availability.
// Caller holds s.mu.
func (s *Store) getOrInitAppointmentLocked(phone string) Appointment {
	if appt, ok := s.appointments[phone]; ok {
		return appt
	}

	day := s.clock().AddDate(0, 0, 1+s.rng.Intn(appointmentWindow))
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	appt := Appointment{
		Date:   day.Format(calendar.DateLayout),
		Time:   appointmentTimePool[s.rng.Intn(len(appointmentTimePool))],
		Kind:   appointmentKind,
		Status: statusScheduled,
	}
	s.appointments[phone] = appt
	return appt
}

func copySession(sess *Session) Session {
	out := Session{
		Phone: sess.Phone,
		State: sess.State,
		Turns: make([]Turn, len(sess.Turns)),
	}
	copy(out.Turns, sess.Turns)
	return out
}
