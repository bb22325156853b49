// Package session owns per-sender conversation and appointment state.
//
// Phone numbers are opaque identity keys: two deliveries that format the same
// physical number differently are treated as different senders. Normalizing
// would silently re-key existing sessions, so none is performed.
package session

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// State tags where a sender is in the conversational protocol.
type State string

const (
	// StateAwaitingFirstContact marks a freshly created session whose sender
	// has not yet received the appointment reminder.
	StateAwaitingFirstContact State = "awaiting_first_contact"
	// StateActive marks a session in free-form conversation.
	StateActive State = "active"
)

// Turn is one message in a conversation transcript. The turn sequence is
// append-only and its order is replayed verbatim to the language model.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is the ordered turn sequence for one phone number. Turns[0] is
// always the system turn and is mutated in place when scheduling context is
// added.
type Session struct {
	Phone string `json:"phone_number"`
	State State  `json:"state"`
	Turns []Turn `json:"turns"`
}

// Appointment is the scheduled consultation for one phone number. It lives
// independently of the session: deleting a conversation keeps the
// appointment.
type Appointment struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

const (
	appointmentKind   = "consultation"
	statusScheduled   = "scheduled"
	appointmentWindow = 13 // days ahead considered when synthesizing
)

// appointmentTimePool holds the representative slot times used when
// synthesizing a mock appointment for a previously-unseen sender. These are
// deliberately not checked against the calendar's free sets.
var appointmentTimePool = []string{"09:00", "10:30", "13:00", "14:30", "16:00"}
