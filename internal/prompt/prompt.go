// Package prompt renders the text blocks sent to the language model and the
// human-friendly date/time strings used in SMS copy. Everything here is a
// pure transform over strings so it can be tested without any state.
package prompt

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	slotLayout = "15:04"

	// AvailabilityHeading titles the slot context injected into the system
	// turn when a sender asks to reschedule.
	AvailabilityHeading = "AVAILABLE APPOINTMENTS IN NEXT 2 WEEKS"
)

// DayAvailability pairs a business date with the free slots offered for it.
type DayAvailability struct {
	Date  string
	Slots []string
}

// FriendlyDate renders a yyyy-mm-dd date as "Monday, January 2". Input that
// does not parse is returned unchanged.
func FriendlyDate(date string) string {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return day.Format("Monday, January 2")
}

// FriendlyTime renders an hh:mm slot as a 12-hour clock time without a
// leading zero, e.g. "9:00 AM" or "2:30 PM". Input that does not parse is
// returned unchanged.
func FriendlyTime(slot string) string {
	t, err := time.Parse(slotLayout, slot)
	if err != nil {
		return slot
	}
	return t.Format("3:04 PM")
}

// BaseSystemPrompt renders the receptionist persona seeded into every new
// session. The appointment date and time are passed in wire format.
func BaseSystemPrompt(apptDate, apptTime string, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are a friendly and professional virtual receptionist for a consultation office, texting with a patient over SMS.\n\n")
	fmt.Fprintf(&b, "Today's date is %s.\n", now.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "The patient has a consultation scheduled for %s at %s.\n\n", FriendlyDate(apptDate), FriendlyTime(apptTime))
	b.WriteString("Your tasks:\n")
	b.WriteString("- Remind the patient of their upcoming consultation and answer questions about it.\n")
	b.WriteString("- If they confirm, thank them and confirm the appointment stands.\n")
	b.WriteString("- If they want to reschedule, offer only times listed under \"" + AvailabilityHeading + "\" in this prompt. Never invent availability.\n")
	b.WriteString("- Once they pick a listed time, repeat the full date and time back and ask them to confirm.\n\n")
	b.WriteString("Keep every reply short and polite; this is a text message conversation. Do not discuss anything unrelated to scheduling.")
	return b.String()
}

// ReminderMessage is the canned first-contact SMS referencing the sender's
// appointment.
func ReminderMessage(apptDate, apptTime string) string {
	return fmt.Sprintf(
		"Hi! This is a reminder that you have a consultation scheduled for %s at %s. Reply to confirm, or let us know if you need to reschedule.",
		FriendlyDate(apptDate), FriendlyTime(apptTime),
	)
}

// CalendarContextBlock renders availability as a bulleted block appended to
// the system turn. Slot times are comma-joined in friendly form.
func CalendarContextBlock(days []DayAvailability) string {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(AvailabilityHeading)
	b.WriteString(":")
	for _, day := range days {
		friendly := make([]string, 0, len(day.Slots))
		for _, slot := range day.Slots {
			friendly = append(friendly, FriendlyTime(slot))
		}
		fmt.Fprintf(&b, "\n- %s: %s", FriendlyDate(day.Date), strings.Join(friendly, ", "))
	}
	return b.String()
}
