package calendar

import (
	"math/rand"
	"sync"
	"testing"
	"time"
)

func newTestCalendar(t *testing.T) *Calendar {
	t.Helper()
	c := newWithRand(rand.New(rand.NewSource(42)))
	c.Generate(time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)) // a Monday
	return c
}

func TestGenerateSkipsWeekends(t *testing.T) {
	c := newTestCalendar(t)

	for _, date := range c.Dates() {
		day, err := time.Parse(DateLayout, date)
		if err != nil {
			t.Fatalf("invalid generated date %q: %v", date, err)
		}
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			t.Errorf("weekend date %s present in calendar", date)
		}
	}

	// 30 calendar days from a Monday contain 22 weekdays.
	if got := len(c.Dates()); got != 22 {
		t.Errorf("expected 22 business dates, got %d", got)
	}
}

func TestGenerateFreeSlotBounds(t *testing.T) {
	c := newTestCalendar(t)

	canonical := make(map[string]struct{})
	for _, slot := range CanonicalSlots() {
		canonical[slot] = struct{}{}
	}
	if len(canonical) != 16 {
		t.Fatalf("expected 16 canonical slots, got %d", len(canonical))
	}

	for date, slots := range c.Snapshot() {
		if len(slots) > 4 {
			t.Errorf("date %s has %d free slots, want at most 4", date, len(slots))
		}
		for _, slot := range slots {
			if _, ok := canonical[slot]; !ok {
				t.Errorf("date %s has non-canonical slot %s", date, slot)
			}
		}
	}
}

func TestFreeSlotsUnknownDate(t *testing.T) {
	c := newTestCalendar(t)

	if got := c.FreeSlots("2026-09-05", 3); len(got) != 0 { // Saturday
		t.Errorf("expected no slots for weekend date, got %v", got)
	}
	if got := c.FreeSlots("1999-01-04", 3); len(got) != 0 {
		t.Errorf("expected no slots for out-of-range date, got %v", got)
	}
}

func TestFreeSlotsLimit(t *testing.T) {
	c := newTestCalendar(t)

	for _, date := range c.Dates() {
		got := c.FreeSlots(date, 2)
		if len(got) > 2 {
			t.Fatalf("FreeSlots(%s, 2) returned %d slots", date, len(got))
		}
	}
}

func TestBookRemovesSlot(t *testing.T) {
	c := newTestCalendar(t)

	date, slot := firstFreeSlot(t, c)
	if !c.Book(date, slot) {
		t.Fatalf("first booking of %s %s failed", date, slot)
	}
	if c.Book(date, slot) {
		t.Fatalf("second booking of %s %s succeeded", date, slot)
	}
	for _, remaining := range c.FreeSlots(date, 16) {
		if remaining == slot {
			t.Fatalf("slot %s still free after booking", slot)
		}
	}
}

func TestBookUnknown(t *testing.T) {
	c := newTestCalendar(t)

	if c.Book("2026-09-05", "09:00") {
		t.Error("booked a weekend date")
	}
	date := c.Dates()[0]
	if c.Book(date, "23:00") {
		t.Error("booked a non-canonical slot")
	}
}

func TestBookConcurrentSingleWinner(t *testing.T) {
	c := newTestCalendar(t)
	date, slot := firstFreeSlot(t, c)

	const callers = 16
	var wg sync.WaitGroup
	results := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- c.Book(date, slot)
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful booking, got %d", wins)
	}
}

func firstFreeSlot(t *testing.T, c *Calendar) (string, string) {
	t.Helper()
	for _, date := range c.Dates() {
		if slots := c.FreeSlots(date, 1); len(slots) > 0 {
			return date, slots[0]
		}
	}
	t.Fatal("no free slot found in generated calendar")
	return "", ""
}
