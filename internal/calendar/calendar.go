package calendar

import (
	"math/rand"
	"sort"
	"sync"
	"time"
)

const (
	// DateLayout is the wire format for business dates.
	DateLayout = "2006-01-02"
	// SlotLayout is the wire format for half-hour slot start times.
	SlotLayout = "15:04"

	horizonDays   = 30
	occupiedRatio = 0.8
)

// Calendar owns the mock table of bookable half-hour slots. All access goes
// through its methods; the free-slot sets are never handed out to callers.
type Calendar struct {
	mu   sync.Mutex
	free map[string]map[string]struct{}
	rng  *rand.Rand
}

// New creates an empty calendar. Call Generate before serving queries.
func New() *Calendar {
	return newWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

func newWithRand(rng *rand.Rand) *Calendar {
	return &Calendar{
		free: make(map[string]map[string]struct{}),
		rng:  rng,
	}
}

// CanonicalSlots returns the 16 half-hour slot start times between 09:00 and
// 16:30 in chronological order.
func CanonicalSlots() []string {
	slots := make([]string, 0, 16)
	start := time.Date(2000, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 16; i++ {
		slots = append(slots, start.Add(time.Duration(i)*30*time.Minute).Format(SlotLayout))
	}
	return slots
}

// Generate populates the next 30 calendar days starting at now, skipping
// weekends, and randomly marks 80% of each day's slots as already booked.
// Calling it again redefines the whole table and invalidates prior bookings;
// it is intended to run once at process start.
func (c *Calendar) Generate(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.free = make(map[string]map[string]struct{})
	canonical := CanonicalSlots()
	occupied := int(float64(len(canonical)) * occupiedRatio)

	for i := 0; i < horizonDays; i++ {
		day := now.AddDate(0, 0, i)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}

		remaining := make(map[string]struct{}, len(canonical))
		for _, slot := range canonical {
			remaining[slot] = struct{}{}
		}
		for _, slot := range c.sample(remaining, occupied) {
			delete(remaining, slot)
		}
		c.free[day.Format(DateLayout)] = remaining
	}
}

// FreeSlots returns up to limit currently-free slots for date, sampled at
// random without replacement. Order is not meaningful. Unknown or weekend
// dates yield an empty result.
func (c *Calendar) FreeSlots(date string, limit int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	slots, ok := c.free[date]
	if !ok || limit <= 0 {
		return nil
	}
	return c.sample(slots, limit)
}

// Book removes slot from date's free set iff it is still free. It is the only
// way calendar state is consumed; the check and removal happen atomically.
func (c *Calendar) Book(date, slot string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	slots, ok := c.free[date]
	if !ok {
		return false
	}
	if _, free := slots[slot]; !free {
		return false
	}
	delete(slots, slot)
	return true
}

// Dates returns the generated business dates in chronological order.
func (c *Calendar) Dates() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	dates := make([]string, 0, len(c.free))
	for date := range c.free {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// Snapshot returns a copy of the full free table with slots sorted, for the
// admin surface.
func (c *Calendar) Snapshot() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string][]string, len(c.free))
	for date, slots := range c.free {
		list := make([]string, 0, len(slots))
		for slot := range slots {
			list = append(list, slot)
		}
		sort.Strings(list)
		out[date] = list
	}
	return out
}

// sample picks up to n distinct keys from set at random. Caller holds c.mu.
func (c *Calendar) sample(set map[string]struct{}, n int) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	c.rng.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})
	if n < len(keys) {
		keys = keys[:n]
	}
	return keys
}
