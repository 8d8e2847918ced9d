package availability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"repair-recommender/internal/models"
)

var weekdayKeys = [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// OpeningHours derives availability from a repairer's weekly schedule:
// same day while a slot of today is still ahead, next day when tomorrow has
// any slot, within week when any of the next seven days has one.
type OpeningHours struct {
	now      func() time.Time
	location *time.Location
	minLead  time.Duration
}

type OpeningHoursOption func(*OpeningHours)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) OpeningHoursOption {
	return func(o *OpeningHours) { o.now = now }
}

// WithMinLead requires at least d between now and the end of today's slot
// for same-day availability.
func WithMinLead(d time.Duration) OpeningHoursOption {
	return func(o *OpeningHours) { o.minLead = d }
}

func NewOpeningHours(location *time.Location, opts ...OpeningHoursOption) *OpeningHours {
	if location == nil {
		location = time.UTC
	}
	o := &OpeningHours{now: time.Now, location: location}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LoadLocation resolves an IANA timezone name, defaulting to UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

func (o *OpeningHours) Availability(_ context.Context, repairer models.RepairerProfile) (models.Availability, error) {
	now := o.now().In(o.location)
	minuteOfDay := now.Hour()*60 + now.Minute()
	lead := int(o.minLead / time.Minute)

	var out models.Availability
	for offset := 0; offset < 7; offset++ {
		day := weekdayKeys[(int(now.Weekday())+offset)%7]
		slots := parseSlots(repairer.OpeningHours[day])
		if len(slots) == 0 {
			continue
		}

		switch offset {
		case 0:
			for _, s := range slots {
				if s.close-lead > minuteOfDay {
					out.SameDay = true
					out.WithinWeek = true
					break
				}
			}
		case 1:
			out.NextDay = true
			out.WithinWeek = true
		default:
			out.WithinWeek = true
		}
	}
	return out, nil
}

type slot struct {
	open, close int
}

// parseSlots reads "HH:MM-HH:MM" intervals. Malformed or empty intervals are
// skipped.
func parseSlots(raw []string) []slot {
	out := make([]slot, 0, len(raw))
	for _, r := range raw {
		s, err := parseSlot(r)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

func parseSlot(raw string) (slot, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 2 {
		return slot{}, fmt.Errorf("invalid interval %q", raw)
	}
	open, err := parseClock(parts[0])
	if err != nil {
		return slot{}, err
	}
	closing, err := parseClock(parts[1])
	if err != nil {
		return slot{}, err
	}
	if closing <= open {
		return slot{}, fmt.Errorf("interval %q closes before it opens", raw)
	}
	return slot{open: open, close: closing}, nil
}

func parseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "24:00" {
		return 24 * 60, nil
	}
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
