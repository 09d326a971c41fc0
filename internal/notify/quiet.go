package notify

import (
	"fmt"
	"time"
)

// QuietHours is a daily window during which motion alerts are suppressed.
// The window may wrap past midnight.
type QuietHours struct {
	StartHour, StartMin int
	EndHour, EndMin     int
}

// ParseQuietHours parses "HH:MM" start and end times
func ParseQuietHours(start, end string) (QuietHours, error) {
	st, err := time.Parse("15:04", start)
	if err != nil {
		return QuietHours{}, fmt.Errorf("invalid quiet hours start %q: %w", start, err)
	}
	en, err := time.Parse("15:04", end)
	if err != nil {
		return QuietHours{}, fmt.Errorf("invalid quiet hours end %q: %w", end, err)
	}

	return QuietHours{
		StartHour: st.Hour(),
		StartMin:  st.Minute(),
		EndHour:   en.Hour(),
		EndMin:    en.Minute(),
	}, nil
}

// Contains reports whether t falls inside the quiet window. Both
// boundaries are inclusive.
func (q QuietHours) Contains(t time.Time) bool {
	now := t.Hour()*60 + t.Minute()
	start := q.StartHour*60 + q.StartMin
	end := q.EndHour*60 + q.EndMin

	if start <= end {
		return now >= start && now <= end
	}
	// window wraps past midnight
	return now >= start || now <= end
}
