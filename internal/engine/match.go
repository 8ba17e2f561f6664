package engine

import "github.com/tartampluch/go-daily-events/internal/catalog"

// Matches reports whether ev occurs on today.
func Matches(ev catalog.Event, today catalog.Date) bool {
	if ev.SpecificDate != nil {
		return *ev.SpecificDate == today
	}
	return ev.Month == today.Month && ev.Day == today.Day
}

// Match returns the events occurring on today, in catalog order.
func Match(events []catalog.Event, today catalog.Date) []catalog.Event {
	var matched []catalog.Event
	for _, ev := range events {
		if Matches(ev, today) {
			matched = append(matched, ev)
		}
	}
	return matched
}
