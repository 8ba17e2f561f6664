package catalog

import (
	"fmt"
	"time"

	"github.com/tartampluch/go-daily-events/internal/config"
)

// Kind tags an event. Birthday, holiday and event have dedicated defaults;
// any other tag is kept verbatim and handled by the fallback branch.
type Kind string

const (
	KindBirthday Kind = config.KindBirthday
	KindHoliday  Kind = config.KindHoliday
	KindEvent    Kind = config.KindEvent
)

// Date is a calendar day without time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the date of t in t's own location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(config.DateFormatISO, s)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Weekday returns the day of the week of the date.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Event is a normalized catalog entry.
type Event struct {
	Kind  Kind
	Name  string
	Month time.Month
	Day   int

	// SpecificDate is set only for a non-recurring fixed-date event.
	SpecificDate *Date
	Recurring    bool

	// Year is the birth or reference year, if known.
	Year *int

	Template string // empty when absent
	Mention  string
	Emoji    string // empty when absent

	// Index is the position of the record in its source, for diagnostics.
	Index int
}

// HasTemplate reports whether the event carries its own message template.
func (e Event) HasTemplate() bool {
	return e.Template != ""
}

// validMonthDay reports whether month/day exist in the leap-year baseline.
func validMonthDay(month time.Month, day int) bool {
	t := time.Date(config.DefaultLeapYear, month, day, 0, 0, 0, 0, time.UTC)
	return t.Month() == month && t.Day() == day
}
