package engine

import (
	"strings"
	"time"

	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/tartampluch/go-daily-events/internal/catalog"
	"github.com/tartampluch/go-daily-events/internal/config"
)

// Clock abstracts time.Now() to allow deterministic testing.
// It is used to determine "today" in the configured zone.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// LoadZone resolves an IANA zone name. Failures are usage errors.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Usage("%s: empty name", config.ErrInvalidTZ)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apperr.WrapUsage(err, "%s '%s'", config.ErrInvalidTZ, name)
	}
	return loc, nil
}

// ParseOverride parses the explicit date used instead of the clock.
func ParseOverride(value string) (catalog.Date, error) {
	d, err := catalog.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return catalog.Date{}, apperr.WrapUsage(err, "--%s: %s '%s'", config.FlagDate, config.ErrInvalidDate, value)
	}
	return d, nil
}

// Today returns the local calendar date of clock's current instant in loc.
// A non-zero override wins over the clock.
func Today(clock Clock, loc *time.Location, override catalog.Date) catalog.Date {
	if !override.IsZero() {
		return override
	}
	if clock == nil {
		clock = RealClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return catalog.NewDate(clock.Now().In(loc))
}
