// Package calendar writes the event catalog as an iCalendar feed.
package calendar

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/tartampluch/go-daily-events/internal/catalog"
	"github.com/tartampluch/go-daily-events/internal/config"
	"github.com/tartampluch/go-daily-events/internal/engine"
	"github.com/tartampluch/go-daily-events/internal/state"
)

// Exporter converts catalog events into VEVENTs.
type Exporter struct {
	Clock engine.Clock // Interface for time mocking.

	// FormatSummary lets the caller choose the event title.
	// Defaults to the kind emoji followed by the name.
	FormatSummary func(ev catalog.Event) string
}

// Export encodes events as one VCALENDAR. Recurring events get a yearly
// RRULE anchored on the birth year when known; fixed-date events occur once.
func (x *Exporter) Export(events []catalog.Event) ([]byte, error) {
	clock := x.Clock
	if clock == nil {
		clock = engine.RealClock{}
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	// Raw value: SetText would add VALUE=TEXT to an X- property.
	calName := ical.NewProp(config.PropXWRCalName)
	calName.Value = config.ICalCalName
	cal.Props.Set(calName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(clock.Now().UTC())

	for _, ev := range events {
		e := x.newEvent(ev)
		e.Props.Set(dtStampProp)
		cal.Children = append(cal.Children, e.Component)
	}

	// A calendar without components does not encode; write the stub instead.
	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, apperr.WrapRuntime(err, "%s", config.ErrICalEncode)
	}
	return buf.Bytes(), nil
}

// WriteFile exports events to path atomically.
func (x *Exporter) WriteFile(path string, events []catalog.Event) error {
	data, err := x.Export(events)
	if err != nil {
		return err
	}
	if err := state.WriteFileAtomic(path, data); err != nil {
		return apperr.WrapRuntime(err, "%s '%s'", config.ErrExportWrite, path)
	}
	slog.Info(config.MsgExported,
		config.LogKeyComponent, config.CompCalendar,
		config.LogKeyPath, path,
		config.LogKeyCount, len(events),
	)
	return nil
}

func (x *Exporter) newEvent(ev catalog.Event) *ical.Event {
	e := ical.NewEvent()
	e.Props.SetText(config.PropUID, UID(ev))
	e.Props.SetText(config.PropSummary, x.summary(ev))
	e.Props.SetText(config.PropCategories, string(ev.Kind))

	dtStartProp := ical.NewProp(config.PropDTStart)
	dtStartProp.SetDate(StartDate(ev))
	e.Props.Set(dtStartProp)

	if ev.SpecificDate == nil {
		// Set the rule manually to avoid a "VALUE=TEXT" param.
		rule := ical.NewProp(config.PropRRule)
		rule.Value = config.ICalYearly
		e.Props.Set(rule)
	}
	return e
}

func (x *Exporter) summary(ev catalog.Event) string {
	if x.FormatSummary != nil {
		return x.FormatSummary(ev)
	}
	f := engine.ComputeFields(ev, catalog.Date{Year: config.DefaultLeapYear, Month: ev.Month, Day: ev.Day})
	return f.Emoji + " " + ev.Name
}

// StartDate is the first occurrence written as DTSTART. Recurring events
// without a usable year are anchored on a leap year so Feb 29 survives.
func StartDate(ev catalog.Event) time.Time {
	if ev.SpecificDate != nil {
		return ev.SpecificDate.Time()
	}
	year := config.DefaultLeapYear
	if ev.Year != nil && ev.Kind == catalog.KindBirthday {
		year = *ev.Year
	}
	t := time.Date(year, ev.Month, ev.Day, 0, 0, 0, 0, time.UTC)
	if t.Month() != ev.Month {
		t = time.Date(config.DefaultLeapYear, ev.Month, ev.Day, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// UID derives a stable identifier from kind, name and date so that
// re-exports update calendar entries in place.
func UID(ev catalog.Event) string {
	dateKey := fmt.Sprintf("--%02d-%02d", int(ev.Month), ev.Day)
	if ev.SpecificDate != nil {
		dateKey = ev.SpecificDate.String()
	}
	hash := sha256.Sum256([]byte(fmt.Sprintf(config.FormatHashInput, ev.Kind, ev.Name, dateKey)))
	return fmt.Sprintf(config.FormatUID, hash[:config.UIDHashLength], config.ICalDomain)
}
