package catalog

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/tartampluch/go-daily-events/internal/config"
)

// ParseICal imports the VEVENTs of an iCalendar stream. A yearly RRULE makes
// the event recurring; otherwise DTSTART is its one fixed date. The first
// CATEGORIES value, when present, becomes the kind.
func (l *Loader) ParseICal(r io.Reader) ([]Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.WrapRuntime(err, config.ErrEventsRead)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	decoder := ical.NewDecoder(bytes.NewReader(data))
	var events []Event
	index := 0
	decoded := 0

	for {
		cal, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			if decoded == 0 {
				return nil, apperr.Config("%s: %s", config.ErrICalParse, config.ErrNoVCalendar)
			}
			break
		}
		if err != nil {
			return nil, apperr.WrapConfig(err, config.ErrICalParse)
		}
		decoded++

		for _, child := range cal.Children {
			if child.Name != ical.CompEvent {
				continue
			}
			ev, ok := l.fromComponent(child, index)
			index++
			if !ok {
				continue
			}
			events = append(events, ev)
		}
	}
	return events, nil
}

func (l *Loader) fromComponent(comp *ical.Component, index int) (Event, bool) {
	summary, err := comp.Props.Text(config.PropSummary)
	summary = strings.TrimSpace(summary)
	start := comp.Props.Get(config.PropDTStart)
	if err != nil || summary == "" || start == nil {
		slog.Debug(config.MsgSkippedVEvent,
			config.LogKeyComponent, config.CompCatalog,
			config.LogKeyIndex, index)
		return Event{}, false
	}

	date, err := parseICalDate(start.Value)
	if err != nil {
		slog.Debug(config.MsgSkippedVEvent,
			config.LogKeyComponent, config.CompCatalog,
			config.LogKeyIndex, index,
			config.LogKeyValue, start.Value)
		return Event{}, false
	}

	ev := Event{
		Kind:  KindEvent,
		Name:  summary,
		Month: date.Month,
		Day:   date.Day,
		Index: index,
	}
	if cat := comp.Props.Get(config.PropCategories); cat != nil {
		first, _, _ := strings.Cut(cat.Value, ",")
		if first = strings.ToLower(strings.TrimSpace(first)); first != "" {
			ev.Kind = Kind(first)
		}
	}

	if rule := comp.Props.Get(config.PropRRule); rule != nil && strings.Contains(strings.ToUpper(rule.Value), config.ICalYearly) {
		ev.Recurring = true
		if ev.Kind == KindBirthday {
			year := date.Year
			ev.Year = &year
			l.checkYear(ev)
		}
	} else {
		ev.SpecificDate = &date
	}
	return ev, true
}

// parseICalDate accepts DATE and DATE-TIME values; only the calendar day is kept.
func parseICalDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	layouts := []string{config.DateFormatBasic, config.DateFormatICalUTC, config.DateFormatICalTS}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return NewDate(t), nil
		}
	}
	return Date{}, errors.New(config.ErrDateParse)
}
