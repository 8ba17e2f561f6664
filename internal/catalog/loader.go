package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/tartampluch/go-daily-events/internal/config"
)

// Loader turns catalog documents into normalized events.
type Loader struct {
	// Now supplies the current year for birth-year plausibility warnings.
	Now func() time.Time
}

// NewLoader creates a Loader backed by the system clock.
func NewLoader() *Loader {
	return &Loader{Now: time.Now}
}

// LoadFile reads the catalog at path. The extension selects the format:
// .vcf/.vcard for vCard, .ics for iCalendar, anything else is JSON.
func (l *Loader) LoadFile(path string) ([]Event, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.Config("%s: %s", config.ErrEventsNotFound, path)
		}
		return nil, apperr.WrapRuntime(err, "%s '%s'", config.ErrEventsRead, path)
	}
	if !info.Mode().IsRegular() {
		return nil, apperr.Config("%s: %s", config.ErrEventsNotFile, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.WrapRuntime(err, "%s '%s'", config.ErrEventsRead, path)
	}

	var events []Event
	switch strings.ToLower(filepath.Ext(path)) {
	case config.ExtVCF, config.ExtVCard:
		events, err = l.ParseVCard(bytes.NewReader(data))
	case config.ExtICS:
		events, err = l.ParseICal(bytes.NewReader(data))
	default:
		events, err = l.Parse(data)
	}
	if err != nil {
		return nil, err
	}

	slog.Debug(config.MsgCatalogLoaded,
		config.LogKeyComponent, config.CompCatalog,
		config.LogKeyFile, path,
		config.LogKeyCount, len(events))
	return events, nil
}

// Parse decodes a JSON catalog document.
func (l *Loader) Parse(data []byte) ([]Event, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, apperr.WrapConfig(err, "%s", config.ErrEventsJSON)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, apperr.Config("%s: trailing data after document", config.ErrEventsJSON)
	}
	return l.ParseDocument(raw)
}

// ParseDocument normalizes an already decoded document: either a list of
// records or an object holding that list under "events".
func (l *Loader) ParseDocument(raw any) ([]Event, error) {
	if obj, ok := raw.(map[string]any); ok {
		inner, found := obj[config.CatalogEventsKey]
		if !found {
			return nil, apperr.Config(config.ErrEventsNoKey)
		}
		raw = inner
	}

	records, ok := raw.([]any)
	if !ok {
		return nil, apperr.Config("%s, got %s", config.ErrEventsNotList, typeName(raw))
	}

	events := make([]Event, 0, len(records))
	for i, item := range records {
		obj, ok := item.(map[string]any)
		if !ok {
			// A stray scalar or list is clearly not an event; only malformed
			// objects abort the load.
			slog.Warn(config.MsgSkippedEntry,
				config.LogKeyComponent, config.CompCatalog,
				config.LogKeyIndex, i,
				config.LogKeyKind, typeName(item))
			continue
		}
		ev, err := l.normalize(obj, i)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// normalize validates one record and resolves its date rule.
func (l *Loader) normalize(obj map[string]any, index int) (Event, error) {
	ev := Event{Kind: KindEvent, Index: index}

	if v, ok := present(obj, config.FieldType); ok {
		kind, err := asString(v, index, config.FieldType, true)
		if err != nil {
			return Event{}, err
		}
		if kind = strings.ToLower(kind); kind != "" {
			ev.Kind = Kind(kind)
		}
	}

	v, ok := present(obj, config.FieldName)
	if !ok {
		return Event{}, fieldError(index, "", config.ErrMissingName)
	}
	name, err := asString(v, index, config.FieldName, false)
	if err != nil {
		return Event{}, err
	}
	ev.Name = name

	if v, ok := present(obj, config.FieldMention); ok {
		if ev.Mention, err = asString(v, index, config.FieldMention, true); err != nil {
			return Event{}, err
		}
	}
	if v, ok := present(obj, config.FieldMessage); ok {
		if ev.Template, err = asString(v, index, config.FieldMessage, false); err != nil {
			return Event{}, err
		}
	}
	if v, ok := present(obj, config.FieldEmoji); ok {
		if ev.Emoji, err = asString(v, index, config.FieldEmoji, false); err != nil {
			return Event{}, err
		}
	}
	if v, ok := present(obj, config.FieldYear); ok {
		year, err := asInt(v, index, config.FieldYear)
		if err != nil {
			return Event{}, err
		}
		ev.Year = &year
	}

	if err := resolveDate(&ev, obj, index); err != nil {
		return Event{}, err
	}

	if ev.Kind == KindBirthday && ev.Year != nil {
		l.checkYear(ev)
	}
	return ev, nil
}

// resolveDate fills month/day and, for fixed non-recurring events, the
// specific date.
func resolveDate(ev *Event, obj map[string]any, index int) error {
	var month, day int

	if v, ok := present(obj, config.FieldDate); ok {
		s, err := asString(v, index, config.FieldDate, false)
		if err != nil {
			return err
		}
		date, perr := ParseDate(s)
		if perr != nil {
			return fieldError(index, config.FieldDate, "%s '%s': %v", config.ErrInvalidDate, s, perr)
		}
		recurring, err := optionalBool(obj, index, false)
		if err != nil {
			return err
		}
		month, day = int(date.Month), date.Day
		if !recurring {
			ev.SpecificDate = &date
		}
	} else {
		mv, hasMonth := present(obj, config.FieldMonth)
		dv, hasDay := present(obj, config.FieldDay)
		if !hasMonth || !hasDay {
			return fieldError(index, "", config.ErrMissingDateForm)
		}
		var err error
		if month, err = asInt(mv, index, config.FieldMonth); err != nil {
			return err
		}
		if day, err = asInt(dv, index, config.FieldDay); err != nil {
			return err
		}
		// The flag is still type-checked even though a month/day rule has no
		// year to anchor a one-off occurrence.
		if _, err := optionalBool(obj, index, true); err != nil {
			return err
		}
	}

	if month < 1 || month > 12 {
		return fieldError(index, config.FieldMonth, "month out of range (1-12): %d", month)
	}
	if day < 1 || day > 31 {
		return fieldError(index, config.FieldDay, "day out of range (1-31): %d", day)
	}
	if !validMonthDay(time.Month(month), day) {
		return fieldError(index, "", "invalid month/day combination: %02d-%02d", month, day)
	}

	ev.Month = time.Month(month)
	ev.Day = day
	ev.Recurring = ev.SpecificDate == nil
	return nil
}

func optionalBool(obj map[string]any, index int, fallback bool) (bool, error) {
	v, ok := present(obj, config.FieldRecurring)
	if !ok {
		return fallback, nil
	}
	return asBool(v, index, config.FieldRecurring)
}

func (l *Loader) checkYear(ev Event) {
	now := time.Now
	if l != nil && l.Now != nil {
		now = l.Now
	}
	if *ev.Year < config.MinPlausibleYear || *ev.Year > now().Year() {
		slog.Warn(config.MsgOddYear,
			config.LogKeyComponent, config.CompCatalog,
			config.LogKeyIndex, ev.Index,
			config.LogKeyYear, *ev.Year)
	}
}
