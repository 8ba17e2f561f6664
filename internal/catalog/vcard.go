package catalog

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/tartampluch/go-daily-events/internal/config"
)

// ParseVCard imports every card carrying a BDAY as a recurring birthday.
// Address books are messy, so malformed cards and unparsable dates are
// skipped rather than failing the load.
func (l *Loader) ParseVCard(r io.Reader) ([]Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.WrapRuntime(err, config.ErrEventsRead)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	decoder := vcard.NewDecoder(bytes.NewReader(data))
	var events []Event
	decoded := 0

	for index := 0; ; index++ {
		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			// Non-blank input that yields no card at all is not an address book.
			if decoded == 0 {
				return nil, apperr.Config("%s: %s", config.ErrVCardParse, config.ErrNoVCard)
			}
			break
		}
		if err != nil {
			// The decoder cannot resync after a syntax error.
			if decoded == 0 {
				return nil, apperr.WrapConfig(err, config.ErrVCardParse)
			}
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompCatalog,
				config.LogKeyIndex, index,
				config.LogKeyError, err)
			break
		}
		decoded++

		bday := card.Get(config.VCardBDAY)
		if bday == nil || strings.TrimSpace(bday.Value) == "" {
			continue
		}

		birthDate, yearKnown, err := parseBirthday(strings.TrimSpace(bday.Value))
		if err != nil {
			slog.Debug(config.MsgSkippedDate,
				config.LogKeyComponent, config.CompCatalog,
				config.LogKeyIndex, index,
				config.LogKeyValue, bday.Value)
			continue
		}

		name := cardName(card)
		if name == "" {
			slog.Debug(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompCatalog,
				config.LogKeyIndex, index)
			continue
		}

		ev := Event{
			Kind:      KindBirthday,
			Name:      name,
			Month:     birthDate.Month(),
			Day:       birthDate.Day(),
			Recurring: true,
			Index:     index,
		}
		if yearKnown {
			year := birthDate.Year()
			ev.Year = &year
			l.checkYear(ev)
		}
		events = append(events, ev)
	}
	return events, nil
}

// cardName prefers the formatted name, then the structured one.
func cardName(card vcard.Card) string {
	if fn := card.Get(config.VCardFN); fn != nil && strings.TrimSpace(fn.Value) != "" {
		return strings.TrimSpace(fn.Value)
	}
	if n := card.Get(config.VCardN); n != nil {
		parts := strings.Split(n.Value, ";")
		var kept []string
		// N is family;given;additional;prefix;suffix. Display given first.
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			kept = append(kept, strings.TrimSpace(parts[1]))
		}
		if strings.TrimSpace(parts[0]) != "" {
			kept = append(kept, strings.TrimSpace(parts[0]))
		}
		return strings.Join(kept, " ")
	}
	return ""
}

// parseBirthday handles the vCard date forms seen in the wild.
func parseBirthday(value string) (time.Time, bool, error) {
	formatsWithYear := []string{
		config.DateFormatISO,
		config.DateFormatBasic,
		config.DateFormatRFC3339,
	}
	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return t, true, nil
		}
	}

	// Truncated dates (year unknown) map onto the leap-year baseline.
	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if t, err := time.Parse(f, value); err == nil {
			safeDate := time.Date(config.DefaultLeapYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return safeDate, false, nil
		}
	}

	return time.Time{}, false, errors.New(config.ErrDateParse)
}
