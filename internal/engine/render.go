package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/tartampluch/go-daily-events/internal/catalog"
	"github.com/tartampluch/go-daily-events/internal/config"
)

// defaultEmoji maps the known kinds to their icon. Unknown kinds use config.EmojiDefault.
var defaultEmoji = map[catalog.Kind]string{
	catalog.KindBirthday: config.EmojiBirthday,
	catalog.KindHoliday:  config.EmojiHoliday,
	catalog.KindEvent:    config.EmojiDefault,
}

// Fields are the values a message can reference.
type Fields struct {
	Name       string
	Emoji      string
	Age        int
	HasAge     bool
	AgeOrdinal string
	Weekday    string
	Date       string
	Year       string
}

// lookup resolves a template placeholder. Only the fixed set is known.
func (f Fields) lookup(key string) (string, bool) {
	switch key {
	case config.PlaceholderName:
		return f.Name, true
	case config.PlaceholderAge:
		if !f.HasAge {
			return "", true
		}
		return strconv.Itoa(f.Age), true
	case config.PlaceholderAgeOrdinal:
		return f.AgeOrdinal, true
	case config.PlaceholderDate:
		return f.Date, true
	case config.PlaceholderWeekday:
		return f.Weekday, true
	case config.PlaceholderYear:
		return f.Year, true
	case config.PlaceholderEmoji:
		return f.Emoji, true
	default:
		return "", false
	}
}

// Renderer turns a matched event into its display line.
type Renderer struct {
	// FormatDefault lets a localizer replace the built-in English default
	// messages. It returns false when it has nothing for the kind.
	FormatDefault func(kind catalog.Kind, f Fields) (string, bool)
}

// Render produces the message for ev on today.
func (r *Renderer) Render(ev catalog.Event, today catalog.Date) (string, error) {
	f := ComputeFields(ev, today)

	var msg string
	if ev.HasTemplate() {
		rendered, err := expand(ev.Template, f, ev.Index)
		if err != nil {
			return "", err
		}
		msg = strings.TrimSpace(rendered)
		if msg == "" {
			return "", apperr.Config("events[%d].%s %s", ev.Index, config.FieldMessage, config.ErrEmptyRender)
		}
	} else {
		msg = r.defaultMessage(ev.Kind, f)
	}

	if mention := strings.TrimSpace(ev.Mention); mention != "" {
		msg = mention + " " + msg
	}
	return msg, nil
}

// ComputeFields derives the placeholder values for ev on today.
func ComputeFields(ev catalog.Event, today catalog.Date) Fields {
	f := Fields{
		Name:    ev.Name,
		Emoji:   ev.Emoji,
		Weekday: today.Weekday().String(),
		Date:    today.String(),
	}
	if f.Emoji == "" {
		if e, ok := defaultEmoji[ev.Kind]; ok {
			f.Emoji = e
		} else {
			f.Emoji = config.EmojiDefault
		}
	}
	if ev.Year != nil {
		f.Year = strconv.Itoa(*ev.Year)
		if ev.Kind == catalog.KindBirthday {
			if age := today.Year - *ev.Year; age >= 0 {
				f.Age = age
				f.HasAge = true
				f.AgeOrdinal = Ordinal(age)
			}
		}
	}
	return f
}

func (r *Renderer) defaultMessage(kind catalog.Kind, f Fields) string {
	if r != nil && r.FormatDefault != nil {
		if msg, ok := r.FormatDefault(kind, f); ok && strings.TrimSpace(msg) != "" {
			return strings.TrimSpace(msg)
		}
	}
	return DefaultMessage(kind, f)
}

// DefaultMessage is the built-in English message for kinds without a template.
func DefaultMessage(kind catalog.Kind, f Fields) string {
	switch {
	case kind == catalog.KindBirthday && f.HasAge:
		return fmt.Sprintf("%s Happy %s birthday, %s!", f.Emoji, f.AgeOrdinal, f.Name)
	case kind == catalog.KindBirthday:
		return fmt.Sprintf("%s Happy birthday, %s!", f.Emoji, f.Name)
	default:
		return fmt.Sprintf("%s %s.", f.Emoji, f.Name)
	}
}

// Ordinal appends the English ordinal suffix: 1st, 2nd, 3rd, 4th, 11th, 21st...
func Ordinal(n int) string {
	suffix := "th"
	switch mod100 := n % 100; {
	case mod100 >= 11 && mod100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return strconv.Itoa(n) + suffix
}

// expand substitutes {placeholder} references in a single pass. "{{" and
// "}}" produce literal braces.
func expand(tmpl string, f Fields, index int) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", apperr.Config("events[%d].%s %s", index, config.FieldMessage, config.ErrUnclosedBrace)
			}
			key := tmpl[i+1 : i+1+end]
			value, ok := f.lookup(key)
			if !ok {
				err := apperr.Config("events[%d].%s %s '%s'", index, config.FieldMessage, config.ErrUnknownField, key)
				err.WithMetadata(map[string]any{"index": index, "placeholder": key})
				return "", err
			}
			b.WriteString(value)
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", apperr.Config("events[%d].%s %s", index, config.FieldMessage, config.ErrUnclosedBrace)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
