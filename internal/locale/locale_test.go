package locale_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-daily-events/internal/catalog"
	"github.com/tartampluch/go-daily-events/internal/config"
	"github.com/tartampluch/go-daily-events/internal/engine"
	"github.com/tartampluch/go-daily-events/internal/locale"
)

// TestLocaleIntegrity ensures every translation key used by the code exists
// in every locale file.
func TestLocaleIntegrity(t *testing.T) {
	keys := []string{
		config.TKeyBirthdayAge,
		config.TKeyBirthday,
		config.TKeyHoliday,
		config.TKeyGeneric,
	}

	files, err := filepath.Glob(filepath.Join("locales", "active.*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		content, err := os.ReadFile(path)
		require.NoError(t, err)

		var messages map[string]string
		require.NoError(t, json.Unmarshal(content, &messages), "%s must be valid JSON", path)

		for _, k := range keys {
			assert.NotEmptyf(t, messages[k], "key '%s' is missing in %s", k, path)
		}
	}
}

func TestNew_SupportedLanguages(t *testing.T) {
	tr := locale.New("en")
	assert.ElementsMatch(t, []string{"en", "fr"}, tr.Supported)
	assert.Equal(t, "en", tr.Lang)
}

func TestNew_Fallback(t *testing.T) {
	tests := map[string]string{
		"":        "en",
		"fr":      "fr",
		"fr-CA":   "fr",
		"FR":      "fr",
		"de":      "en",
		"!!bad!!": "en",
	}
	for in, want := range tests {
		assert.Equal(t, want, locale.New(in).Lang, "requested %q", in)
	}
}

// TestEnglishMatchesBuiltins keeps the English locale in sync with the
// messages the engine produces on its own.
func TestEnglishMatchesBuiltins(t *testing.T) {
	tr := locale.New("en")
	today := catalog.Date{Year: 2026, Month: time.December, Day: 10}
	year := 1990

	events := []catalog.Event{
		{Kind: catalog.KindBirthday, Name: "Ada", Year: &year},
		{Kind: catalog.KindBirthday, Name: "Ada"},
		{Kind: catalog.KindHoliday, Name: "Canada Day"},
		{Kind: catalog.KindEvent, Name: "Launch"},
		{Kind: "anniversary", Name: "Wedding", Emoji: "💍"},
	}
	for _, ev := range events {
		f := engine.ComputeFields(ev, today)
		got, ok := tr.FormatDefault(ev.Kind, f)
		require.True(t, ok)
		assert.Equal(t, engine.DefaultMessage(ev.Kind, f), got)
	}
}

func TestFrenchRenderer(t *testing.T) {
	tr := locale.New("fr")
	r := &engine.Renderer{FormatDefault: tr.FormatDefault}
	today := catalog.Date{Year: 2026, Month: time.July, Day: 1}
	year := 1990
	firstYear := 2025

	tests := []struct {
		ev   catalog.Event
		want string
	}{
		{catalog.Event{Kind: catalog.KindBirthday, Name: "Ada", Year: &year}, "🎂 Joyeux 36e anniversaire, Ada !"},
		{catalog.Event{Kind: catalog.KindBirthday, Name: "Léa", Year: &firstYear}, "🎂 Joyeux 1er anniversaire, Léa !"},
		{catalog.Event{Kind: catalog.KindBirthday, Name: "Ada"}, "🎂 Joyeux anniversaire, Ada !"},
		{catalog.Event{Kind: catalog.KindHoliday, Name: "Fête du Canada"}, "🎉 Bonne fête : Fête du Canada !"},
		{catalog.Event{Kind: catalog.KindEvent, Name: "Lancement", Mention: "@here"}, "@here 📌 Lancement."},
		{catalog.Event{Kind: catalog.KindHoliday, Name: "X", Template: "{name} ({weekday})"}, "X (Wednesday)"},
	}
	for _, tt := range tests {
		got, err := r.Render(tt.ev, today)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestMsg_MissingKey(t *testing.T) {
	_, ok := locale.New("en").Msg("no_such_key", nil)
	assert.False(t, ok)

	var nilTranslator *locale.Translator
	_, ok = nilTranslator.Msg(config.TKeyGeneric, nil)
	assert.False(t, ok)
}

func TestMessageKey(t *testing.T) {
	assert.Equal(t, config.TKeyBirthdayAge, locale.MessageKey(catalog.KindBirthday, engine.Fields{HasAge: true}))
	assert.Equal(t, config.TKeyBirthday, locale.MessageKey(catalog.KindBirthday, engine.Fields{}))
	assert.Equal(t, config.TKeyHoliday, locale.MessageKey(catalog.KindHoliday, engine.Fields{}))
	assert.Equal(t, config.TKeyGeneric, locale.MessageKey("custom", engine.Fields{}))
}
