// Package locale translates the default event messages with go-i18n.
package locale

import (
	"embed"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-daily-events/internal/catalog"
	"github.com/tartampluch/go-daily-events/internal/config"
	"github.com/tartampluch/go-daily-events/internal/engine"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator renders the default messages in one language.
type Translator struct {
	// Lang is the language actually in use after fallback.
	Lang string
	// Supported lists the language codes found in the embedded locales.
	Supported []string

	bundle    *i18n.Bundle
	localizer *i18n.Localizer
}

// New loads the embedded locales and selects lang. Unsupported or malformed
// codes fall back to English.
func New(lang string) *Translator {
	t := &Translator{bundle: i18n.NewBundle(language.English)}
	t.bundle.RegisterUnmarshalFunc(config.FormatJSON, json.Unmarshal)
	t.loadLocales()

	t.Lang = t.resolve(lang)
	t.localizer = i18n.NewLocalizer(t.bundle, t.Lang)
	return t
}

func (t *Translator) loadLocales() {
	entries, err := localeFS.ReadDir(config.LocaleDir)
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, config.LocalePrefix) || !strings.HasSuffix(name, config.LocaleSuffix) {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, config.LocalePrefix), config.LocaleSuffix)
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := t.bundle.LoadMessageFileFS(localeFS, config.LocaleDir+"/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		t.Supported = append(t.Supported, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
			config.LogKeyFile, name,
		)
	}
}

// resolve maps a requested code such as "fr-CA" onto a loaded base language.
func (t *Translator) resolve(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return config.DefaultLanguage
	}
	tag, err := language.Parse(lang)
	if err == nil {
		base, _ := tag.Base()
		if slices.Contains(t.Supported, base.String()) {
			return base.String()
		}
	}
	slog.Warn(config.MsgLangFallback,
		config.LogKeyComponent, config.CompI18n,
		config.LogKeyLang, lang,
	)
	return config.DefaultLanguage
}

// Msg translates key with data. It returns false when the key is missing.
func (t *Translator) Msg(key string, data any) (string, bool) {
	if t == nil || t.localizer == nil {
		return "", false
	}
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{MessageID: key, TemplateData: data})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		return "", false
	}
	return msg, true
}

// FormatDefault plugs into engine.Renderer.
func (t *Translator) FormatDefault(kind catalog.Kind, f engine.Fields) (string, bool) {
	return t.Msg(MessageKey(kind, f), f)
}

// MessageKey picks the translation key of the default message.
func MessageKey(kind catalog.Kind, f engine.Fields) string {
	switch {
	case kind == catalog.KindBirthday && f.HasAge:
		return config.TKeyBirthdayAge
	case kind == catalog.KindBirthday:
		return config.TKeyBirthday
	case kind == catalog.KindHoliday:
		return config.TKeyHoliday
	default:
		return config.TKeyGeneric
	}
}
