package config

import (
	"errors"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/zalando/go-keyring"
)

// Settings is the resolved configuration of one process.
// It is threaded explicitly through the pipeline.
type Settings struct {
	Webhook     string
	KeyringUser string
	EventsFile  string
	StateFile   string
	ExportICS   string

	TZ   string
	Date string
	Lang string

	DryRun        bool
	Verbose       bool
	SplitMessages bool
	Force         bool
	VerifyWebhook bool

	Retries        int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxContentLen  int

	// Schedule is a standard 5-field cron spec. Empty runs once.
	Schedule string
	// FeedAddr serves the catalog as an iCalendar feed while scheduled.
	FeedAddr string
}

// LoadEnvFile loads an optional .env file from the working directory and
// reports whether one was found. Variables already set in the environment
// are kept.
func LoadEnvFile() bool {
	return godotenv.Load(EnvFileName) == nil
}

// DefaultSettings returns the built-in defaults overlaid with the
// environment read through getenv. Flags parsed on top of the result win.
func DefaultSettings(getenv func(string) string) Settings {
	if getenv == nil {
		getenv = os.Getenv
	}
	envOr := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	return Settings{
		Webhook:        envOr(EnvWebhook, ""),
		EventsFile:     envOr(EnvEventsFile, ""),
		StateFile:      envOr(EnvStateFile, ""),
		TZ:             envOr(EnvTZ, DefaultTZ),
		Lang:           envOr(EnvLang, DefaultLanguage),
		Retries:        DefaultRetries,
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
		MaxContentLen:  DefaultMaxContentLen,
	}
}

// Normalize trims values and expands "~" in paths.
func (s *Settings) Normalize() {
	s.Webhook = strings.TrimSpace(s.Webhook)
	s.KeyringUser = strings.TrimSpace(s.KeyringUser)
	s.TZ = strings.TrimSpace(s.TZ)
	s.Date = strings.TrimSpace(s.Date)
	s.Lang = strings.TrimSpace(s.Lang)
	s.Schedule = strings.TrimSpace(s.Schedule)
	s.FeedAddr = strings.TrimSpace(s.FeedAddr)
	s.EventsFile = ExpandHome(strings.TrimSpace(s.EventsFile))
	s.StateFile = ExpandHome(strings.TrimSpace(s.StateFile))
	s.ExportICS = ExpandHome(strings.TrimSpace(s.ExportICS))
}

// ResolveWebhook falls back to the OS keyring when no webhook was given and
// a keyring account is configured.
func (s *Settings) ResolveWebhook() error {
	if s.Webhook != "" || s.KeyringUser == "" {
		return nil
	}
	secret, err := keyring.Get(KeyringService, s.KeyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.WrapRuntime(err, "%s for '%s'", ErrKeyringLookup, s.KeyringUser)
	}
	s.Webhook = strings.TrimSpace(secret)
	slog.Debug(MsgKeyringUsed,
		LogKeyComponent, CompConfig,
		LogKeyName, s.KeyringUser,
	)
	return nil
}

// Validate reports the first invalid setting as a usage error.
func (s *Settings) Validate() error {
	if s.EventsFile == "" {
		return apperr.Usage("--%s: %s", FlagEventsFile, ErrEventsRequired)
	}
	if !s.DryRun {
		if err := ValidateWebhook(s.Webhook); err != nil {
			return err
		}
	}
	if s.Retries < 0 {
		return apperr.Usage("--%s: %s", FlagRetries, ErrRetries)
	}
	if s.ConnectTimeout <= 0 || s.ReadTimeout <= 0 {
		return apperr.Usage("--%s/--%s: %s", FlagConnectTimeout, FlagReadTimeout, ErrTimeouts)
	}
	if s.MaxContentLen <= 0 {
		return apperr.Usage("--%s: %s", FlagMaxContentLen, ErrMaxLen)
	}
	if _, err := time.LoadLocation(s.TZ); err != nil || s.TZ == "" {
		return apperr.Usage("--%s: %s '%s'", FlagTZ, ErrInvalidTZ, s.TZ)
	}
	if s.Date != "" {
		if _, err := time.Parse(DateFormatISO, s.Date); err != nil {
			return apperr.Usage("--%s: %s '%s'", FlagDate, ErrInvalidDate, s.Date)
		}
	}
	if s.Schedule != "" {
		if s.Date != "" {
			return apperr.Usage("--%s: %s", FlagSchedule, ErrScheduleDate)
		}
		if _, err := cron.ParseStandard(s.Schedule); err != nil {
			return apperr.WrapUsage(err, "--%s: %s '%s'", FlagSchedule, ErrScheduleSpec, s.Schedule)
		}
	}
	if s.FeedAddr != "" {
		if s.Schedule == "" {
			return apperr.Usage("--%s: %s", FlagServeICS, ErrFeedSchedule)
		}
		if _, _, err := net.SplitHostPort(s.FeedAddr); err != nil {
			return apperr.WrapUsage(err, "--%s: %s '%s'", FlagServeICS, ErrFeedAddr, s.FeedAddr)
		}
	}
	return nil
}

// ValidateWebhook checks the URL is absolute http(s) with a host.
func ValidateWebhook(raw string) error {
	if raw == "" {
		return apperr.Usage("--%s: %s", FlagWebhook, ErrWebhookEmpty)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return apperr.WrapUsage(err, "--%s: %s", FlagWebhook, ErrInvalidURL)
	}
	if u.Scheme != SchemeHTTP && u.Scheme != SchemeHTTPS {
		return apperr.Usage("--%s: %s: '%s'", FlagWebhook, ErrProtocol, u.Scheme)
	}
	if u.Host == "" {
		return apperr.Usage("--%s: %s", FlagWebhook, ErrWebhookHost)
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
