package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "go-daily-events/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName        = "Go Daily Events"
	AppBinary      = "go-daily-events"
	KeyringService = "com.github.tartampluch.go-daily-events"
	EnvFileName    = ".env"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeUsage   = 2
	ExitCodeConfig  = 3
	ExitCodeRuntime = 4
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// The state record and exported calendars use it.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------, used when creating state directories.
	DirPermUserRWX fs.FileMode = 0700

	// TempSuffix is appended to a target path to build its sibling temporary file.
	TempSuffix = ".tmp"
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion        = "version"
	FlagWebhook        = "webhook"
	FlagEventsFile     = "events-file"
	FlagTZ             = "tz"
	FlagDate           = "date"
	FlagDryRun         = "dry-run"
	FlagVerbose        = "verbose"
	FlagSplitMessages  = "split-messages"
	FlagStateFile      = "state-file"
	FlagForce          = "force"
	FlagVerifyWebhook  = "verify-webhook"
	FlagRetries        = "retries"
	FlagConnectTimeout = "connect-timeout"
	FlagReadTimeout    = "read-timeout"
	FlagMaxContentLen  = "max-content-len"
	FlagLang           = "lang"
	FlagSchedule       = "schedule"
	FlagExportICS      = "export-ics"
	FlagKeyringUser    = "keyring-user"
	FlagServeICS       = "serve-ics"

	FlagDescVersion        = "Show application version and exit"
	FlagDescWebhook        = "Webhook URL (https://discord.com/api/webhooks/...)"
	FlagDescEventsFile     = "Path to the events catalog (.json, .vcf or .ics)"
	FlagDescTZ             = "IANA time zone used to compute today"
	FlagDescDate           = "Override today's date for testing (YYYY-MM-DD)"
	FlagDescDryRun         = "Do not post; print the message(s) to stdout"
	FlagDescVerbose        = "Enable verbose diagnostics"
	FlagDescSplitMessages  = "Send one message per event (default: combined)"
	FlagDescStateFile      = "Path to the state file used for idempotency"
	FlagDescForce          = "Ignore the state file and send anyway"
	FlagDescVerifyWebhook  = "Perform a GET to verify the webhook before posting"
	FlagDescRetries        = "Number of POST retries on transient failures"
	FlagDescConnectTimeout = "HTTP connect timeout (seconds, or a duration like 500ms)"
	FlagDescReadTimeout    = "HTTP read timeout (seconds, or a duration like 500ms)"
	FlagDescMaxContentLen  = "Maximum content length of one message"
	FlagDescLang           = "Language of the default messages (en, fr)"
	FlagDescSchedule       = "Cron spec; when set the process stays up and runs on each tick"
	FlagDescExportICS      = "Write the catalog as an iCalendar file to this path"
	FlagDescKeyringUser    = "Keyring account holding the webhook URL"
	FlagDescServeICS       = "Serve the catalog as an iCalendar feed on this host:port (with -schedule)"

	MsgVersionOutput = "%s version %s (%s/%s)\n"
	MsgErrorOutput   = "ERROR: %s\n"
)

// -----------------------------------------------------------------------------
// Environment Variables
// -----------------------------------------------------------------------------

const (
	EnvWebhook    = "DAILY_EVENTS_WEBHOOK"
	EnvEventsFile = "DAILY_EVENTS_FILE"
	EnvTZ         = "DAILY_EVENTS_TZ"
	EnvStateFile  = "DAILY_EVENTS_STATE_FILE"
	EnvLang       = "DAILY_EVENTS_LANG"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultTZ             = "America/Toronto"
	DefaultMaxContentLen  = 2000 // Discord message content hard limit
	DefaultRetries        = 2
	DefaultConnectTimeout = 3 * time.Second
	DefaultReadTimeout    = 10 * time.Second
	DefaultLanguage       = "en"
	DefaultLeapYear       = 2024 // Leap year baseline so Feb 29 validates
	MinPlausibleYear      = 1900

	// Event kinds with dedicated defaults.
	KindBirthday = "birthday"
	KindHoliday  = "holiday"
	KindEvent    = "event"

	EmojiBirthday = "🎂"
	EmojiHoliday  = "🎉"
	EmojiDefault  = "📌"

	// Catalog document keys.
	CatalogEventsKey = "events"
	FieldType        = "type"
	FieldName        = "name"
	FieldDate        = "date"
	FieldMonth       = "month"
	FieldDay         = "day"
	FieldYear        = "year"
	FieldRecurring   = "recurring"
	FieldMessage     = "message"
	FieldMention     = "mention"
	FieldEmoji       = "emoji"

	// Catalog file extensions.
	ExtVCF   = ".vcf"
	ExtVCard = ".vcard"
	ExtICS   = ".ics"

	// Dry-run output divider printed between delivery units.
	DryRunDivider = "\n---\n\n"
)

// Template placeholders accepted in event messages.
const (
	PlaceholderName       = "name"
	PlaceholderAge        = "age"
	PlaceholderAgeOrdinal = "age_ordinal"
	PlaceholderDate       = "date"
	PlaceholderWeekday    = "weekday"
	PlaceholderYear       = "year"
	PlaceholderEmoji      = "emoji"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	ICalVersion = "2.0"
	ICalProdid  = "-//Go Daily Events//Catalog//EN"
	ICalCalName = "Daily Events"
	ICalScale   = "GREGORIAN"
	ICalDomain  = "go-daily-events"
	ICalYearly  = "FREQ=YEARLY"

	PropVersion    = "VERSION"
	PropProdid     = "PRODID"
	PropXWRCalName = "X-WR-CALNAME"
	PropCalScale   = "CALSCALE"
	PropUID        = "UID"
	PropSummary    = "SUMMARY"
	PropCategories = "CATEGORIES"
	PropDTStart    = "DTSTART"
	PropDTStamp    = "DTSTAMP"
	PropRRule      = "RRULE"

	VCardBDAY = "BDAY"
	VCardFN   = "FN"
	VCardN    = "N"

	FormatUID       = "%x@%s"
	FormatHashInput = "%s|%s|%s"
	UIDHashLength   = 12

	// StubVCalendar is the minimal valid iCalendar object written when the
	// catalog holds no events.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:" + ICalVersion + "\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Data Formats
// -----------------------------------------------------------------------------

const (
	DateFormatISO     = "2006-01-02"
	DateFormatBasic   = "20060102"
	DateFormatRFC3339 = time.RFC3339
	DateFormatNoYearD = "--01-02"
	DateFormatNoYearB = "--0102"
	DateFormatICalUTC = "20060102T150405Z"
	DateFormatICalTS  = "20060102T150405"
)

// -----------------------------------------------------------------------------
// Network & Delivery
// -----------------------------------------------------------------------------

const (
	BackoffBase         = 1 * time.Second
	BackoffMax          = 8 * time.Second
	DefaultRetryAfter   = 1 * time.Second
	MaxBodyDiagnostic   = 800
	MaxVerifyDiagnostic = 500
	MaxHTTPResponseSize = 1 << 20 // 1MB is plenty for webhook replies
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	TruncatedSuffix     = "...(truncated)"
	RetryAfterJSONKey   = "retry_after"

	HeaderUserAgent       = "User-Agent"
	HeaderContentType     = "Content-Type"
	HeaderRetryAfter      = "Retry-After"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeJSON            = "application/json"
	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"
)

// -----------------------------------------------------------------------------
// Calendar Feed Server
// -----------------------------------------------------------------------------

const (
	RouteRoot          = "/"
	FeedReadTimeout    = 10 * time.Second
	FeedWriteTimeout   = 30 * time.Second
	FeedIdleTimeout    = 60 * time.Second
	ShutdownTimeout    = 5 * time.Second
	FeedRetryAfterSecs = "10"
	AllowedMethods     = "GET, HEAD"
	ETagWildcard       = "*"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`

	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Translation Keys (i18n)
// -----------------------------------------------------------------------------

// Locale files live in the embedded locales directory as active.<lang>.json.
const (
	LocaleDir    = "locales"
	LocalePrefix = "active."
	LocaleSuffix = ".json"
	FormatJSON   = "json"
)

const (
	TKeyBirthdayAge = "default_birthday_age"
	TKeyBirthday    = "default_birthday"
	TKeyHoliday     = "default_holiday"
	TKeyGeneric     = "default_generic"
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrEventsNotFound  = "events file not found"
	ErrEventsNotFile   = "events path is not a file"
	ErrEventsRead      = "failed to read events file"
	ErrEventsJSON      = "events file is not valid JSON"
	ErrEventsNoKey     = "events JSON object must contain an 'events' list"
	ErrEventsNotList   = "events JSON must be a list"
	ErrVCardParse      = "failed to parse vCard stream"
	ErrICalParse       = "failed to parse iCalendar stream"
	ErrNoVCard         = "no BEGIN:VCARD found"
	ErrNoVCalendar     = "no BEGIN:VCALENDAR found"
	ErrDurationFlag    = "expected seconds or a duration such as 500ms"
	ErrICalEncode      = "failed to encode iCalendar data"
	ErrDateParse       = "unable to parse date"
	ErrInvalidTZ       = "invalid time zone"
	ErrInvalidDate     = "invalid ISO date"
	ErrMaxLen          = "max content length must be > 0"
	ErrRetries         = "retries must be >= 0"
	ErrTimeouts        = "connect and read timeouts must be > 0"
	ErrWebhookEmpty    = "webhook URL is empty"
	ErrInvalidURL      = "invalid webhook URL structure"
	ErrProtocol        = "unsupported protocol scheme (http/https only)"
	ErrWebhookHost     = "webhook URL has no host"
	ErrScheduleSpec    = "invalid schedule spec"
	ErrScheduleDate    = "date override cannot be combined with a schedule"
	ErrEventsRequired  = "events file is required"
	ErrFeedAddr        = "invalid feed address (want host:port)"
	ErrFeedSchedule    = "the calendar feed requires a schedule"
	ErrServerStartup   = "feed server startup failed"
	ErrServerShutdown  = "feed server shutdown failed"
	ErrWriteResp       = "failed to write response body"
	ErrStateWrite      = "failed to write state file"
	ErrExportWrite     = "failed to write iCalendar export"
	ErrRequestFailed   = "HTTP request failed"
	ErrRateLimited     = "rate-limited (HTTP 429) and retries exhausted"
	ErrRejected        = "endpoint rejected request"
	ErrVerifyFailed    = "webhook verification failed"
	ErrOutputWrite     = "failed to write dry-run output"
	ErrAppFailed       = "application failed"
	ErrKeyringLookup   = "keyring lookup failed"
	ErrLocalesAccess   = "failed to access embedded locales"
	ErrLocaleLoad      = "failed to load locale file"
	ErrUnknownField    = "references unknown placeholder"
	ErrEmptyRender     = "rendered to empty content"
	ErrUnclosedBrace   = "has an unbalanced brace"
	ErrMissingName     = "missing required field 'name'"
	ErrMissingDateForm = "must contain either 'date' or both 'month' and 'day'"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgAppStarting     = "Starting application"
	MsgAppStop         = "Application stopped"
	MsgRunStarted      = "Run started"
	MsgRunFinished     = "Run finished"
	MsgCatalogLoaded   = "Catalog loaded"
	MsgNoMatches       = "No matching events today"
	MsgMatched         = "Events matched today"
	MsgAlreadySent     = "State indicates today's message already sent"
	MsgSkippedEntry    = "Skipping non-object catalog entry"
	MsgOddYear         = "Birthday year looks odd; keeping it anyway"
	MsgSkippedCard     = "Skipping malformed vCard"
	MsgSkippedDate     = "Skipping invalid date format"
	MsgSkippedVEvent   = "Skipping calendar event without usable date"
	MsgStateIgnored    = "State file is not in expected format; ignoring it"
	MsgStateUnreadable = "Failed to read state file; continuing without state"
	MsgStateWritten    = "State file updated"
	MsgPostRetry       = "POST failed; retrying"
	MsgRateLimited     = "Rate-limited; retrying"
	MsgServerError     = "Server error; retrying"
	MsgUnitSent        = "Delivery unit accepted"
	MsgWebhookReplied  = "Webhook replied"
	MsgVerifyOK        = "Webhook verification succeeded"
	MsgExported        = "Catalog exported to iCalendar"
	MsgSchedulerStart  = "Scheduler started"
	MsgSchedulerStop   = "Scheduler stopped"
	MsgTickFailed      = "Scheduled run failed"
	MsgLocaleLoaded    = "Locale loaded successfully"
	MsgLocaleSkip      = "Skipping non-locale file"
	MsgLocaleBadName   = "Skipping locale file with empty language code"
	MsgLangFallback    = "Unsupported language; falling back to default"
	MsgTransMissing    = "Missing translation key"
	MsgKeyringUsed     = "Webhook URL resolved from keyring"
	MsgEnvLoaded       = "Environment file loaded"
	MsgCtxCancel       = "Shutdown signal received"
	MsgServerListen    = "Feed server listening"
	MsgServerStop      = "Shutting down feed server"
	MsgFeedUpdated     = "Calendar feed updated"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyRunID     = "run_id"
	LogKeyDate      = "date"
	LogKeyTZ        = "tz"
	LogKeyIndex     = "index"
	LogKeyKind      = "kind"
	LogKeyName      = "name"
	LogKeyYear      = "year"
	LogKeyFile      = "file"
	LogKeyPath      = "path"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyAttempt   = "attempt"
	LogKeyAttempts  = "attempts"
	LogKeyWait      = "wait"
	LogKeyUnit      = "unit"
	LogKeyUnits     = "units"
	LogKeyCount     = "count"
	LogKeySpec      = "spec"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyValue     = "value"
	LogKeyDuration  = "duration_ms"
	LogKeyDryRun    = "dry_run"
	LogKeyOutcome   = "outcome"
	LogKeyAddr      = "addr"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain      = "main"
	CompConfig    = "config"
	CompCatalog   = "catalog"
	CompEngine    = "engine"
	CompState     = "state"
	CompDelivery  = "delivery"
	CompCalendar  = "calendar"
	CompNotifier  = "notifier"
	CompScheduler = "scheduler"
	CompI18n      = "i18n"
	CompServer    = "server"
)
