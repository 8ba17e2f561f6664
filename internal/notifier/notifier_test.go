package notifier_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/tartampluch/go-daily-events/internal/config"
	"github.com/tartampluch/go-daily-events/internal/delivery"
	"github.com/tartampluch/go-daily-events/internal/locale"
	"github.com/tartampluch/go-daily-events/internal/notifier"
	"github.com/tartampluch/go-daily-events/internal/state"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockEndpoint simulates the webhook using `testify/mock`.
type MockEndpoint struct {
	mock.Mock
}

func (m *MockEndpoint) Post(ctx context.Context, content string) (*delivery.Response, error) {
	args := m.Called(ctx, content)
	if r := args.Get(0); r != nil {
		return r.(*delivery.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEndpoint) Verify(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockClock controls time for deterministic testing.
type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time {
	return m.CurrentTime
}

func noSleep(context.Context, time.Duration) error { return nil }

func accepted() *delivery.Response { return &delivery.Response{StatusCode: 204} }

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

type fixture struct {
	dir      string
	endpoint *MockEndpoint
	out      *bytes.Buffer
	n        *notifier.Notifier
}

func newFixture(t *testing.T, catalogJSON string, mutate func(s *config.Settings)) *fixture {
	t.Helper()
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.json")
	require.NoError(t, os.WriteFile(eventsPath, []byte(catalogJSON), 0o600))

	s := config.DefaultSettings(func(string) string { return "" })
	s.Webhook = "https://discord.example/api/webhooks/1/token"
	s.EventsFile = eventsPath
	s.StateFile = filepath.Join(dir, "state", "state.json")
	s.TZ = "UTC"
	if mutate != nil {
		mutate(&s)
	}

	f := &fixture{dir: dir, endpoint: new(MockEndpoint), out: &bytes.Buffer{}}
	f.n = &notifier.Notifier{
		Settings:   s,
		Clock:      MockClock{CurrentTime: time.Date(2026, time.December, 10, 15, 0, 0, 0, time.UTC)},
		Endpoint:   f.endpoint,
		Translator: locale.New(s.Lang),
		Out:        f.out,
		Sleep:      noSleep,
	}
	return f
}

const adaCatalog = `[{"type":"birthday","name":"Ada","month":12,"day":10,"year":1990}]`

// -----------------------------------------------------------------------------
// Test Cases
// -----------------------------------------------------------------------------

func TestRun_DeliversOnceThenSkips(t *testing.T) {
	f := newFixture(t, adaCatalog, nil)
	f.endpoint.On("Post", mock.Anything, "🎂 Happy 36th birthday, Ada!").Return(accepted(), nil).Once()

	res, err := f.n.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notifier.OutcomeDelivered, res.Outcome)
	assert.NotEmpty(t, res.RunID)

	rec := (&state.Store{Path: f.n.Settings.StateFile}).Read()
	require.NotNil(t, rec)
	assert.Equal(t, "2026-12-10", rec.LastSent)
	assert.Equal(t, state.Fingerprint("🎂 Happy 36th birthday, Ada!"), rec.SHA256)

	// Same day, same content: nothing is posted again.
	res, err = f.n.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notifier.OutcomeAlreadySent, res.Outcome)
	f.endpoint.AssertNumberOfCalls(t, "Post", 1)

	// Force bypasses the record.
	f.n.Settings.Force = true
	f.endpoint.On("Post", mock.Anything, "🎂 Happy 36th birthday, Ada!").Return(accepted(), nil).Once()
	res, err = f.n.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notifier.OutcomeDelivered, res.Outcome)
	f.endpoint.AssertNumberOfCalls(t, "Post", 2)
}

func TestRun_DateOverride(t *testing.T) {
	f := newFixture(t, `[{"type":"holiday","name":"Canada Day","date":"2026-07-01"}]`, func(s *config.Settings) {
		s.Date = "2027-07-01"
	})

	res, err := f.n.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notifier.OutcomeNothingToday, res.Outcome)
	assert.Empty(t, res.Plan.Units)
	f.endpoint.AssertNotCalled(t, "Post", mock.Anything, mock.Anything)

	_, err = os.Stat(f.n.Settings.StateFile)
	assert.True(t, os.IsNotExist(err), "nothing to send leaves no record")
}

func TestRun_DryRun(t *testing.T) {
	catalog := `[
		{"type":"holiday","name":"Alpha","month":12,"day":10},
		{"type":"holiday","name":"Beta","month":12,"day":10}
	]`
	f := newFixture(t, catalog, func(s *config.Settings) {
		s.DryRun = true
		s.SplitMessages = true
	})

	res, err := f.n.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notifier.OutcomeDryRun, res.Outcome)
	assert.Equal(t, "🎉 Alpha.\n\n---\n\n🎉 Beta.\n", f.out.String())

	f.endpoint.AssertNotCalled(t, "Post", mock.Anything, mock.Anything)
	_, err = os.Stat(f.n.Settings.StateFile)
	assert.True(t, os.IsNotExist(err), "dry-run never touches state")
}

func TestRun_DryRunIgnoresExistingRecord(t *testing.T) {
	f := newFixture(t, adaCatalog, func(s *config.Settings) { s.DryRun = true })
	content := "🎂 Happy 36th birthday, Ada!"
	require.NoError(t, (&state.Store{Path: f.n.Settings.StateFile}).Write(state.Record{LastSent: "2026-12-10", SHA256: state.Fingerprint(content)}))

	res, err := f.n.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notifier.OutcomeDryRun, res.Outcome)
	assert.Equal(t, content+"\n", f.out.String())
}

func TestRun_French(t *testing.T) {
	f := newFixture(t, adaCatalog, func(s *config.Settings) {
		s.DryRun = true
		s.Lang = "fr"
	})

	_, err := f.n.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "🎂 Joyeux 36e anniversaire, Ada !\n", f.out.String())
}

func TestRun_VerifyFailureStopsBeforePosting(t *testing.T) {
	f := newFixture(t, adaCatalog, func(s *config.Settings) { s.VerifyWebhook = true })
	f.endpoint.On("Verify", mock.Anything).Return(apperr.Runtime("%s: HTTP 401", config.ErrVerifyFailed))

	_, err := f.n.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.ClassRuntime, apperr.Classify(err))
	f.endpoint.AssertNotCalled(t, "Post", mock.Anything, mock.Anything)
}

func TestRun_VerifyThenPost(t *testing.T) {
	f := newFixture(t, adaCatalog, func(s *config.Settings) { s.VerifyWebhook = true })
	f.endpoint.On("Verify", mock.Anything).Return(nil).Once()
	f.endpoint.On("Post", mock.Anything, mock.Anything).Return(accepted(), nil).Once()

	_, err := f.n.Run(context.Background())
	require.NoError(t, err)
	f.endpoint.AssertExpectations(t)
}

// TestRun_FailedUnitLeavesNoRecord keeps delivery at-least-once: a batch that
// does not fully succeed is redelivered by the next run.
func TestRun_FailedUnitLeavesNoRecord(t *testing.T) {
	catalog := `[
		{"type":"holiday","name":"Alpha","month":12,"day":10},
		{"type":"holiday","name":"Beta","month":12,"day":10}
	]`
	f := newFixture(t, catalog, func(s *config.Settings) { s.SplitMessages = true })
	f.endpoint.On("Post", mock.Anything, "🎉 Alpha.").Return(accepted(), nil)
	f.endpoint.On("Post", mock.Anything, "🎉 Beta.").Return(nil, errors.New("connection reset"))

	_, err := f.n.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.ClassRuntime, apperr.Classify(err))
	f.endpoint.AssertNumberOfCalls(t, "Post", 1+f.n.Settings.Retries+1)

	_, statErr := os.Stat(f.n.Settings.StateFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_ErrorClasses(t *testing.T) {
	tests := []struct {
		name    string
		catalog string
		mutate  func(s *config.Settings)
		want    apperr.Class
	}{
		{
			name:    "BadZoneBeforeCatalog",
			catalog: `not even json`,
			mutate:  func(s *config.Settings) { s.TZ = "Nowhere/Land" },
			want:    apperr.ClassUsage,
		},
		{
			name:    "BadDateOverride",
			catalog: adaCatalog,
			mutate:  func(s *config.Settings) { s.Date = "2026-02-30" },
			want:    apperr.ClassUsage,
		},
		{
			name:    "MalformedCatalog",
			catalog: `{"items": []}`,
			want:    apperr.ClassConfig,
		},
		{
			name:    "MissingCatalog",
			catalog: adaCatalog,
			mutate:  func(s *config.Settings) { s.EventsFile = filepath.Join(s.EventsFile, "..", "missing.json") },
			want:    apperr.ClassConfig,
		},
		{
			name:    "UnknownPlaceholder",
			catalog: `[{"name":"Ada","month":12,"day":10,"message":"{nickname}"}]`,
			want:    apperr.ClassConfig,
		},
		{
			name:    "NonPositiveLength",
			catalog: adaCatalog,
			mutate:  func(s *config.Settings) { s.MaxContentLen = 0 },
			want:    apperr.ClassUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.catalog, tt.mutate)
			_, err := f.n.Run(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.want, apperr.Classify(err))
			f.endpoint.AssertNotCalled(t, "Post", mock.Anything, mock.Anything)
		})
	}
}

func TestRun_ExportICS(t *testing.T) {
	var exportPath string
	f := newFixture(t, adaCatalog, func(s *config.Settings) {
		s.DryRun = true
		s.ExportICS = filepath.Join(filepath.Dir(s.EventsFile), "feed", "events.ics")
		exportPath = s.ExportICS
	})

	_, err := f.n.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "SUMMARY:🎂 Ada")
	assert.NotEmpty(t, f.out.String(), "the regular run continues after the export")
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "delivered", notifier.OutcomeDelivered.String())
	assert.Equal(t, "already_sent", notifier.OutcomeAlreadySent.String())
	assert.Equal(t, "dry_run", notifier.OutcomeDryRun.String())
	assert.Equal(t, "nothing_today", notifier.OutcomeNothingToday.String())
}

type recordingFeed struct {
	data     []byte
	modified time.Time
	calls    int
}

func (r *recordingFeed) Publish(data []byte, modified time.Time) {
	r.data = data
	r.modified = modified
	r.calls++
}

func TestRun_RefreshesFeed(t *testing.T) {
	feed := &recordingFeed{}
	f := newFixture(t, adaCatalog, func(s *config.Settings) { s.DryRun = true })
	f.n.Feed = feed

	_, err := f.n.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, feed.calls)
	assert.Contains(t, string(feed.data), "SUMMARY:🎂 Ada")
	assert.Equal(t, time.Date(2026, time.December, 10, 15, 0, 0, 0, time.UTC), feed.modified)
}

func TestPublishCatalog(t *testing.T) {
	t.Run("NoFeedIsNoop", func(t *testing.T) {
		f := newFixture(t, `not json`, nil)
		assert.NoError(t, f.n.PublishCatalog())
	})

	t.Run("PublishesWithoutDelivering", func(t *testing.T) {
		feed := &recordingFeed{}
		f := newFixture(t, adaCatalog, nil)
		f.n.Feed = feed

		require.NoError(t, f.n.PublishCatalog())
		assert.Equal(t, 1, feed.calls)
		f.endpoint.AssertNotCalled(t, "Post", mock.Anything, mock.Anything)
	})

	t.Run("BadCatalog", func(t *testing.T) {
		f := newFixture(t, `{"items": []}`, nil)
		f.n.Feed = &recordingFeed{}
		err := f.n.PublishCatalog()
		require.Error(t, err)
		assert.Equal(t, apperr.ClassConfig, apperr.Classify(err))
	})
}
