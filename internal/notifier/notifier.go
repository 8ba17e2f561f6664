// Package notifier runs one complete pass of the daily pipeline: load the
// catalog, match today's events, render and chunk them, then deliver once.
package notifier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/tartampluch/go-daily-events/internal/calendar"
	"github.com/tartampluch/go-daily-events/internal/catalog"
	"github.com/tartampluch/go-daily-events/internal/config"
	"github.com/tartampluch/go-daily-events/internal/delivery"
	"github.com/tartampluch/go-daily-events/internal/engine"
	"github.com/tartampluch/go-daily-events/internal/locale"
	"github.com/tartampluch/go-daily-events/internal/state"
)

// Outcome says how a run ended when it did not fail.
type Outcome int

const (
	OutcomeNothingToday Outcome = iota
	OutcomeDryRun
	OutcomeAlreadySent
	OutcomeDelivered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDryRun:
		return "dry_run"
	case OutcomeAlreadySent:
		return "already_sent"
	case OutcomeDelivered:
		return "delivered"
	default:
		return "nothing_today"
	}
}

// Result summarizes a successful run.
type Result struct {
	RunID   string
	Outcome Outcome
	Plan    *engine.Plan
}

// Publisher receives each fresh iCalendar export of the catalog.
type Publisher interface {
	Publish(data []byte, modified time.Time)
}

// Notifier holds the settings and collaborators of the pipeline.
type Notifier struct {
	Settings config.Settings

	Clock      engine.Clock      // Interface for time mocking.
	Endpoint   delivery.Endpoint // Defaults to an HTTPPoster on Settings.Webhook.
	Translator *locale.Translator
	Out        io.Writer // Dry-run output. Defaults to os.Stdout.
	Feed       Publisher // Optional; refreshed on every run.

	// Sleep overrides the retry wait, for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Notifier wired with the real clock, HTTP endpoint and the
// translator for Settings.Lang.
func New(s config.Settings) *Notifier {
	return &Notifier{
		Settings:   s,
		Clock:      engine.RealClock{},
		Endpoint:   delivery.NewHTTPPoster(s.Webhook, s.ConnectTimeout, s.ReadTimeout),
		Translator: locale.New(s.Lang),
		Out:        os.Stdout,
	}
}

// Run executes one pass. No matches, dry-run and an already-sent day are
// successes; every failure is classified for the exit status.
func (n *Notifier) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	s := n.Settings

	log := slog.With(
		config.LogKeyComponent, config.CompNotifier,
		config.LogKeyRunID, res.RunID,
	)
	log.Info(config.MsgRunStarted,
		config.LogKeyTZ, s.TZ,
		config.LogKeyFile, s.EventsFile,
		config.LogKeyDryRun, s.DryRun,
	)

	clock := n.clock()

	// Zone and date come first so a bad invocation fails before any I/O.
	loc, err := engine.LoadZone(s.TZ)
	if err != nil {
		return nil, err
	}
	var override catalog.Date
	if s.Date != "" {
		if override, err = engine.ParseOverride(s.Date); err != nil {
			return nil, err
		}
	}

	loader := &catalog.Loader{Now: clock.Now}
	events, err := loader.LoadFile(s.EventsFile)
	if err != nil {
		return nil, err
	}
	if err := n.export(events); err != nil {
		return nil, err
	}

	today := engine.Today(clock, loc, override)
	renderer := &engine.Renderer{}
	if n.Translator != nil {
		renderer.FormatDefault = n.Translator.FormatDefault
	}
	planner := &engine.Planner{
		Renderer:      renderer,
		MaxContentLen: s.MaxContentLen,
		SplitMessages: s.SplitMessages,
	}
	plan, err := planner.Build(events, today)
	if err != nil {
		return nil, err
	}
	res.Plan = plan

	finish := func(o Outcome) (*Result, error) {
		res.Outcome = o
		log.Info(config.MsgRunFinished,
			config.LogKeyDate, today.String(),
			config.LogKeyOutcome, o.String(),
			config.LogKeyUnits, len(plan.Units),
			config.LogKeyDuration, time.Since(start).Milliseconds(),
		)
		return res, nil
	}

	if plan.Empty() {
		return finish(OutcomeNothingToday)
	}

	if s.DryRun {
		if err := n.printUnits(plan.Units); err != nil {
			return nil, err
		}
		return finish(OutcomeDryRun)
	}

	guard := &state.Guard{Force: s.Force}
	if s.StateFile != "" {
		guard.Store = &state.Store{Path: s.StateFile}
	}
	if guard.Check(today, plan.Content) == state.Skip {
		return finish(OutcomeAlreadySent)
	}

	endpoint := n.Endpoint
	if endpoint == nil {
		endpoint = delivery.NewHTTPPoster(s.Webhook, s.ConnectTimeout, s.ReadTimeout)
	}
	if s.VerifyWebhook {
		if err := endpoint.Verify(ctx); err != nil {
			return nil, err
		}
	}

	sender := &delivery.Sender{Endpoint: endpoint, Retries: s.Retries, Sleep: n.Sleep}
	if err := sender.DeliverAll(ctx, plan.Units); err != nil {
		return nil, err
	}
	if err := guard.Commit(today, plan.Content); err != nil {
		return nil, err
	}
	return finish(OutcomeDelivered)
}

// PublishCatalog loads the catalog and hands its export to Feed.
// It lets a feed be served before the first scheduled run.
func (n *Notifier) PublishCatalog() error {
	if n.Feed == nil {
		return nil
	}
	loader := &catalog.Loader{Now: n.clock().Now}
	events, err := loader.LoadFile(n.Settings.EventsFile)
	if err != nil {
		return err
	}
	return n.export(events)
}

// export writes the optional ICS file and refreshes the feed.
func (n *Notifier) export(events []catalog.Event) error {
	if n.Settings.ExportICS == "" && n.Feed == nil {
		return nil
	}
	exporter := &calendar.Exporter{Clock: n.clock()}
	if n.Settings.ExportICS != "" {
		if err := exporter.WriteFile(n.Settings.ExportICS, events); err != nil {
			return err
		}
	}
	if n.Feed != nil {
		data, err := exporter.Export(events)
		if err != nil {
			return err
		}
		n.Feed.Publish(data, n.clock().Now())
	}
	return nil
}

func (n *Notifier) clock() engine.Clock {
	if n.Clock == nil {
		return engine.RealClock{}
	}
	return n.Clock
}

// printUnits writes the units separated by a visible divider.
func (n *Notifier) printUnits(units []string) error {
	out := n.Out
	if out == nil {
		out = os.Stdout
	}
	for i, unit := range units {
		if i > 0 {
			if _, err := io.WriteString(out, config.DryRunDivider); err != nil {
				return apperr.WrapRuntime(err, "%s", config.ErrOutputWrite)
			}
		}
		if _, err := fmt.Fprintln(out, unit); err != nil {
			return apperr.WrapRuntime(err, "%s", config.ErrOutputWrite)
		}
	}
	return nil
}
