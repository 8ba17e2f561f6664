package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/tartampluch/go-daily-events/internal/config"
	"github.com/tartampluch/go-daily-events/internal/engine"
	"github.com/tartampluch/go-daily-events/internal/notifier"
	"github.com/tartampluch/go-daily-events/internal/scheduler"
	"github.com/tartampluch/go-daily-events/internal/server"
)

// main is the application entry point.
// It delegates execution to runMain so deferred calls run before the
// process terminates; os.Exit() does not run defers.
func main() {
	os.Exit(runMain(os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
// stdout carries dry-run output only; logs and errors go to stderr.
func runMain(args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	// -------------------------------------------------------------------------
	// 1. CLI Argument Parsing
	// -------------------------------------------------------------------------
	envLoaded := config.LoadEnvFile()
	settings, showVersion, err := parseFlags(args, stderr, getenv)
	if errors.Is(err, flag.ErrHelp) {
		return config.ExitCodeSuccess
	}
	if err != nil {
		return config.ExitCodeUsage
	}

	if showVersion {
		printVersion(stdout)
		return config.ExitCodeSuccess
	}

	// -------------------------------------------------------------------------
	// 2. Logging Initialization
	// -------------------------------------------------------------------------
	setupLogging(settings.Verbose, stderr)
	if envLoaded {
		slog.Debug(config.MsgEnvLoaded, config.LogKeyComponent, config.CompMain)
	}

	// -------------------------------------------------------------------------
	// 3. Context & Signal Handling
	// -------------------------------------------------------------------------
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	// -------------------------------------------------------------------------
	// 4. Application Logic
	// -------------------------------------------------------------------------
	if err := run(ctx, settings, stdout); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		fmt.Fprintf(stderr, config.MsgErrorOutput, apperr.Message(err))
		return exitCode(err)
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run validates the settings, then runs the notifier once or on a schedule.
// On a schedule the optional feed server runs alongside; either one failing
// stops both.
func run(ctx context.Context, s config.Settings, stdout io.Writer) error {
	s.Normalize()
	if err := s.ResolveWebhook(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}

	n := notifier.New(s)
	n.Out = stdout

	if s.Schedule == "" {
		_, err := n.Run(ctx)
		return err
	}

	loc, err := engine.LoadZone(s.TZ)
	if err != nil {
		return err
	}
	sched, err := scheduler.New(s.Schedule, loc, func(ctx context.Context) error {
		_, err := n.Run(ctx)
		return err
	})
	if err != nil {
		return err
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info(config.MsgCtxCancel, config.LogKeyComponent, config.CompMain)
	}()

	var feedErr chan error
	if s.FeedAddr != "" {
		feed := server.NewFeedServer(s.FeedAddr)
		n.Feed = feed
		if err := n.PublishCatalog(); err != nil {
			return err
		}
		feedErr = make(chan error, 1)
		go func() {
			err := feed.Start(ctx)
			if err != nil {
				stop()
			}
			feedErr <- err
		}()
	}

	err = sched.Run(ctx)
	if feedErr != nil {
		if ferr := <-feedErr; ferr != nil {
			return ferr
		}
	}
	return err
}

// parseFlags registers every flag on top of the environment defaults.
func parseFlags(args []string, output io.Writer, getenv func(string) string) (config.Settings, bool, error) {
	s := config.DefaultSettings(getenv)
	fs := flag.NewFlagSet(config.AppBinary, flag.ContinueOnError)
	fs.SetOutput(output)

	showVersion := fs.Bool(config.FlagVersion, false, config.FlagDescVersion)
	fs.StringVar(&s.Webhook, config.FlagWebhook, s.Webhook, config.FlagDescWebhook)
	fs.StringVar(&s.KeyringUser, config.FlagKeyringUser, s.KeyringUser, config.FlagDescKeyringUser)
	fs.StringVar(&s.EventsFile, config.FlagEventsFile, s.EventsFile, config.FlagDescEventsFile)
	fs.StringVar(&s.StateFile, config.FlagStateFile, s.StateFile, config.FlagDescStateFile)
	fs.StringVar(&s.ExportICS, config.FlagExportICS, s.ExportICS, config.FlagDescExportICS)
	fs.StringVar(&s.TZ, config.FlagTZ, s.TZ, config.FlagDescTZ)
	fs.StringVar(&s.Date, config.FlagDate, s.Date, config.FlagDescDate)
	fs.StringVar(&s.Lang, config.FlagLang, s.Lang, config.FlagDescLang)
	fs.StringVar(&s.Schedule, config.FlagSchedule, s.Schedule, config.FlagDescSchedule)
	fs.StringVar(&s.FeedAddr, config.FlagServeICS, s.FeedAddr, config.FlagDescServeICS)
	fs.BoolVar(&s.DryRun, config.FlagDryRun, s.DryRun, config.FlagDescDryRun)
	fs.BoolVar(&s.Verbose, config.FlagVerbose, s.Verbose, config.FlagDescVerbose)
	fs.BoolVar(&s.SplitMessages, config.FlagSplitMessages, s.SplitMessages, config.FlagDescSplitMessages)
	fs.BoolVar(&s.Force, config.FlagForce, s.Force, config.FlagDescForce)
	fs.BoolVar(&s.VerifyWebhook, config.FlagVerifyWebhook, s.VerifyWebhook, config.FlagDescVerifyWebhook)
	fs.IntVar(&s.Retries, config.FlagRetries, s.Retries, config.FlagDescRetries)
	fs.Var((*secondsFlag)(&s.ConnectTimeout), config.FlagConnectTimeout, config.FlagDescConnectTimeout)
	fs.Var((*secondsFlag)(&s.ReadTimeout), config.FlagReadTimeout, config.FlagDescReadTimeout)
	fs.IntVar(&s.MaxContentLen, config.FlagMaxContentLen, s.MaxContentLen, config.FlagDescMaxContentLen)

	if err := fs.Parse(args); err != nil {
		return s, false, err
	}
	return s, *showVersion, nil
}

// secondsFlag is a duration flag that also takes a bare number of seconds.
type secondsFlag time.Duration

func (f *secondsFlag) String() string {
	if f == nil {
		return ""
	}
	return time.Duration(*f).String()
}

func (f *secondsFlag) Set(value string) error {
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return errors.New(config.ErrDurationFlag)
		}
		*f = secondsFlag(secs * float64(time.Second))
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return errors.New(config.ErrDurationFlag)
	}
	*f = secondsFlag(d)
	return nil
}

// exitCode maps the failure class to the process exit status.
func exitCode(err error) int {
	switch apperr.Classify(err) {
	case apperr.ClassNone:
		return config.ExitCodeSuccess
	case apperr.ClassUsage:
		return config.ExitCodeUsage
	case apperr.ClassConfig:
		return config.ExitCodeConfig
	default:
		return config.ExitCodeRuntime
	}
}

// printVersion outputs the build information.
func printVersion(w io.Writer) {
	fmt.Fprintf(w, config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Debug(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger on w.
func setupLogging(verbose bool, w io.Writer) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(w, opts)))
}
