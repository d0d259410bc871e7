package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/input-replay/pkg/capture"
	"github.com/offlinefirst/input-replay/pkg/events"
	"github.com/offlinefirst/input-replay/pkg/hotkey"
	"github.com/offlinefirst/input-replay/pkg/input"
)

// runnableSource is a capture source that publishes notifications while Run
// is executing.
type runnableSource interface {
	input.Source
	Run(ctx context.Context) error
}

type recordOptions struct {
	name       string
	output     string
	source     string
	noMouse    bool
	noKeyboard bool
	duration   time.Duration
	maxEvents  int
	interval   time.Duration
}

func (rc *RootCommand) newRecordCommand() *cobra.Command {
	var opts recordOptions
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Capture input until the stop hotkey, the source ends or the duration elapses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("source") {
				opts.source = app.Config.Capture.Source
			}
			if !cmd.Flags().Changed("max-events") {
				opts.maxEvents = app.Config.Capture.MaxEvents
			}
			return withMetrics(cmd.Context(), app, func(ctx context.Context) error {
				return rc.record(ctx, app, opts, cmd.OutOrStdout())
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.name, "name", "", "Name stored inside the recording")
	flags.StringVarP(&opts.output, "output", "o", "", "Write to this path instead of an auto_save file")
	flags.StringVar(&opts.source, "source", input.SourceSynthetic, "Capture source (synthetic, stdin)")
	flags.BoolVar(&opts.noMouse, "no-mouse", false, "Do not capture mouse events")
	flags.BoolVar(&opts.noKeyboard, "no-keyboard", false, "Do not capture keyboard events")
	flags.DurationVar(&opts.duration, "duration", 0, "Stop after this long (0 waits for the stop hotkey)")
	flags.IntVar(&opts.maxEvents, "max-events", 0, "Maximum events to keep (0 is unlimited)")
	flags.DurationVar(&opts.interval, "interval", 200*time.Millisecond, "Gap between synthetic demo notifications")
	return cmd
}

func (rc *RootCommand) newSource(name string, interval time.Duration) (runnableSource, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case input.SourceSynthetic:
		return input.NewScriptedSource(input.DemoScript(interval), rc.sleep), nil
	case input.SourceStdin:
		return input.NewStreamSource(rc.stdin), nil
	default:
		return nil, fmt.Errorf("unknown capture source %q (want synthetic or stdin)", name)
	}
}

func (rc *RootCommand) record(ctx context.Context, app *AppContext, opts recordOptions, out io.Writer) error {
	cfg := app.Config
	logger := app.Logger.With("component", "record")
	p := newPrinter(out)

	env := input.DetectCaptureEnvironment(opts.source, rc.environ())
	if !env.Available {
		return fmt.Errorf("capture source %s unavailable: %s", opts.source, env.Message)
	}

	source, err := rc.newSource(opts.source, opts.interval)
	if err != nil {
		return err
	}

	bindings, err := hotkey.ParseBindings(cfg.Hotkeys.Record, cfg.Hotkeys.Play, cfg.Hotkeys.Stop)
	if err != nil {
		return err
	}
	watcher := hotkey.NewWatcher(bindings)
	sub, err := watcher.Attach(source)
	if err != nil {
		return fmt.Errorf("attach hotkey watcher: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	session := capture.NewSession(source, capture.Options{
		Filter:    events.NewFilter(cfg.Capture.MouseMoves, cfg.Capture.MouseClicks, cfg.Capture.MouseScroll, cfg.Capture.Keyboard),
		MaxEvents: opts.maxEvents,
		Logger:    logger,
		Metrics:   app.Metrics,
	})
	if err := session.Start(!opts.noMouse, !opts.noKeyboard); err != nil {
		return err
	}
	p.info("Recording from %s; press %s to stop.", opts.source, bindings.Stop)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var timeout <-chan time.Time
	if opts.duration > 0 {
		timer := time.NewTimer(opts.duration)
		defer timer.Stop()
		timeout = timer.C
	}

	sourceDone := make(chan error, 1)
	go func() { sourceDone <- source.Run(runCtx) }()

	reason, sourceErr := waitForStop(ctx, watcher.Actions(), sourceDone, timeout)
	session.Stop()
	cancel()
	if reason != "source finished" {
		// A stream source blocked on a read cannot observe cancellation.
		select {
		case sourceErr = <-sourceDone:
		case <-time.After(time.Second):
		}
	}
	if sourceErr != nil && !errors.Is(sourceErr, context.Canceled) {
		logger.Warn("capture source failed", "error", sourceErr)
	}
	logger.Info("recording stopped", "reason", reason, "events", len(session.Events()), "dropped", session.Dropped())

	name := opts.name
	if name == "" {
		name = "recording_" + time.Now().Format("20060102_150405")
	}
	rec := session.ToRecording(name)
	if dropped := session.Dropped(); dropped > 0 {
		p.warn("Event limit reached: %d events were not kept.", dropped)
	}

	store, err := app.Store()
	if err != nil {
		return err
	}
	var path string
	switch {
	case opts.output != "":
		path = store.Resolve(opts.output)
		if err := store.SaveAs(path, rec); err != nil {
			return err
		}
	case cfg.Capture.AutoSave:
		if path, err = store.Save(rec); err != nil {
			return err
		}
	default:
		p.warn("Captured %d events in %s; not saved (auto_save disabled, pass --output).", rec.TotalEvents, formatSeconds(rec.Duration))
		return nil
	}
	p.success("Saved %d events (%s) to %s", rec.TotalEvents, formatSeconds(rec.Duration), path)
	return nil
}

// waitForStop blocks until the stop hotkey, the end of the source, the
// timeout or cancellation, and names which one happened.
func waitForStop(ctx context.Context, actions <-chan hotkey.Action, sourceDone <-chan error, timeout <-chan time.Time) (string, error) {
	for {
		select {
		case action := <-actions:
			if action == hotkey.ActionStop {
				return "stop hotkey", nil
			}
		case err := <-sourceDone:
			return "source finished", err
		case <-timeout:
			return "duration elapsed", nil
		case <-ctx.Done():
			return "interrupted", nil
		}
	}
}
