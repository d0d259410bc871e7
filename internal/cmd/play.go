package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/input-replay/pkg/input"
	"github.com/offlinefirst/input-replay/pkg/recording"
	"github.com/offlinefirst/input-replay/pkg/replay"
)

type playOptions struct {
	speed       float64
	repetitions int
	delay       float64
	loop        bool
	injector    string
}

// resolve fills options the user did not pass from the playback config.
func (o *playOptions) resolve(cmd *cobra.Command, app *AppContext) {
	flags := cmd.Flags()
	if !flags.Changed("speed") {
		o.speed = app.Config.Playback.DefaultSpeed
	}
	if !flags.Changed("repetitions") {
		o.repetitions = app.Config.Playback.Repetitions
	}
	if flags.Lookup("delay") != nil && !flags.Changed("delay") {
		o.delay = app.Config.Playback.InitialDelaySeconds
	}
	if !flags.Changed("injector") {
		o.injector = app.Config.Playback.Injector
	}
}

func addPlaybackFlags(cmd *cobra.Command, opts *playOptions) {
	flags := cmd.Flags()
	flags.Float64VarP(&opts.speed, "speed", "s", 1.0, "Speed multiplier applied to recorded gaps")
	flags.IntVarP(&opts.repetitions, "repetitions", "r", 1, "Number of times to replay the recording")
	flags.StringVar(&opts.injector, "injector", input.InjectorDryRun, "Injection backend (dry-run, stdout, xdotool)")
}

func (rc *RootCommand) newPlayCommand() *cobra.Command {
	var opts playOptions
	cmd := &cobra.Command{
		Use:   "play <recording>",
		Short: "Replay a saved recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			opts.resolve(cmd, app)

			rec, injector, status, err := rc.preparePlayback(app, args[0], opts.injector, cmd)
			if err != nil {
				return err
			}
			return withMetrics(cmd.Context(), app, func(ctx context.Context) error {
				return rc.play(ctx, app, rec, injector, opts, status)
			})
		},
	}
	addPlaybackFlags(cmd, &opts)
	cmd.Flags().Float64Var(&opts.delay, "delay", 3, "Seconds to wait before the first event")
	cmd.Flags().BoolVar(&opts.loop, "loop", false, "Keep replaying until interrupted")
	return cmd
}

// preparePlayback loads the recording and opens the injector. Status output
// moves to stderr when the stdout injector owns stdout.
func (rc *RootCommand) preparePlayback(app *AppContext, name, injectorName string, cmd *cobra.Command) (recording.Recording, input.Injector, io.Writer, error) {
	store, err := app.Store()
	if err != nil {
		return recording.Recording{}, nil, nil, err
	}
	rec, err := store.Load(store.Resolve(name))
	if err != nil {
		return recording.Recording{}, nil, nil, err
	}

	env := input.DetectInjectionEnvironment(injectorName, rc.environ())
	if !env.Available {
		return recording.Recording{}, nil, nil, fmt.Errorf("injector %s unavailable: %s", injectorName, env.Message)
	}
	injector, err := rc.newInjector(injectorName, cmd.OutOrStdout(), app.Logger.With("component", "injector"))
	if err != nil {
		return recording.Recording{}, nil, nil, err
	}

	status := cmd.OutOrStdout()
	if injectorName == input.InjectorStdout {
		status = cmd.ErrOrStderr()
	}
	return rec, injector, status, nil
}

func (rc *RootCommand) play(ctx context.Context, app *AppContext, rec recording.Recording, injector input.Injector, opts playOptions, out io.Writer) error {
	p := newPrinter(out)
	if len(rec.Events) == 0 {
		p.warn("Recording %q has no events; nothing to replay.", rec.Name)
		return nil
	}

	session, err := replay.NewSession(rec.Events, opts.speed, replay.Options{
		Injector: injector,
		Logger:   app.Logger.With("component", "replay"),
		Sleeper:  rc.sleep,
		Metrics:  app.Metrics,
	})
	if err != nil {
		return err
	}

	if opts.delay > 0 {
		delay := time.Duration(opts.delay * float64(time.Second))
		p.info("Replaying %q in %s; focus the target window.", rec.Name, formatSeconds(delay))
		if err := rc.sleep(ctx, delay); err != nil {
			p.warn("Playback cancelled before it started.")
			return nil
		}
	}

	for pass := 1; ; pass++ {
		result, err := playOnce(ctx, session, opts.repetitions, rec.Duration, p)
		if err != nil {
			return err
		}
		reportResult(p, result)
		if !opts.loop || result.Cancelled || ctx.Err() != nil {
			return nil
		}
		app.Logger.Debug("loop pass finished", "pass", pass)
	}
}

// playOnce runs one Play call to completion, drawing progress as it goes.
func playOnce(ctx context.Context, session *replay.Session, repetitions int, duration time.Duration, p *printer) (replay.Result, error) {
	reporter := replay.NewReporter(16)
	if err := session.Play(ctx, repetitions, reporter.OnProgress, reporter.OnComplete); err != nil {
		return replay.Result{}, err
	}
	var result replay.Result
	for update := range reporter.Updates() {
		switch {
		case update.Progress != nil:
			p.progress(*update.Progress, update.Progress.Remaining(duration, session.Speed()))
		case update.Result != nil:
			result = *update.Result
		}
	}
	p.endProgress()
	return result, nil
}

func reportResult(p *printer, res replay.Result) {
	summary := fmt.Sprintf("%d repetition(s), %d injected, %d skipped, %d failed in %s",
		res.Repetitions, res.Injected, res.Skipped, res.Failed, formatSeconds(res.Elapsed))
	switch {
	case res.Cancelled:
		p.warn("Playback stopped: %s", summary)
	case res.Failed > 0 || res.Skipped > 0:
		p.warn("Playback finished with problems: %s", summary)
	default:
		p.success("Playback finished: %s", summary)
	}
}
