package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/input-replay/pkg/replay"
	"github.com/offlinefirst/input-replay/pkg/schedule"
)

func (rc *RootCommand) newScheduleCommand() *cobra.Command {
	var (
		opts playOptions
		spec string
	)
	cmd := &cobra.Command{
		Use:   "schedule <recording>",
		Short: "Replay a recording on a cron timetable until interrupted",
		Example: `  replayctl schedule morning.json --cron "30 9 * * 1-5"
  replayctl schedule auto_save_20240501_093000.json --cron "@every 15m" --speed 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if spec == "" {
				return errors.New("--cron is required")
			}
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			opts.resolve(cmd, app)

			rec, injector, status, err := rc.preparePlayback(app, args[0], opts.injector, cmd)
			if err != nil {
				return err
			}
			if len(rec.Events) == 0 {
				return fmt.Errorf("recording %q has no events", rec.Name)
			}
			logger := app.Logger.With("component", "schedule", "recording", rec.Name)

			session, err := replay.NewSession(rec.Events, opts.speed, replay.Options{
				Injector: injector,
				Logger:   app.Logger.With("component", "replay"),
				Sleeper:  rc.sleep,
				Metrics:  app.Metrics,
			})
			if err != nil {
				return err
			}

			job := func(ctx context.Context) error {
				result, err := playOnce(ctx, session, opts.repetitions, rec.Duration, newPrinter(io.Discard))
				if err != nil {
					return err
				}
				logger.Info("scheduled replay finished",
					"injected", result.Injected, "skipped", result.Skipped, "failed", result.Failed,
					"cancelled", result.Cancelled, "elapsed", result.Elapsed)
				if result.Failed > 0 {
					return fmt.Errorf("%d event(s) failed to inject", result.Failed)
				}
				return nil
			}

			scheduler, err := schedule.New(spec, job, schedule.Options{Location: time.Local, Logger: logger})
			if err != nil {
				return err
			}
			newPrinter(status).info("Replaying %q on %q; next run %s. Press Ctrl-C to stop.",
				rec.Name, spec, scheduler.NextRun().Format(listTimeLayout))

			return withMetrics(cmd.Context(), app, scheduler.Run)
		},
	}
	addPlaybackFlags(cmd, &opts)
	cmd.Flags().StringVar(&spec, "cron", "", `Cron expression (five fields or descriptors such as "@every 10m")`)
	return cmd
}
