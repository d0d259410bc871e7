package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/offlinefirst/input-replay/pkg/input"
)

func (rc *RootCommand) newDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check capture and injection backends on this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			environ := rc.environ()
			capture := input.DetectCaptureEnvironment(app.Config.Capture.Source, environ)
			injection := input.DetectInjectionEnvironment(app.Config.Playback.Injector, environ)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s\nRecordings: %s\n", app.Config.Source, app.Config.Paths.RecordingsDir)

			tw := newTable(out)
			tw.AppendHeader(table.Row{"Role", "Backend", "Available", "Permission", "Detail"})
			for _, row := range []struct {
				role string
				env  input.Environment
			}{{"capture", capture}, {"injection", injection}} {
				detail := row.env.Message
				if row.env.Guidance != "" {
					detail += " (" + row.env.Guidance + ")"
				}
				tw.AppendRow(table.Row{row.role, row.env.Provider, yesNo(row.env.Available), row.env.Permission, detail})
			}
			tw.Render()

			p := newPrinter(out)
			if capture.Available && injection.Available {
				p.success("Ready to record and replay.")
				return nil
			}
			p.warn("Some backends are unavailable; see the table above.")
			app.Logger.Warn("doctor found unavailable backends", "capture", capture.Available, "injection", injection.Available)
			return nil
		},
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
