package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/offlinefirst/input-replay/pkg/events"
	"github.com/offlinefirst/input-replay/pkg/recording"
)

const listTimeLayout = "2006-01-02 15:04:05"

func (rc *RootCommand) newListCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved recordings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			store, err := app.Store()
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch strings.ToLower(format) {
			case "json":
				type row struct {
					Filename    string  `json:"filename"`
					Name        string  `json:"name"`
					TotalEvents int     `json:"total_events"`
					Duration    float64 `json:"duration"`
					CreatedAt   string  `json:"created_at"`
					Size        int64   `json:"size"`
				}
				rows := make([]row, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, row{
						Filename:    e.Filename,
						Name:        e.Name,
						TotalEvents: e.TotalEvents,
						Duration:    e.Duration.Seconds(),
						CreatedAt:   e.CreatedAt.Format(time.RFC3339),
						Size:        e.Size,
					})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			case "table", "":
			default:
				return fmt.Errorf("unknown format %q (want table or json)", format)
			}

			if len(entries) == 0 {
				fmt.Fprintf(out, "No recordings in %s\n", store.Dir())
				return nil
			}
			tw := newTable(out)
			tw.AppendHeader(table.Row{"File", "Name", "Events", "Duration", "Created", "Size"})
			for _, e := range entries {
				tw.AppendRow(table.Row{e.Filename, e.Name, e.TotalEvents, formatSeconds(e.Duration), e.CreatedAt.Format(listTimeLayout), formatBytes(e.Size)})
			}
			tw.SetColumnConfigs([]table.ColumnConfig{
				{Number: 3, Align: text.AlignRight},
				{Number: 4, Align: text.AlignRight},
				{Number: 6, Align: text.AlignRight},
			})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format (table, json)")
	return cmd
}

func (rc *RootCommand) newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <recording>",
		Short: "Show event statistics for a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			store, err := app.Store()
			if err != nil {
				return err
			}
			rec, err := store.Load(store.Resolve(args[0]))
			if err != nil {
				return err
			}
			renderStatistics(cmd, rec, recording.Analyze(rec))
			return nil
		},
	}
}

func renderStatistics(cmd *cobra.Command, rec recording.Recording, stats recording.Statistics) {
	tw := newTable(cmd.OutOrStdout())
	tw.SetTitle(rec.Name)
	tw.AppendRow(table.Row{"Created", rec.CreatedAt.Format(listTimeLayout)})
	tw.AppendRow(table.Row{"Duration", formatSeconds(stats.Duration)})
	tw.AppendRow(table.Row{"Events", stats.TotalEvents})
	tw.AppendRow(table.Row{"Mouse events", stats.MouseEvents})
	tw.AppendRow(table.Row{"Keyboard events", stats.KeyboardEvents})
	if rec.Optimized {
		tw.AppendRow(table.Row{"Optimized", rec.OptimizedAt.Format(listTimeLayout)})
	}

	tw.AppendSeparator()
	kinds := make([]string, 0, len(stats.ByKind))
	for kind := range stats.ByKind {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		tw.AppendRow(table.Row{kind, stats.ByKind[events.Kind(kind)]})
	}

	tw.AppendSeparator()
	tw.AppendRow(table.Row{"Clicks", fmt.Sprintf("%d (left %d, right %d, middle %d)", stats.Clicks.Total, stats.Clicks.Left, stats.Clicks.Right, stats.Clicks.Middle)})
	if m := stats.Movement; m != nil {
		tw.AppendRow(table.Row{"Distance", fmt.Sprintf("%.1f px total, %.1f px average", m.TotalDistance, m.AverageDistance)})
		tw.AppendRow(table.Row{"Step range", fmt.Sprintf("%.1f - %.1f px", m.MinDistance, m.MaxDistance)})
	}
	if tm := stats.Timing; tm != nil {
		tw.AppendRow(table.Row{"Interval", fmt.Sprintf("%s average, %s - %s", formatSeconds(tm.AverageInterval), formatSeconds(tm.MinInterval), formatSeconds(tm.MaxInterval))})
		tw.AppendRow(table.Row{"Rate", fmt.Sprintf("%.2f events/s", tm.EventsPerSecond)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	tw.Render()
}

func (rc *RootCommand) newOptimizeCommand() *cobra.Command {
	var (
		minDistance   float64
		keepRedundant bool
		output        string
	)
	cmd := &cobra.Command{
		Use:   "optimize <recording>",
		Short: "Drop redundant mouse moves from a recording",
		Long:  "Drop redundant mouse moves from a recording. Without --output the file is rewritten in place after a backup copy is saved.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			store, err := app.Store()
			if err != nil {
				return err
			}
			path := store.Resolve(args[0])
			rec, err := store.Load(path)
			if err != nil {
				return err
			}

			opts := recording.DefaultOptimizeOptions()
			opts.RemoveRedundantMoves = !keepRedundant
			opts.MinMoveDistance = minDistance
			optimized := recording.Optimize(rec, opts)

			p := newPrinter(cmd.OutOrStdout())
			target := path
			if output != "" {
				target = store.Resolve(output)
			} else {
				backup, err := store.Backup(rec, "backup")
				if err != nil {
					return err
				}
				p.info("Backup saved to %s", backup)
			}
			if err := store.SaveAs(target, optimized); err != nil {
				return err
			}

			removed := rec.TotalEvents - optimized.TotalEvents
			app.Logger.Info("recording optimized", "path", target, "before", rec.TotalEvents, "after", optimized.TotalEvents)
			p.success("Optimized %s: %d -> %d events (%d removed)", target, rec.TotalEvents, optimized.TotalEvents, removed)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.Float64Var(&minDistance, "min-distance", 0, "Also drop moves closer than this many pixels to the previous move")
	flags.BoolVar(&keepRedundant, "keep-redundant", false, "Keep moves that repeat the previous position")
	flags.StringVarP(&output, "output", "o", "", "Write the optimized recording here instead of in place")
	return cmd
}

func (rc *RootCommand) newCleanupCommand() *cobra.Command {
	var maxFiles, maxDays int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Apply the retention limits to the recordings directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-files") {
				maxFiles = app.Config.Retention.MaxFiles
			}
			if !cmd.Flags().Changed("max-days") {
				maxDays = app.Config.Retention.MaxDays
			}
			store, err := app.Store()
			if err != nil {
				return err
			}
			removed, err := store.Cleanup(maxFiles, time.Duration(maxDays)*24*time.Hour)
			if err != nil {
				return err
			}
			app.Logger.Info("cleanup finished", "removed", removed, "max_files", maxFiles, "max_days", maxDays)
			newPrinter(cmd.OutOrStdout()).success("Removed %d recording(s) from %s", removed, store.Dir())
			return nil
		},
	}
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "Keep at most this many recordings (0 disables)")
	cmd.Flags().IntVar(&maxDays, "max-days", 0, "Remove recordings older than this many days (0 disables)")
	return cmd
}
