package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/offlinefirst/input-replay/pkg/replay"
)

// printer writes human-facing status lines, colouring them only when the
// destination is an interactive terminal.
type printer struct {
	w   io.Writer
	tty bool

	progressShown bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, tty: isTerminal(w) && !color.NoColor}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *printer) paint(attr color.Attribute, format string, args ...any) {
	c := color.New(attr)
	if p.tty {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	c.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) info(format string, args ...any)    { p.paint(color.FgCyan, format, args...) }
func (p *printer) success(format string, args ...any) { p.paint(color.FgGreen, format, args...) }
func (p *printer) warn(format string, args ...any)    { p.paint(color.FgYellow, format, args...) }

// progress redraws a single status line. Non-interactive writers only get
// the final summary.
func (p *printer) progress(pr replay.Progress, remaining time.Duration) {
	if !p.tty {
		return
	}
	const width = 30
	filled := int(pr.Overall() * width)
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
	fmt.Fprintf(p.w, "\r[%s] %5.1f%%  repetition %d/%d  eta %s ", bar, pr.Overall()*100, pr.Repetition, pr.Repetitions, formatSeconds(remaining))
	p.progressShown = true
}

func (p *printer) endProgress() {
	if p.progressShown {
		fmt.Fprintln(p.w)
		p.progressShown = false
	}
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	return tw
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// withMetrics runs fn, serving the Prometheus registry alongside it when
// metrics.address is configured. A failing listener cancels fn's context.
func withMetrics(ctx context.Context, app *AppContext, fn func(context.Context) error) error {
	addr := app.Config.Metrics.Address
	if addr == "" {
		return fn(ctx)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		app.Logger.Info("metrics endpoint listening", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		return fn(gctx)
	})
	return group.Wait()
}
