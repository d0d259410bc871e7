package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/offlinefirst/input-replay/internal/buildinfo"
	"github.com/offlinefirst/input-replay/pkg/config"
	"github.com/offlinefirst/input-replay/pkg/input"
	"github.com/offlinefirst/input-replay/pkg/logging"
	"github.com/offlinefirst/input-replay/pkg/metrics"
	"github.com/offlinefirst/input-replay/pkg/recording"
)

// AppContext exposes lazily initialised configuration and logging facilities.
type AppContext struct {
	Config   config.Config
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	store *recording.Store
}

// Store opens the recordings directory, creating it on first use.
func (a *AppContext) Store() (*recording.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := recording.NewStore(a.Config.Paths.RecordingsDir, recording.StoreOptions{Logger: a.Logger})
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

type RootCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	stdin      io.Reader
	appCtx     *AppContext
	configPath string
	logLevel   string
	logFormat  string

	// Collaborators swapped in tests.
	sleep       func(ctx context.Context, d time.Duration) error
	environ     func() map[string]string
	newInjector func(name string, out io.Writer, logger *slog.Logger) (input.Injector, error)
}

// NewRootCommand constructs the CLI dispatcher with its subcommands and global flags.
func NewRootCommand() *RootCommand {
	return &RootCommand{
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		stdin:       os.Stdin,
		sleep:       input.Sleep,
		environ:     processEnviron,
		newInjector: defaultInjector,
	}
}

func (rc *RootCommand) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "replayctl",
		Short:         "Record and replay mouse and keyboard input",
		Long:          fmt.Sprintf("replayctl - input recorder and replayer\nVersion: %s", versionString()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(rc.stdout)
	root.SetErr(rc.stderr)
	root.SetIn(rc.stdin)

	flags := root.PersistentFlags()
	flags.StringVar(&rc.configPath, "config", "", "Path to config file (default: ./config.yaml if present)")
	flags.StringVar(&rc.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	flags.StringVar(&rc.logFormat, "log-format", "", "Override log output format (json, console)")

	root.AddCommand(
		rc.newRecordCommand(),
		rc.newPlayCommand(),
		rc.newListCommand(),
		rc.newInspectCommand(),
		rc.newOptimizeCommand(),
		rc.newScheduleCommand(),
		rc.newCleanupCommand(),
		rc.newDoctorCommand(),
		rc.newConfigCommand(),
		rc.newVersionCommand(),
	)
	return root
}

// Execute evaluates the supplied arguments and dispatches to a subcommand.
// SIGINT and SIGTERM cancel the command's context.
func (rc *RootCommand) Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := rc.command()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(rc.stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func (rc *RootCommand) ensureAppContext() (*AppContext, error) {
	if rc.appCtx != nil {
		return rc.appCtx, nil
	}

	cfg, err := config.Load(rc.configPath)
	if err != nil {
		return nil, err
	}

	if rc.logLevel != "" {
		lvl, err := config.NormalizeLogLevel(rc.logLevel)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Level = lvl
	}
	if rc.logFormat != "" {
		format, err := config.NormalizeFormat(rc.logFormat)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Format = format
	}

	logger, err := logging.FromConfig(cfg, rc.stderr)
	if err != nil {
		return nil, err
	}

	logger.Info("configuration loaded", "source", cfg.Source, "recordings_dir", cfg.Paths.RecordingsDir)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rc.appCtx = &AppContext{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics.MustNewMetrics(registry),
		Registry: registry,
	}
	return rc.appCtx, nil
}

func defaultInjector(name string, out io.Writer, logger *slog.Logger) (input.Injector, error) {
	switch name {
	case input.InjectorDryRun:
		return input.NewLogInjector(logger), nil
	case input.InjectorStdout:
		return input.NewStreamInjector(out), nil
	case input.InjectorXdotool:
		injector, err := input.NewXdotoolInjector("")
		if err != nil {
			return nil, err
		}
		return injector, nil
	default:
		return nil, fmt.Errorf("unknown injector %q (want dry-run, stdout or xdotool)", name)
	}
}

func processEnviron() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok {
			env[key] = value
		}
	}
	return env
}

func versionString() string {
	v := buildinfo.Version()
	if rev := buildinfo.Revision(); rev != "" {
		v += " " + rev
	}
	return fmt.Sprintf("%s (go%s/%s)", v, runtimeVersion(), runtimeGOOS())
}

// runtimeVersion is extracted for testability.
var runtimeVersion = func() string { return strings.TrimPrefix(runtime.Version(), "go") }

// runtimeGOOS is extracted for testability.
var runtimeGOOS = func() string { return runtime.GOOS }
