package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/offlinefirst/input-replay/pkg/hotkey"
	"github.com/offlinefirst/input-replay/pkg/input"
)

const (
	DefaultFileName = "config.yaml"
	// EnvPrefix namespaces environment overrides, e.g. REPLAYCTL_PLAYBACK_DEFAULT_SPEED.
	EnvPrefix = "REPLAYCTL"
)

// Config captures the user-adjustable knobs for recording and playback.
type Config struct {
	Paths     PathsConfig     `mapstructure:"paths" yaml:"paths"`
	Capture   CaptureConfig   `mapstructure:"capture" yaml:"capture"`
	Playback  PlaybackConfig  `mapstructure:"playback" yaml:"playback"`
	Hotkeys   HotkeysConfig   `mapstructure:"hotkeys" yaml:"hotkeys"`
	Retention RetentionConfig `mapstructure:"retention" yaml:"retention"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `mapstructure:"-" yaml:"-"`
}

// PathsConfig controls filesystem locations used by the CLI.
type PathsConfig struct {
	RecordingsDir string `mapstructure:"recordings_dir" yaml:"recordings_dir"`
}

// CaptureConfig selects what a recording session keeps.
type CaptureConfig struct {
	MouseMoves  bool   `mapstructure:"mouse_moves" yaml:"mouse_moves"`
	MouseClicks bool   `mapstructure:"mouse_clicks" yaml:"mouse_clicks"`
	MouseScroll bool   `mapstructure:"mouse_scroll" yaml:"mouse_scroll"`
	Keyboard    bool   `mapstructure:"keyboard" yaml:"keyboard"`
	MaxEvents   int    `mapstructure:"max_events" yaml:"max_events"`
	Source      string `mapstructure:"source" yaml:"source"`
	AutoSave    bool   `mapstructure:"auto_save" yaml:"auto_save"`
}

// PlaybackConfig holds replay defaults.
type PlaybackConfig struct {
	DefaultSpeed        float64 `mapstructure:"default_speed" yaml:"default_speed"`
	Repetitions         int     `mapstructure:"repetitions" yaml:"repetitions"`
	InitialDelaySeconds float64 `mapstructure:"initial_delay_seconds" yaml:"initial_delay_seconds"`
	Injector            string  `mapstructure:"injector" yaml:"injector"`
}

// HotkeysConfig names the global recorder hotkeys.
type HotkeysConfig struct {
	Record string `mapstructure:"record" yaml:"record"`
	Play   string `mapstructure:"play" yaml:"play"`
	Stop   string `mapstructure:"stop" yaml:"stop"`
}

// RetentionConfig bounds the recordings directory during cleanup.
type RetentionConfig struct {
	MaxFiles int `mapstructure:"max_files" yaml:"max_files"`
	MaxDays  int `mapstructure:"max_days" yaml:"max_days"`
}

// MetricsConfig enables the Prometheus endpoint when Address is set.
type MetricsConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			RecordingsDir: "recordings",
		},
		Capture: CaptureConfig{
			MouseMoves:  true,
			MouseClicks: true,
			MouseScroll: true,
			Keyboard:    true,
			MaxEvents:   50000,
			Source:      input.SourceSynthetic,
			AutoSave:    true,
		},
		Playback: PlaybackConfig{
			DefaultSpeed:        1.0,
			Repetitions:         1,
			InitialDelaySeconds: 3,
			Injector:            input.InjectorDryRun,
		},
		Hotkeys: HotkeysConfig{
			Record: "F9",
			Play:   "F10",
			Stop:   "ESC",
		},
		Retention: RetentionConfig{
			MaxFiles: 50,
			MaxDays:  30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from disk if present, otherwise returning defaults.
// When path is empty, the loader attempts to read ./config.yaml but tolerates
// a missing file. Variables from ./.env and REPLAYCTL_* environment overrides
// are applied on top of the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	v := newViper(cfg)

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		candidate = DefaultFileName
	}

	source := cfg.Source
	if _, err := os.Stat(candidate); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("open config file %q: %w", candidate, err)
		}
		if explicit {
			return cfg, fmt.Errorf("config file %q not found", candidate)
		}
	} else {
		v.SetConfigFile(candidate)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config file %q: %w", candidate, err)
		}
		source = candidate
	}

	if err := v.UnmarshalExact(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.Source = source
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newViper(defaults Config) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("paths.recordings_dir", defaults.Paths.RecordingsDir)
	v.SetDefault("capture.mouse_moves", defaults.Capture.MouseMoves)
	v.SetDefault("capture.mouse_clicks", defaults.Capture.MouseClicks)
	v.SetDefault("capture.mouse_scroll", defaults.Capture.MouseScroll)
	v.SetDefault("capture.keyboard", defaults.Capture.Keyboard)
	v.SetDefault("capture.max_events", defaults.Capture.MaxEvents)
	v.SetDefault("capture.source", defaults.Capture.Source)
	v.SetDefault("capture.auto_save", defaults.Capture.AutoSave)
	v.SetDefault("playback.default_speed", defaults.Playback.DefaultSpeed)
	v.SetDefault("playback.repetitions", defaults.Playback.Repetitions)
	v.SetDefault("playback.initial_delay_seconds", defaults.Playback.InitialDelaySeconds)
	v.SetDefault("playback.injector", defaults.Playback.Injector)
	v.SetDefault("hotkeys.record", defaults.Hotkeys.Record)
	v.SetDefault("hotkeys.play", defaults.Hotkeys.Play)
	v.SetDefault("hotkeys.stop", defaults.Hotkeys.Stop)
	v.SetDefault("retention.max_files", defaults.Retention.MaxFiles)
	v.SetDefault("retention.max_days", defaults.Retention.MaxDays)
	v.SetDefault("metrics.address", defaults.Metrics.Address)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	return v
}

// Validate ensures essential configuration values are present and sensible.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Paths.RecordingsDir) == "" {
		return errors.New("paths.recordings_dir must not be empty")
	}

	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}

	if c.Capture.MaxEvents < 0 {
		return errors.New("capture.max_events must not be negative")
	}
	switch c.Capture.Source {
	case input.SourceSynthetic, input.SourceStdin:
	default:
		return fmt.Errorf("capture.source %q is not one of synthetic, stdin", c.Capture.Source)
	}

	if c.Playback.DefaultSpeed <= 0 {
		return errors.New("playback.default_speed must be positive")
	}
	if c.Playback.Repetitions < 1 {
		return errors.New("playback.repetitions must be at least 1")
	}
	if c.Playback.InitialDelaySeconds < 0 {
		return errors.New("playback.initial_delay_seconds must not be negative")
	}
	switch c.Playback.Injector {
	case input.InjectorDryRun, input.InjectorStdout, input.InjectorXdotool:
	default:
		return fmt.Errorf("playback.injector %q is not one of dry-run, stdout, xdotool", c.Playback.Injector)
	}

	if _, err := hotkey.ParseBindings(c.Hotkeys.Record, c.Hotkeys.Play, c.Hotkeys.Stop); err != nil {
		return fmt.Errorf("hotkeys: %w", err)
	}

	if c.Retention.MaxFiles < 0 {
		return errors.New("retention.max_files must not be negative")
	}
	if c.Retention.MaxDays < 0 {
		return errors.New("retention.max_days must not be negative")
	}
	return nil
}

func (c *Config) normalize() {
	c.Paths.RecordingsDir = filepath.Clean(strings.TrimSpace(c.Paths.RecordingsDir))

	defaults := Default()

	if c.Paths.RecordingsDir == "." || c.Paths.RecordingsDir == "" {
		c.Paths.RecordingsDir = defaults.Paths.RecordingsDir
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Capture.Source = strings.ToLower(strings.TrimSpace(c.Capture.Source))
	c.Playback.Injector = strings.ToLower(strings.TrimSpace(c.Playback.Injector))
	if c.Capture.Source == "" {
		c.Capture.Source = defaults.Capture.Source
	}
	if c.Playback.Injector == "" {
		c.Playback.Injector = defaults.Playback.Injector
	}
	c.Metrics.Address = strings.TrimSpace(c.Metrics.Address)
}

// WriteDefault writes the default configuration as YAML to path. It refuses
// to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if strings.TrimSpace(path) == "" {
		path = DefaultFileName
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %q already exists", path)
		}
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// NormalizeLogLevel validates and lowercases known logging levels.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "console", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}
