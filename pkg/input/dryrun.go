package input

import (
	"io"
	"log/slog"

	"github.com/offlinefirst/input-replay/pkg/events"
)

// LogInjector performs no injection; it logs each action at debug level.
type LogInjector struct {
	logger *slog.Logger
}

// NewLogInjector returns a dry-run injector. A nil logger discards output.
func NewLogInjector(logger *slog.Logger) *LogInjector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogInjector{logger: logger}
}

func (l *LogInjector) SetPosition(x, y int) error {
	l.logger.Debug("dry-run inject", "op", "move", "x", x, "y", y)
	return nil
}

func (l *LogInjector) PressButton(button events.Button) error {
	l.logger.Debug("dry-run inject", "op", "button_down", "button", string(button))
	return nil
}

func (l *LogInjector) ReleaseButton(button events.Button) error {
	l.logger.Debug("dry-run inject", "op", "button_up", "button", string(button))
	return nil
}

func (l *LogInjector) Scroll(dx, dy int) error {
	l.logger.Debug("dry-run inject", "op", "scroll", "dx", dx, "dy", dy)
	return nil
}

func (l *LogInjector) PressKey(key Key) error {
	l.logger.Debug("dry-run inject", "op", "key_down", "key", key.String())
	return nil
}

func (l *LogInjector) ReleaseKey(key Key) error {
	l.logger.Debug("dry-run inject", "op", "key_up", "key", key.String())
	return nil
}
