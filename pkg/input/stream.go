package input

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/offlinefirst/input-replay/pkg/events"
)

// StreamSource reads JSON-lines notifications produced by an external hook
// process (one Notification object per line) and publishes them.
type StreamSource struct {
	hub
	r io.Reader
}

// NewStreamSource wraps r.
func NewStreamSource(r io.Reader) *StreamSource {
	return &StreamSource{r: r}
}

// Run publishes notifications until EOF, a decode failure or cancellation.
// Blank lines are ignored.
func (s *StreamSource) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	scanner := bufio.NewScanner(s.r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var n Notification
		if err := json.Unmarshal([]byte(line), &n); err != nil {
			return fmt.Errorf("line %d: decode notification: %w", lineNo, err)
		}
		if err := s.publish(n); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read notifications: %w", err)
	}
	return nil
}

// StreamInjector writes every injected action as a JSON line, for an external
// helper process that owns the platform injection API.
type StreamInjector struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// InjectedAction is the JSON-lines shape written by StreamInjector.
// Coordinates are always present so a zero offset stays distinguishable
// from an absent one.
type InjectedAction struct {
	Op     string        `json:"op"`
	X      int           `json:"x"`
	Y      int           `json:"y"`
	DX     int           `json:"dx"`
	DY     int           `json:"dy"`
	Button events.Button `json:"button,omitempty"`
	Key    string        `json:"key,omitempty"`
}

// NewStreamInjector writes actions to w.
func NewStreamInjector(w io.Writer) *StreamInjector {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &StreamInjector{enc: enc}
}

func (s *StreamInjector) write(action InjectedAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(action); err != nil {
		return fmt.Errorf("write action %s: %w", action.Op, err)
	}
	return nil
}

func (s *StreamInjector) SetPosition(x, y int) error {
	return s.write(InjectedAction{Op: "move", X: x, Y: y})
}

func (s *StreamInjector) PressButton(button events.Button) error {
	return s.write(InjectedAction{Op: "button_down", Button: button})
}

func (s *StreamInjector) ReleaseButton(button events.Button) error {
	return s.write(InjectedAction{Op: "button_up", Button: button})
}

func (s *StreamInjector) Scroll(dx, dy int) error {
	return s.write(InjectedAction{Op: "scroll", DX: dx, DY: dy})
}

func (s *StreamInjector) PressKey(key Key) error {
	return s.write(InjectedAction{Op: "key_down", Key: key.String()})
}

func (s *StreamInjector) ReleaseKey(key Key) error {
	return s.write(InjectedAction{Op: "key_up", Key: key.String()})
}
