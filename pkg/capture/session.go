// Package capture records live pointer and keyboard notifications into an
// ordered list of timestamped events.
//
// A process should run one Session at a time: platform sources deliver every
// notification to every subscriber, so two concurrent sessions would record
// the same input twice. The constraint is not enforced.
package capture

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/offlinefirst/input-replay/pkg/events"
	"github.com/offlinefirst/input-replay/pkg/input"
	"github.com/offlinefirst/input-replay/pkg/metrics"
	"github.com/offlinefirst/input-replay/pkg/recording"
)

var (
	// ErrAlreadyRunning is returned by Start on an active session.
	ErrAlreadyRunning = fmt.Errorf("capture: %w", input.ErrAlreadyRunning)
	// ErrNoListeners is returned by Start when no device class was requested.
	ErrNoListeners = errors.New("capture: no device class requested")
)

// Options tunes a Session. The zero value records every kind without a cap.
type Options struct {
	Filter events.Filter
	// MaxEvents caps the number of recorded events; zero means unlimited.
	MaxEvents int
	Clock     func() time.Time
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Session records events from an input.Source between Start and Stop.
type Session struct {
	source  input.Source
	opts    Options
	clock   func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	active     bool
	recording  bool
	generation uint64 // bumped by Stop
	classes    map[events.DeviceClass]bool
	start      time.Time
	events     []events.Event
	dropped    int
	subs       []input.Subscription
}

// NewSession constructs an idle session reading from source.
func NewSession(source input.Source, opts Options) *Session {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		source:  source,
		opts:    opts,
		clock:   clock,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Start clears previously captured events and attaches listeners for the
// requested device classes. When a listener cannot be attached the session
// keeps its previous events and stays idle. A Stop issued while listeners
// are still attaching wins: Start detaches them and returns nil.
func (s *Session) Start(captureMouse, captureKeys bool) error {
	if !captureMouse && !captureKeys {
		return ErrNoListeners
	}
	if s.source == nil {
		return errors.New("capture: input source must be provided")
	}

	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.active = true
	gen := s.generation
	s.mu.Unlock()

	classes := map[events.DeviceClass]bool{
		events.DeviceMouse:    captureMouse,
		events.DeviceKeyboard: captureKeys,
	}
	var subs []input.Subscription
	for _, class := range []events.DeviceClass{events.DeviceMouse, events.DeviceKeyboard} {
		if !classes[class] {
			continue
		}
		sub, err := s.source.Subscribe(class, &listener{session: s, class: class})
		if err != nil {
			s.detach(subs)
			s.mu.Lock()
			if s.generation == gen {
				s.active = false
			}
			s.mu.Unlock()
			return fmt.Errorf("capture: attach %s listener: %w", class, err)
		}
		subs = append(subs, sub)
	}

	s.mu.Lock()
	if s.generation != gen {
		// Stop ran while listeners were attaching.
		s.mu.Unlock()
		s.detach(subs)
		s.logger.Info("capture stopped before start completed")
		return nil
	}
	s.events = nil
	s.dropped = 0
	s.classes = classes
	s.subs = subs
	s.start = s.clock()
	s.recording = true
	s.mu.Unlock()

	s.metrics.RecordingStarted()
	s.logger.Info("capture started", "mouse", captureMouse, "keyboard", captureKeys, "max_events", s.opts.MaxEvents)
	return nil
}

// Stop clears the recording flag and detaches listeners. Stopping an idle
// session does nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.recording = false
	s.generation++
	subs := s.subs
	s.subs = nil
	count := len(s.events)
	dropped := s.dropped
	s.mu.Unlock()

	s.detach(subs)
	s.logger.Info("capture stopped", "events", count, "dropped", dropped)
}

func (s *Session) detach(subs []input.Subscription) {
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn("detach listener", "error", err)
		}
	}
}

// Recording reports whether listener callbacks are currently appending.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Duration is the largest captured timestamp, or zero without events.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return events.Duration(s.events)
}

// Events returns a copy of the captured events in insertion order.
func (s *Session) Events() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Event(nil), s.events...)
}

// Dropped counts events discarded because MaxEvents was reached.
func (s *Session) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// ToRecording snapshots the captured events without stopping the session.
func (s *Session) ToRecording(name string) recording.Recording {
	return recording.New(name, s.Events(), s.clock())
}

// append stamps and stores the event built by mk when the session is
// recording class notifications and kind passes the filter.
func (s *Session) append(class events.DeviceClass, kind events.Kind, mk func(ts time.Duration) events.Event) {
	s.mu.Lock()
	if !s.recording || !s.classes[class] || !s.opts.Filter.Allows(kind) {
		s.mu.Unlock()
		return
	}
	if s.opts.MaxEvents > 0 && len(s.events) >= s.opts.MaxEvents {
		s.dropped++
		s.mu.Unlock()
		s.metrics.EventDropped()
		return
	}
	ts := s.clock().Sub(s.start)
	if ts < 0 {
		ts = 0
	}
	if n := len(s.events); n > 0 {
		if last := s.events[n-1].At(); ts < last {
			ts = last
		}
	}
	s.events = append(s.events, mk(ts))
	s.mu.Unlock()
	s.metrics.EventRecorded(string(kind))
}

// listener adapts platform notifications for one device class.
type listener struct {
	session *Session
	class   events.DeviceClass
}

func (l *listener) OnMove(x, y int) {
	l.session.append(l.class, events.KindMove, func(ts time.Duration) events.Event {
		return events.Move{X: x, Y: y, Timestamp: ts}
	})
}

func (l *listener) OnClick(x, y int, button events.Button, pressed bool) {
	l.session.append(l.class, events.KindClick, func(ts time.Duration) events.Event {
		return events.Click{X: x, Y: y, Button: button, Action: events.ActionFor(pressed), Timestamp: ts}
	})
}

func (l *listener) OnScroll(x, y, dx, dy int) {
	l.session.append(l.class, events.KindScroll, func(ts time.Duration) events.Event {
		return events.Scroll{X: x, Y: y, DX: dx, DY: dy, Timestamp: ts}
	})
}

func (l *listener) OnKeyPress(key string) {
	l.session.append(l.class, events.KindKeyPress, func(ts time.Duration) events.Event {
		return events.KeyPress{Key: key, Timestamp: ts}
	})
}

func (l *listener) OnKeyRelease(key string) {
	l.session.append(l.class, events.KindKeyRelease, func(ts time.Duration) events.Event {
		return events.KeyRelease{Key: key, Timestamp: ts}
	})
}
