// Package replay re-injects recorded events on a background worker,
// preserving the recorded gaps scaled by a speed multiplier.
//
// Stop is cooperative: the worker checks for it before every repetition and
// every event, so a stop issued during a long inter-event gap takes effect
// only once that gap has elapsed. Cancelling the context passed to Play also
// interrupts the gap.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/offlinefirst/input-replay/pkg/events"
	"github.com/offlinefirst/input-replay/pkg/input"
	"github.com/offlinefirst/input-replay/pkg/metrics"
)

var (
	// ErrAlreadyRunning is returned by Play while a worker is active.
	ErrAlreadyRunning = fmt.Errorf("replay: %w", input.ErrAlreadyRunning)
	// ErrInvalidSpeed is returned for speed multipliers that are not > 0.
	ErrInvalidSpeed = errors.New("replay: speed multiplier must be greater than zero")
	// ErrInvalidRepetitions is returned for repetition counts below one.
	ErrInvalidRepetitions = errors.New("replay: repetitions must be at least one")
)

// Progress locates the worker: Fraction is the share of the current
// repetition's events already injected.
type Progress struct {
	Repetition  int
	Repetitions int
	Fraction    float64
}

// Overall is the share of the whole playback completed.
func (p Progress) Overall() float64 {
	if p.Repetitions <= 0 {
		return 0
	}
	return (float64(p.Repetition-1) + p.Fraction) / float64(p.Repetitions)
}

// Remaining estimates the time left given the recording duration and speed.
func (p Progress) Remaining(duration time.Duration, speed float64) time.Duration {
	if speed <= 0 || p.Repetitions <= 0 {
		return 0
	}
	perRep := float64(duration) / speed
	left := perRep*(1-p.Fraction) + float64(p.Repetitions-p.Repetition)*perRep
	if left < 0 {
		left = 0
	}
	return time.Duration(left)
}

// Result summarises a finished playback.
type Result struct {
	// Repetitions counts repetitions that injected every event.
	Repetitions int
	Injected    int
	Skipped     int
	Failed      int
	Cancelled   bool
	Elapsed     time.Duration
}

// Options wires a Session's collaborators.
type Options struct {
	Injector input.Injector
	Logger   *slog.Logger
	// Sleeper waits between events; it defaults to input.Sleep.
	Sleeper func(ctx context.Context, d time.Duration) error
	Clock   func() time.Time
	Metrics *metrics.Metrics
}

// Session replays one event list. It may be played again after a playback
// completes but never runs two workers at once.
type Session struct {
	events   []events.Event
	speed    float64
	injector input.Injector
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	clock    func() time.Time
	metrics  *metrics.Metrics

	mu         sync.Mutex
	running    bool
	controller *Controller
	done       chan struct{}
}

// NewSession prepares a playback of evts at speed. The event slice is read
// but never modified.
func NewSession(evts []events.Event, speed float64, opts Options) (*Session, error) {
	if !(speed > 0) || math.IsInf(speed, 0) {
		return nil, ErrInvalidSpeed
	}
	if opts.Injector == nil {
		return nil, errors.New("replay: injector must be provided")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sleep := opts.Sleeper
	if sleep == nil {
		sleep = input.Sleep
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	closed := make(chan struct{})
	close(closed)
	return &Session{
		events:   evts,
		speed:    speed,
		injector: opts.Injector,
		logger:   logger,
		sleep:    sleep,
		clock:    clock,
		metrics:  opts.Metrics,
		done:     closed,
	}, nil
}

// Speed returns the multiplier applied to recorded gaps.
func (s *Session) Speed() float64 { return s.speed }

// Play starts a worker that replays the events repetitions times and returns
// without waiting. onProgress runs on the worker; onComplete runs on the
// worker exactly once, after Running reports false. Either may be nil.
func (s *Session) Play(ctx context.Context, repetitions int, onProgress func(Progress), onComplete func(Result)) error {
	if repetitions < 1 {
		return ErrInvalidRepetitions
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	controller := NewController()
	done := make(chan struct{})
	s.running = true
	s.controller = controller
	s.done = done
	s.mu.Unlock()

	if onProgress == nil {
		onProgress = func(Progress) {}
	}
	if onComplete == nil {
		onComplete = func(Result) {}
	}

	s.metrics.PlaybackStarted()
	s.logger.Info("replay started", "events", len(s.events), "speed", s.speed, "repetitions", repetitions)
	go s.run(ctx, controller, done, repetitions, onProgress, onComplete)
	return nil
}

func (s *Session) run(ctx context.Context, controller *Controller, done chan struct{}, repetitions int, onProgress func(Progress), onComplete func(Result)) {
	started := s.clock()
	var result Result

	defer func() {
		result.Elapsed = s.clock().Sub(started)
		outcome := "completed"
		if result.Cancelled {
			outcome = "cancelled"
		}
		s.metrics.PlaybackFinished(outcome, result.Elapsed)
		s.logger.Info("replay finished",
			"outcome", outcome,
			"repetitions", result.Repetitions,
			"injected", result.Injected,
			"skipped", result.Skipped,
			"failed", result.Failed,
			"elapsed", result.Elapsed,
		)

		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		onComplete(result)
		close(done)
	}()

	total := len(s.events)
	for r := 1; r <= repetitions; r++ {
		if err := controller.Wait(ctx); err != nil {
			result.Cancelled = true
			return
		}
		onProgress(Progress{Repetition: r, Repetitions: repetitions})

		var last time.Duration
		for i, ev := range s.events {
			if err := controller.Wait(ctx); err != nil {
				result.Cancelled = true
				return
			}
			if delay := s.delay(ev.At() - last); delay > 0 {
				if err := s.sleep(ctx, delay); err != nil {
					result.Cancelled = true
					return
				}
			}
			s.inject(i, ev, &result)
			last = ev.At()
			onProgress(Progress{Repetition: r, Repetitions: repetitions, Fraction: float64(i+1) / float64(total)})
		}
		result.Repetitions++
	}
}

// delay scales a recorded gap; negative gaps become zero.
func (s *Session) delay(gap time.Duration) time.Duration {
	if gap <= 0 {
		return 0
	}
	return time.Duration(float64(gap) / s.speed)
}

func (s *Session) inject(index int, ev events.Event, result *Result) {
	kind := string(ev.Kind())
	err := Dispatch(s.injector, ev)
	switch {
	case err == nil:
		result.Injected++
		s.metrics.EventInjected(kind)
	case errors.Is(err, ErrUnresolvableKey):
		result.Skipped++
		s.metrics.KeyUnresolved()
		s.logger.Warn("skipping event", "index", index, "type", kind, "error", err)
	default:
		result.Failed++
		s.metrics.InjectionFailed(kind)
		s.logger.Warn("injection failed", "index", index, "type", kind, "error", err)
	}
}

// Stop asks the worker to finish at its next cancellation point. It does not
// wait; calling it on an idle session does nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	controller := s.controller
	running := s.running
	s.mu.Unlock()
	if running && controller != nil {
		controller.Stop()
	}
}

// Pause holds the worker before its next event.
func (s *Session) Pause() {
	s.mu.Lock()
	controller := s.controller
	s.mu.Unlock()
	if controller != nil {
		controller.Pause()
	}
}

// Resume releases a paused worker.
func (s *Session) Resume() {
	s.mu.Lock()
	controller := s.controller
	s.mu.Unlock()
	if controller != nil {
		controller.Resume()
	}
}

// State reports StateIdle when no worker is active, otherwise the worker's
// control state.
func (s *Session) State() State {
	s.mu.Lock()
	running := s.running
	controller := s.controller
	s.mu.Unlock()
	if !running || controller == nil {
		return StateIdle
	}
	return controller.State()
}

// Running reports whether a worker is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Done is closed when the most recently started worker has finished and its
// completion callback has returned.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Wait blocks until the current worker finishes or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
