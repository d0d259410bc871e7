package replay

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned by Controller.Wait once Stop has been requested.
var ErrStopped = errors.New("replay stopped")

// State is the control state of a playback.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StatePaused   State = "paused"
	StateStopping State = "stopping"
)

// Controller carries pause, resume and stop from the foreground to one
// playback worker, which consults it at every cancellation point.
//
// The stop signal is a channel closed at most once; pausing installs a fresh
// gate channel that Resume closes.
type Controller struct {
	stopOnce sync.Once
	stopped  chan struct{}

	mu   sync.Mutex
	gate chan struct{}
}

// NewController constructs a controller in the running state.
func NewController() *Controller {
	return &Controller{stopped: make(chan struct{})}
}

// Pause holds the worker at its next cancellation point.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gate == nil {
		c.gate = make(chan struct{})
	}
}

// Resume releases a paused worker. It is a no-op when not paused.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gate != nil {
		close(c.gate)
		c.gate = nil
	}
}

// Stop requests cancellation. Repeated calls have no further effect.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stopped) })
}

// Stopped reports whether Stop has been called.
func (c *Controller) Stopped() bool {
	select {
	case <-c.stopped:
		return true
	default:
		return false
	}
}

// Wait passes straight through while running, blocks while paused and
// returns ErrStopped after Stop. A done ctx ends the wait with ctx.Err().
func (c *Controller) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		if c.Stopped() {
			return ErrStopped
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		c.mu.Lock()
		gate := c.gate
		c.mu.Unlock()
		if gate == nil {
			return nil
		}

		select {
		case <-c.stopped:
			return ErrStopped
		case <-ctx.Done():
			return ctx.Err()
		case <-gate:
		}
	}
}

// State reports running, paused or stopping; stop wins over pause.
func (c *Controller) State() State {
	if c.Stopped() {
		return StateStopping
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gate != nil {
		return StatePaused
	}
	return StateRunning
}
