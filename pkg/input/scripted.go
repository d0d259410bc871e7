package input

import (
	"context"
	"time"

	"github.com/offlinefirst/input-replay/pkg/events"
)

// Step is one entry of a scripted timeline.
type Step struct {
	// Delay is waited before the notification is published.
	Delay  time.Duration
	Notify Notification
}

// ScriptedSource publishes a fixed timeline of notifications. It stands in for
// a platform listener on hosts without one and in automated tests.
type ScriptedSource struct {
	hub
	steps   []Step
	sleeper func(context.Context, time.Duration) error
}

// NewScriptedSource returns a source that will publish steps when Run is called.
// A nil sleeper waits on real timers.
func NewScriptedSource(steps []Step, sleeper func(context.Context, time.Duration) error) *ScriptedSource {
	if sleeper == nil {
		sleeper = Sleep
	}
	return &ScriptedSource{steps: append([]Step(nil), steps...), sleeper: sleeper}
}

// Run publishes the timeline once, returning early when ctx is cancelled.
func (s *ScriptedSource) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.sleeper(ctx, step.Delay); err != nil {
			return err
		}
		if err := s.publish(step.Notify); err != nil {
			return err
		}
	}
	return nil
}

// DemoScript is a short deterministic session: pointer travel, a left click,
// a scroll, typing "hi" and finally the escape key.
func DemoScript(interval time.Duration) []Step {
	return []Step{
		{Delay: 0, Notify: Notification{Type: events.KindMove, X: 100, Y: 100}},
		{Delay: interval, Notify: Notification{Type: events.KindMove, X: 180, Y: 140}},
		{Delay: interval, Notify: Notification{Type: events.KindMove, X: 240, Y: 200}},
		{Delay: interval, Notify: Notification{Type: events.KindClick, X: 240, Y: 200, Button: events.ButtonLeft, Pressed: true}},
		{Delay: interval / 2, Notify: Notification{Type: events.KindClick, X: 240, Y: 200, Button: events.ButtonLeft, Pressed: false}},
		{Delay: interval, Notify: Notification{Type: events.KindScroll, X: 240, Y: 200, DX: 0, DY: -2}},
		{Delay: interval, Notify: Notification{Type: events.KindKeyPress, Key: "h"}},
		{Delay: interval / 2, Notify: Notification{Type: events.KindKeyRelease, Key: "h"}},
		{Delay: interval / 2, Notify: Notification{Type: events.KindKeyPress, Key: "i"}},
		{Delay: interval / 2, Notify: Notification{Type: events.KindKeyRelease, Key: "i"}},
		{Delay: interval, Notify: Notification{Type: events.KindKeyPress, Key: "esc"}},
		{Delay: interval / 2, Notify: Notification{Type: events.KindKeyRelease, Key: "esc"}},
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
