// Package input defines the capability boundary between the recorder and the
// platform: a Source that delivers raw pointer and keyboard notifications and
// an Injector that posts synthetic input. Platform-specific implementations
// live outside this module; the adapters here cover scripted timelines,
// JSON-lines pipes to external helpers, dry runs and xdotool.
package input

import (
	"errors"

	"github.com/offlinefirst/input-replay/pkg/events"
)

// ErrAlreadyRunning is returned when starting a session that is active.
var ErrAlreadyRunning = errors.New("session already running")

// Listener receives raw notifications from a Source. Implementations must be
// safe for calls concurrent with their own methods.
type Listener interface {
	OnMove(x, y int)
	OnClick(x, y int, button events.Button, pressed bool)
	OnScroll(x, y, dx, dy int)
	OnKeyPress(key string)
	OnKeyRelease(key string)
}

// Subscription detaches a listener from its Source.
type Subscription interface {
	Unsubscribe() error
}

// Source is the input capture capability.
type Source interface {
	// Subscribe attaches l to notifications of the given device class.
	Subscribe(class events.DeviceClass, l Listener) (Subscription, error)
}

// Injector is the pointer and keyboard injection capability.
type Injector interface {
	SetPosition(x, y int) error
	PressButton(button events.Button) error
	ReleaseButton(button events.Button) error
	Scroll(dx, dy int) error
	PressKey(key Key) error
	ReleaseKey(key Key) error
}

// ListenerFuncs adapts optional function fields to the Listener interface.
// Nil fields ignore the notification.
type ListenerFuncs struct {
	Move       func(x, y int)
	Click      func(x, y int, button events.Button, pressed bool)
	ScrollFunc func(x, y, dx, dy int)
	KeyPress   func(key string)
	KeyRelease func(key string)
}

func (f ListenerFuncs) OnMove(x, y int) {
	if f.Move != nil {
		f.Move(x, y)
	}
}

func (f ListenerFuncs) OnClick(x, y int, button events.Button, pressed bool) {
	if f.Click != nil {
		f.Click(x, y, button, pressed)
	}
}

func (f ListenerFuncs) OnScroll(x, y, dx, dy int) {
	if f.ScrollFunc != nil {
		f.ScrollFunc(x, y, dx, dy)
	}
}

func (f ListenerFuncs) OnKeyPress(key string) {
	if f.KeyPress != nil {
		f.KeyPress(key)
	}
}

func (f ListenerFuncs) OnKeyRelease(key string) {
	if f.KeyRelease != nil {
		f.KeyRelease(key)
	}
}
