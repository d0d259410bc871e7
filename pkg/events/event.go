package events

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind identifies the variant of an Event. The string values double as the
// "type" discriminator of the persisted form.
type Kind string

const (
	KindMove       Kind = "move"
	KindClick      Kind = "click"
	KindScroll     Kind = "scroll"
	KindKeyPress   Kind = "key_press"
	KindKeyRelease Kind = "key_release"
)

// Kinds lists every event kind in a stable order.
var Kinds = []Kind{KindMove, KindClick, KindScroll, KindKeyPress, KindKeyRelease}

// Device reports which device class produces events of this kind.
func (k Kind) Device() DeviceClass {
	switch k {
	case KindKeyPress, KindKeyRelease:
		return DeviceKeyboard
	default:
		return DeviceMouse
	}
}

// DeviceClass groups event kinds by the physical device that emits them.
type DeviceClass string

const (
	DeviceMouse    DeviceClass = "mouse"
	DeviceKeyboard DeviceClass = "keyboard"
)

// Button names a pointer button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// ParseButton maps a persisted button name onto a Button.
func ParseButton(name string) (Button, error) {
	switch Button(strings.ToLower(strings.TrimSpace(name))) {
	case ButtonLeft:
		return ButtonLeft, nil
	case ButtonRight:
		return ButtonRight, nil
	case ButtonMiddle:
		return ButtonMiddle, nil
	default:
		return "", fmt.Errorf("unknown button %q", name)
	}
}

// Action distinguishes the press and release halves of a click.
type Action string

const (
	ActionPress   Action = "press"
	ActionRelease Action = "release"
)

// ParseAction maps a persisted action name onto an Action.
func ParseAction(name string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(name))) {
	case ActionPress:
		return ActionPress, nil
	case ActionRelease:
		return ActionRelease, nil
	default:
		return "", fmt.Errorf("unknown click action %q", name)
	}
}

// ActionFor converts a pressed flag into an Action.
func ActionFor(pressed bool) Action {
	if pressed {
		return ActionPress
	}
	return ActionRelease
}

// Event is one captured input occurrence. The set of implementations is
// closed: Move, Click, Scroll, KeyPress and KeyRelease.
type Event interface {
	Kind() Kind
	// At returns the offset of the event from the start of the capture.
	At() time.Duration
	isEvent()
}

// Move records the pointer reaching a position.
type Move struct {
	X, Y      int
	Timestamp time.Duration
}

// Click records a pointer button being pressed or released at a position.
type Click struct {
	X, Y      int
	Button    Button
	Action    Action
	Timestamp time.Duration
}

// Scroll records a wheel movement at a position.
type Scroll struct {
	X, Y      int
	DX, DY    int
	Timestamp time.Duration
}

// KeyPress records a key going down.
type KeyPress struct {
	Key       string
	Timestamp time.Duration
}

// KeyRelease records a key going up.
type KeyRelease struct {
	Key       string
	Timestamp time.Duration
}

func (Move) Kind() Kind       { return KindMove }
func (Click) Kind() Kind      { return KindClick }
func (Scroll) Kind() Kind     { return KindScroll }
func (KeyPress) Kind() Kind   { return KindKeyPress }
func (KeyRelease) Kind() Kind { return KindKeyRelease }

func (e Move) At() time.Duration       { return e.Timestamp }
func (e Click) At() time.Duration      { return e.Timestamp }
func (e Scroll) At() time.Duration     { return e.Timestamp }
func (e KeyPress) At() time.Duration   { return e.Timestamp }
func (e KeyRelease) At() time.Duration { return e.Timestamp }

func (Move) isEvent()       {}
func (Click) isEvent()      {}
func (Scroll) isEvent()     {}
func (KeyPress) isEvent()   {}
func (KeyRelease) isEvent() {}

// Duration returns the largest offset across evts, or zero when empty.
func Duration(evts []Event) time.Duration {
	var max time.Duration
	for _, ev := range evts {
		if at := ev.At(); at > max {
			max = at
		}
	}
	return max
}

// Seconds renders an offset in the fractional seconds used on disk.
func Seconds(d time.Duration) float64 {
	return d.Seconds()
}

// MaxSeconds bounds persisted offsets to what a time.Duration can hold.
const MaxSeconds = float64(math.MaxInt64) / float64(time.Second)

// FromSeconds converts persisted fractional seconds back into an offset.
// Negative, non-finite and out-of-range values are rejected.
func FromSeconds(s float64) (time.Duration, error) {
	if math.IsNaN(s) || s < 0 || s >= MaxSeconds {
		return 0, fmt.Errorf("offset %v s outside [0, %.0f)", s, MaxSeconds)
	}
	return time.Duration(math.Round(s * float64(time.Second))), nil
}
