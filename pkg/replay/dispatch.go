package replay

import (
	"errors"
	"fmt"

	"github.com/offlinefirst/input-replay/pkg/events"
	"github.com/offlinefirst/input-replay/pkg/input"
)

// ErrInjection matches every InjectionError.
var ErrInjection = errors.New("injection failed")

// InjectionError reports an action the injector rejected.
type InjectionError struct {
	Kind events.Kind
	Op   string
	Err  error
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("inject %s (%s): %v", e.Kind, e.Op, e.Err)
}

func (e *InjectionError) Unwrap() error { return e.Err }

// Is reports whether target is ErrInjection.
func (e *InjectionError) Is(target error) bool { return target == ErrInjection }

// Dispatch performs the injector calls for one event.
func Dispatch(inj input.Injector, ev events.Event) error {
	wrap := func(op string, err error) error {
		if err == nil {
			return nil
		}
		return &InjectionError{Kind: ev.Kind(), Op: op, Err: err}
	}

	switch e := ev.(type) {
	case events.Move:
		return wrap("set_position", inj.SetPosition(e.X, e.Y))
	case events.Click:
		if err := inj.SetPosition(e.X, e.Y); err != nil {
			return wrap("set_position", err)
		}
		switch e.Action {
		case events.ActionPress:
			return wrap("press", inj.PressButton(e.Button))
		case events.ActionRelease:
			return wrap("release", inj.ReleaseButton(e.Button))
		default:
			return wrap("click", fmt.Errorf("unknown action %q", e.Action))
		}
	case events.Scroll:
		if err := inj.SetPosition(e.X, e.Y); err != nil {
			return wrap("set_position", err)
		}
		return wrap("scroll", inj.Scroll(e.DX, e.DY))
	case events.KeyPress:
		key, err := ResolveKey(e.Key)
		if err != nil {
			return err
		}
		return wrap("press", inj.PressKey(key))
	case events.KeyRelease:
		key, err := ResolveKey(e.Key)
		if err != nil {
			return err
		}
		return wrap("release", inj.ReleaseKey(key))
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
}
