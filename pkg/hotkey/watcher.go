package hotkey

import (
	"strings"
	"sync"

	"github.com/offlinefirst/input-replay/pkg/events"
	"github.com/offlinefirst/input-replay/pkg/input"
)

// Action is what a matched hotkey asks the recorder to do.
type Action string

const (
	ActionRecord Action = "record"
	ActionPlay   Action = "play"
	ActionStop   Action = "stop"
)

var modifierKeys = map[string]Modifier{
	"ctrl": ModCtrl, "ctrl_l": ModCtrl, "ctrl_r": ModCtrl,
	"alt": ModAlt, "alt_l": ModAlt, "alt_r": ModAlt, "alt_gr": ModAlt,
	"shift": ModShift, "shift_l": ModShift, "shift_r": ModShift,
}

// Watcher listens to keyboard notifications and emits an Action whenever a
// binding's key is pressed with exactly its modifiers held. Actions are
// dropped when nobody is reading and the buffer is full.
type Watcher struct {
	input.ListenerFuncs

	bindings Bindings
	actions  chan Action

	mu   sync.Mutex
	held map[string]Modifier
}

// NewWatcher returns a watcher for bindings.
func NewWatcher(bindings Bindings) *Watcher {
	w := &Watcher{
		bindings: bindings,
		actions:  make(chan Action, 8),
		held:     make(map[string]Modifier),
	}
	w.KeyPress = w.onKeyPress
	w.KeyRelease = w.onKeyRelease
	return w
}

// Attach subscribes the watcher to source's keyboard notifications.
func (w *Watcher) Attach(source input.Source) (input.Subscription, error) {
	return source.Subscribe(events.DeviceKeyboard, w)
}

// Actions delivers matched hotkeys.
func (w *Watcher) Actions() <-chan Action {
	return w.actions
}

func (w *Watcher) onKeyPress(key string) {
	name := strings.ToLower(key)
	w.mu.Lock()
	if mod, ok := modifierKeys[name]; ok {
		w.held[name] = mod
		w.mu.Unlock()
		return
	}
	active := make(map[Modifier]bool, len(w.held))
	for _, m := range w.held {
		active[m] = true
	}
	w.mu.Unlock()

	for _, candidate := range []struct {
		binding Binding
		action  Action
	}{
		{w.bindings.Stop, ActionStop},
		{w.bindings.Record, ActionRecord},
		{w.bindings.Play, ActionPlay},
	} {
		if matches(candidate.binding, name, active) {
			select {
			case w.actions <- candidate.action:
			default:
			}
			return
		}
	}
}

func (w *Watcher) onKeyRelease(key string) {
	w.mu.Lock()
	delete(w.held, strings.ToLower(key))
	w.mu.Unlock()
}

func matches(b Binding, key string, active map[Modifier]bool) bool {
	if b.Key == "" || b.Key != key {
		return false
	}
	if len(b.Modifiers) != len(active) {
		return false
	}
	for _, m := range b.Modifiers {
		if !active[m] {
			return false
		}
	}
	return true
}
