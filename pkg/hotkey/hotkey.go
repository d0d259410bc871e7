// Package hotkey validates global hotkey bindings and turns matching key
// presses into recorder actions.
package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidHotkey matches every validation failure.
var ErrInvalidHotkey = errors.New("invalid hotkey")

var validKeys = map[string]string{
	"F1": "f1", "F2": "f2", "F3": "f3", "F4": "f4", "F5": "f5", "F6": "f6",
	"F7": "f7", "F8": "f8", "F9": "f9", "F10": "f10", "F11": "f11", "F12": "f12",
	"ESC":       "esc",
	"TAB":       "tab",
	"SPACE":     "space",
	"ENTER":     "enter",
	"BACKSPACE": "backspace",
	"DELETE":    "delete",
	"HOME":      "home",
	"END":       "end",
	"PAGEUP":    "page_up",
	"PAGEDOWN":  "page_down",
	"INSERT":    "insert",
	"UP":        "up",
	"DOWN":      "down",
	"LEFT":      "left",
	"RIGHT":     "right",
}

var reserved = map[string]struct{}{
	"CTRL+C":          {},
	"CTRL+V":          {},
	"CTRL+X":          {},
	"CTRL+Z":          {},
	"CTRL+Y":          {},
	"ALT+F4":          {},
	"CTRL+ALT+DELETE": {},
	"WIN+L":           {},
}

// Modifier is a key that must be held for a binding to fire.
type Modifier string

const (
	ModCtrl  Modifier = "CTRL"
	ModAlt   Modifier = "ALT"
	ModShift Modifier = "SHIFT"
)

// Binding is a parsed hotkey such as "CTRL+SHIFT+F9".
type Binding struct {
	Modifiers []Modifier
	// Key is the recorded key name, for example "f9" or "page_up".
	Key string
}

func (b Binding) String() string {
	parts := make([]string, 0, len(b.Modifiers)+1)
	for _, m := range b.Modifiers {
		parts = append(parts, string(m))
	}
	for name, recorded := range validKeys {
		if recorded == b.Key {
			parts = append(parts, name)
			break
		}
	}
	return strings.Join(parts, "+")
}

// Parse validates s and returns its binding. Matching is case-insensitive;
// at most two modifiers from CTRL, ALT and SHIFT may precede the key.
func Parse(s string) (Binding, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	if norm == "" {
		return Binding{}, fmt.Errorf("%w: empty", ErrInvalidHotkey)
	}
	if _, ok := reserved[norm]; ok {
		return Binding{}, fmt.Errorf("%w: %s is reserved by the system", ErrInvalidHotkey, norm)
	}

	parts := strings.Split(norm, "+")
	if len(parts) > 3 {
		return Binding{}, fmt.Errorf("%w: %s has too many parts", ErrInvalidHotkey, norm)
	}
	key, ok := validKeys[parts[len(parts)-1]]
	if !ok {
		return Binding{}, fmt.Errorf("%w: unsupported key %q", ErrInvalidHotkey, parts[len(parts)-1])
	}

	seen := make(map[Modifier]bool)
	var mods []Modifier
	for _, p := range parts[:len(parts)-1] {
		m := Modifier(p)
		switch m {
		case ModCtrl, ModAlt, ModShift:
		default:
			return Binding{}, fmt.Errorf("%w: unsupported modifier %q", ErrInvalidHotkey, p)
		}
		if seen[m] {
			return Binding{}, fmt.Errorf("%w: duplicate modifier %q", ErrInvalidHotkey, p)
		}
		seen[m] = true
		mods = append(mods, m)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i] < mods[j] })
	return Binding{Modifiers: mods, Key: key}, nil
}

// Validate reports whether s is a usable hotkey.
func Validate(s string) error {
	_, err := Parse(s)
	return err
}

// Bindings holds the three recorder hotkeys.
type Bindings struct {
	Record Binding
	Play   Binding
	Stop   Binding
}

// ParseBindings validates the three hotkeys and rejects duplicates.
func ParseBindings(record, play, stop string) (Bindings, error) {
	var b Bindings
	var err error
	if b.Record, err = Parse(record); err != nil {
		return Bindings{}, fmt.Errorf("record hotkey: %w", err)
	}
	if b.Play, err = Parse(play); err != nil {
		return Bindings{}, fmt.Errorf("play hotkey: %w", err)
	}
	if b.Stop, err = Parse(stop); err != nil {
		return Bindings{}, fmt.Errorf("stop hotkey: %w", err)
	}
	seen := map[string]string{}
	for name, binding := range map[string]Binding{"record": b.Record, "play": b.Play, "stop": b.Stop} {
		key := binding.String()
		if other, dup := seen[key]; dup {
			return Bindings{}, fmt.Errorf("%w: %s and %s share %s", ErrInvalidHotkey, other, name, key)
		}
		seen[key] = name
	}
	return b, nil
}
