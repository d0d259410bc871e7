package input

import "fmt"

// SpecialKey enumerates the non-character keys an Injector understands.
type SpecialKey int

const (
	KeyNone SpecialKey = iota
	KeySpace
	KeyEnter
	KeyTab
	KeyShift
	KeyShiftLeft
	KeyShiftRight
	KeyCtrl
	KeyCtrlLeft
	KeyCtrlRight
	KeyAlt
	KeyAltLeft
	KeyAltRight
	KeyAltGr
	KeyCmd
	KeyCmdLeft
	KeyCmdRight
	KeyEsc
	KeyBackspace
	KeyDelete
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyCapsLock
	KeyNumLock
	KeyScrollLock
	KeyPrintScreen
	KeyPause
	KeyInsert
	KeyMenu
	// KeyF1 through KeyF20 are contiguous.
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyF13
	KeyF14
	KeyF15
	KeyF16
	KeyF17
	KeyF18
	KeyF19
	KeyF20
)

var specialNames = map[SpecialKey]string{
	KeySpace:       "space",
	KeyEnter:       "enter",
	KeyTab:         "tab",
	KeyShift:       "shift",
	KeyShiftLeft:   "shift_l",
	KeyShiftRight:  "shift_r",
	KeyCtrl:        "ctrl",
	KeyCtrlLeft:    "ctrl_l",
	KeyCtrlRight:   "ctrl_r",
	KeyAlt:         "alt",
	KeyAltLeft:     "alt_l",
	KeyAltRight:    "alt_r",
	KeyAltGr:       "alt_gr",
	KeyCmd:         "cmd",
	KeyCmdLeft:     "cmd_l",
	KeyCmdRight:    "cmd_r",
	KeyEsc:         "esc",
	KeyBackspace:   "backspace",
	KeyDelete:      "delete",
	KeyHome:        "home",
	KeyEnd:         "end",
	KeyPageUp:      "page_up",
	KeyPageDown:    "page_down",
	KeyUp:          "up",
	KeyDown:        "down",
	KeyLeft:        "left",
	KeyRight:       "right",
	KeyCapsLock:    "caps_lock",
	KeyNumLock:     "num_lock",
	KeyScrollLock:  "scroll_lock",
	KeyPrintScreen: "print_screen",
	KeyPause:       "pause",
	KeyInsert:      "insert",
	KeyMenu:        "menu",
}

// String returns the canonical lower-case name of the key.
func (k SpecialKey) String() string {
	if k >= KeyF1 && k <= KeyF20 {
		return fmt.Sprintf("f%d", int(k-KeyF1)+1)
	}
	if name, ok := specialNames[k]; ok {
		return name
	}
	return fmt.Sprintf("special(%d)", int(k))
}

// FunctionKey returns the token for F<n>, with n in 1..20.
func FunctionKey(n int) (SpecialKey, bool) {
	if n < 1 || n > 20 {
		return KeyNone, false
	}
	return KeyF1 + SpecialKey(n-1), true
}

// SpecialKeys lists every named key with its canonical name.
func SpecialKeys() map[string]SpecialKey {
	out := make(map[string]SpecialKey, len(specialNames)+20)
	for key, name := range specialNames {
		out[name] = key
	}
	for n := 1; n <= 20; n++ {
		key, _ := FunctionKey(n)
		out[key.String()] = key
	}
	return out
}

// Key is a resolved key token: either a single character or a special key.
type Key struct {
	Char    rune
	Special SpecialKey
}

// CharKey returns the token for a printable character.
func CharKey(r rune) Key {
	return Key{Char: r}
}

// Named returns the token for a special key.
func Named(k SpecialKey) Key {
	return Key{Special: k}
}

// IsSpecial reports whether the token names a special key.
func (k Key) IsSpecial() bool {
	return k.Special != KeyNone
}

func (k Key) String() string {
	if k.IsSpecial() {
		return k.Special.String()
	}
	return string(k.Char)
}
