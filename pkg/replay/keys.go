package replay

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/offlinefirst/input-replay/pkg/input"
)

// ErrUnresolvableKey matches every KeyResolutionError.
var ErrUnresolvableKey = errors.New("unresolvable key")

// KeyResolutionError reports a recorded key name with no key token.
type KeyResolutionError struct {
	Key string
}

func (e *KeyResolutionError) Error() string {
	return fmt.Sprintf("unresolvable key %q", e.Key)
}

// Is reports whether target is ErrUnresolvableKey.
func (e *KeyResolutionError) Is(target error) bool { return target == ErrUnresolvableKey }

var keyAliases = map[string]input.SpecialKey{
	"return":    input.KeyEnter,
	"escape":    input.KeyEsc,
	"del":       input.KeyDelete,
	"pgup":      input.KeyPageUp,
	"pgdn":      input.KeyPageDown,
	"pageup":    input.KeyPageUp,
	"pagedown":  input.KeyPageDown,
	"win":       input.KeyCmd,
	"super":     input.KeyCmd,
	"control":   input.KeyCtrl,
	"option":    input.KeyAlt,
	"capslock":  input.KeyCapsLock,
	"printscr":  input.KeyPrintScreen,
	"ins":       input.KeyInsert,
}

var specialKeys = input.SpecialKeys()

// ResolveKey maps a recorded key name onto an injectable key. Single
// characters map to themselves; symbolic names are matched case-insensitively.
func ResolveKey(name string) (input.Key, error) {
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		return input.CharKey(r), nil
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	if special, ok := specialKeys[lower]; ok {
		return input.Named(special), nil
	}
	if special, ok := keyAliases[lower]; ok {
		return input.Named(special), nil
	}
	return input.Key{}, &KeyResolutionError{Key: name}
}
