package input

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/offlinefirst/input-replay/pkg/events"
)

// XdotoolInjector drives an X11 display through the xdotool binary.
type XdotoolInjector struct {
	binary  string
	timeout time.Duration
	run     func(ctx context.Context, binary string, args ...string) error
}

// NewXdotoolInjector resolves binary (default "xdotool") on PATH.
func NewXdotoolInjector(binary string) (*XdotoolInjector, error) {
	if strings.TrimSpace(binary) == "" {
		binary = "xdotool"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("locate %s: %w", binary, err)
	}
	return &XdotoolInjector{binary: path, timeout: 2 * time.Second, run: runCommand}, nil
}

func runCommand(ctx context.Context, binary string, args ...string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s %s: %w: %s", binary, strings.Join(args, " "), err, msg)
		}
		return fmt.Errorf("%s %s: %w", binary, strings.Join(args, " "), err)
	}
	return nil
}

func (x *XdotoolInjector) invoke(args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), x.timeout)
	defer cancel()
	return x.run(ctx, x.binary, args...)
}

func (x *XdotoolInjector) SetPosition(posX, posY int) error {
	return x.invoke("mousemove", "--", strconv.Itoa(posX), strconv.Itoa(posY))
}

func (x *XdotoolInjector) PressButton(button events.Button) error {
	code, err := xButton(button)
	if err != nil {
		return err
	}
	return x.invoke("mousedown", code)
}

func (x *XdotoolInjector) ReleaseButton(button events.Button) error {
	code, err := xButton(button)
	if err != nil {
		return err
	}
	return x.invoke("mouseup", code)
}

// Scroll maps wheel steps onto X11 buttons 4-7; positive dy scrolls up and
// positive dx scrolls right.
func (x *XdotoolInjector) Scroll(dx, dy int) error {
	if dy != 0 {
		button := "5"
		if dy > 0 {
			button = "4"
		}
		if err := x.invoke("click", "--repeat", strconv.Itoa(abs(dy)), button); err != nil {
			return err
		}
	}
	if dx != 0 {
		button := "6"
		if dx > 0 {
			button = "7"
		}
		if err := x.invoke("click", "--repeat", strconv.Itoa(abs(dx)), button); err != nil {
			return err
		}
	}
	return nil
}

func (x *XdotoolInjector) PressKey(key Key) error {
	sym, err := Keysym(key)
	if err != nil {
		return err
	}
	return x.invoke("keydown", "--", sym)
}

func (x *XdotoolInjector) ReleaseKey(key Key) error {
	sym, err := Keysym(key)
	if err != nil {
		return err
	}
	return x.invoke("keyup", "--", sym)
}

func xButton(button events.Button) (string, error) {
	switch button {
	case events.ButtonLeft:
		return "1", nil
	case events.ButtonMiddle:
		return "2", nil
	case events.ButtonRight:
		return "3", nil
	default:
		return "", fmt.Errorf("unsupported button %q", button)
	}
}

var x11Special = map[SpecialKey]string{
	KeySpace:       "space",
	KeyEnter:       "Return",
	KeyTab:         "Tab",
	KeyShift:       "Shift_L",
	KeyShiftLeft:   "Shift_L",
	KeyShiftRight:  "Shift_R",
	KeyCtrl:        "Control_L",
	KeyCtrlLeft:    "Control_L",
	KeyCtrlRight:   "Control_R",
	KeyAlt:         "Alt_L",
	KeyAltLeft:     "Alt_L",
	KeyAltRight:    "Alt_R",
	KeyAltGr:       "ISO_Level3_Shift",
	KeyCmd:         "Super_L",
	KeyCmdLeft:     "Super_L",
	KeyCmdRight:    "Super_R",
	KeyEsc:         "Escape",
	KeyBackspace:   "BackSpace",
	KeyDelete:      "Delete",
	KeyHome:        "Home",
	KeyEnd:         "End",
	KeyPageUp:      "Prior",
	KeyPageDown:    "Next",
	KeyUp:          "Up",
	KeyDown:        "Down",
	KeyLeft:        "Left",
	KeyRight:       "Right",
	KeyCapsLock:    "Caps_Lock",
	KeyNumLock:     "Num_Lock",
	KeyScrollLock:  "Scroll_Lock",
	KeyPrintScreen: "Print",
	KeyPause:       "Pause",
	KeyInsert:      "Insert",
	KeyMenu:        "Menu",
}

var x11Chars = map[rune]string{
	' ':  "space",
	'.':  "period",
	',':  "comma",
	'/':  "slash",
	'\\': "backslash",
	'-':  "minus",
	'=':  "equal",
	';':  "semicolon",
	'\'': "apostrophe",
	'`':  "grave",
	'[':  "bracketleft",
	']':  "bracketright",
	'!':  "exclam",
	'@':  "at",
	'#':  "numbersign",
	'$':  "dollar",
	'%':  "percent",
	'^':  "asciicircum",
	'&':  "ampersand",
	'*':  "asterisk",
	'(':  "parenleft",
	')':  "parenright",
	'_':  "underscore",
	'+':  "plus",
	':':  "colon",
	'"':  "quotedbl",
	'<':  "less",
	'>':  "greater",
	'?':  "question",
	'{':  "braceleft",
	'}':  "braceright",
	'|':  "bar",
	'~':  "asciitilde",
	'\t': "Tab",
	'\n': "Return",
	'\r': "Return",
}

// Keysym returns the X11 keysym name xdotool expects for key.
func Keysym(key Key) (string, error) {
	if key.IsSpecial() {
		if key.Special >= KeyF1 && key.Special <= KeyF20 {
			return "F" + strconv.Itoa(int(key.Special-KeyF1)+1), nil
		}
		if sym, ok := x11Special[key.Special]; ok {
			return sym, nil
		}
		return "", fmt.Errorf("no keysym for %s", key.Special)
	}
	if key.Char == 0 {
		return "", errors.New("empty key")
	}
	if sym, ok := x11Chars[key.Char]; ok {
		return sym, nil
	}
	return string(key.Char), nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
