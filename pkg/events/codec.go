package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrMalformedEvent is wrapped by every decoding failure in this package.
var ErrMalformedEvent = errors.New("malformed event")

type pointWire struct {
	Type      Kind    `json:"type"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Timestamp float64 `json:"timestamp"`
}

type clickWire struct {
	Type      Kind    `json:"type"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Button    Button  `json:"button"`
	Action    Action  `json:"action"`
	Timestamp float64 `json:"timestamp"`
}

type scrollWire struct {
	Type      Kind    `json:"type"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	DX        int     `json:"dx"`
	DY        int     `json:"dy"`
	Timestamp float64 `json:"timestamp"`
}

type keyWire struct {
	Type      Kind    `json:"type"`
	Key       string  `json:"key"`
	Timestamp float64 `json:"timestamp"`
}

// Some capture backends report fractional coordinates, so numbers are decoded
// as floats and rounded.
type rawEvent struct {
	Type      *string  `json:"type"`
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	DX        *float64 `json:"dx"`
	DY        *float64 `json:"dy"`
	Button    *string  `json:"button"`
	Action    *string  `json:"action"`
	Key       *string  `json:"key"`
	Timestamp *float64 `json:"timestamp"`
}

// Marshal encodes a single event into its persisted JSON object.
func Marshal(ev Event) ([]byte, error) {
	switch e := ev.(type) {
	case Move:
		return json.Marshal(pointWire{Type: KindMove, X: e.X, Y: e.Y, Timestamp: Seconds(e.Timestamp)})
	case Click:
		return json.Marshal(clickWire{Type: KindClick, X: e.X, Y: e.Y, Button: e.Button, Action: e.Action, Timestamp: Seconds(e.Timestamp)})
	case Scroll:
		return json.Marshal(scrollWire{Type: KindScroll, X: e.X, Y: e.Y, DX: e.DX, DY: e.DY, Timestamp: Seconds(e.Timestamp)})
	case KeyPress:
		return json.Marshal(keyWire{Type: KindKeyPress, Key: e.Key, Timestamp: Seconds(e.Timestamp)})
	case KeyRelease:
		return json.Marshal(keyWire{Type: KindKeyRelease, Key: e.Key, Timestamp: Seconds(e.Timestamp)})
	case nil:
		return nil, errors.New("cannot marshal nil event")
	default:
		return nil, fmt.Errorf("unsupported event type %T", ev)
	}
}

// Unmarshal decodes a persisted JSON object into the matching Event variant.
func Unmarshal(data []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if raw.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}
	if raw.Timestamp == nil {
		return nil, fmt.Errorf("%w: missing timestamp", ErrMalformedEvent)
	}
	at, err := FromSeconds(*raw.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timestamp: %v", ErrMalformedEvent, err)
	}

	switch Kind(*raw.Type) {
	case KindMove:
		x, y, err := position(raw)
		if err != nil {
			return nil, err
		}
		return Move{X: x, Y: y, Timestamp: at}, nil
	case KindClick:
		x, y, err := position(raw)
		if err != nil {
			return nil, err
		}
		if raw.Button == nil || raw.Action == nil {
			return nil, fmt.Errorf("%w: click requires button and action", ErrMalformedEvent)
		}
		button, err := ParseButton(*raw.Button)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		action, err := ParseAction(*raw.Action)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		return Click{X: x, Y: y, Button: button, Action: action, Timestamp: at}, nil
	case KindScroll:
		x, y, err := position(raw)
		if err != nil {
			return nil, err
		}
		if raw.DX == nil || raw.DY == nil {
			return nil, fmt.Errorf("%w: scroll requires dx and dy", ErrMalformedEvent)
		}
		dx, err := coordinate(*raw.DX)
		if err != nil {
			return nil, err
		}
		dy, err := coordinate(*raw.DY)
		if err != nil {
			return nil, err
		}
		return Scroll{X: x, Y: y, DX: dx, DY: dy, Timestamp: at}, nil
	case KindKeyPress:
		if raw.Key == nil {
			return nil, fmt.Errorf("%w: key_press requires key", ErrMalformedEvent)
		}
		return KeyPress{Key: *raw.Key, Timestamp: at}, nil
	case KindKeyRelease:
		if raw.Key == nil {
			return nil, fmt.Errorf("%w: key_release requires key", ErrMalformedEvent)
		}
		return KeyRelease{Key: *raw.Key, Timestamp: at}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, *raw.Type)
	}
}

func position(raw rawEvent) (int, int, error) {
	if raw.X == nil || raw.Y == nil {
		return 0, 0, fmt.Errorf("%w: %s requires x and y", ErrMalformedEvent, *raw.Type)
	}
	x, err := coordinate(*raw.X)
	if err != nil {
		return 0, 0, err
	}
	y, err := coordinate(*raw.Y)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// coordinate rounds a persisted pixel value, keeping it within int32.
func coordinate(v float64) (int, error) {
	r := math.Round(v)
	if math.IsNaN(r) || r < math.MinInt32 || r > math.MaxInt32 {
		return 0, fmt.Errorf("%w: coordinate %v out of range", ErrMalformedEvent, v)
	}
	return int(r), nil
}
