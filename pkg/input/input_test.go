package input

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offlinefirst/input-replay/pkg/events"
)

type tape struct {
	mu    sync.Mutex
	calls []string
}

func (t *tape) add(s string) {
	t.mu.Lock()
	t.calls = append(t.calls, s)
	t.mu.Unlock()
}

func (t *tape) listener() ListenerFuncs {
	return ListenerFuncs{
		Move:       func(x, y int) { t.add("move") },
		Click:      func(x, y int, b events.Button, pressed bool) { t.add("click:" + string(b)) },
		ScrollFunc: func(x, y, dx, dy int) { t.add("scroll") },
		KeyPress:   func(k string) { t.add("down:" + k) },
		KeyRelease: func(k string) { t.add("up:" + k) },
	}
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestScriptedSourceRoutesByDeviceClass(t *testing.T) {
	src := NewScriptedSource(DemoScript(time.Millisecond), noSleep)

	var mouse, keys tape
	_, err := src.Subscribe(events.DeviceMouse, mouse.listener())
	require.NoError(t, err)
	_, err = src.Subscribe(events.DeviceKeyboard, keys.listener())
	require.NoError(t, err)

	require.NoError(t, src.Run(context.Background()))

	assert.Equal(t, []string{"move", "move", "move", "click:left", "click:left", "scroll"}, mouse.calls)
	assert.Equal(t, []string{"down:h", "up:h", "down:i", "up:i", "down:esc", "up:esc"}, keys.calls)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	src := NewScriptedSource(DemoScript(time.Millisecond), noSleep)
	var mouse tape
	sub, err := src.Subscribe(events.DeviceMouse, mouse.listener())
	require.NoError(t, err)
	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())
	assert.Equal(t, 0, src.Subscribers())

	require.NoError(t, src.Run(context.Background()))
	assert.Empty(t, mouse.calls)
}

func TestSubscribeRejectsUnknownClass(t *testing.T) {
	src := NewScriptedSource(nil, noSleep)
	_, err := src.Subscribe(events.DeviceClass("joystick"), ListenerFuncs{})
	assert.Error(t, err)
	_, err = src.Subscribe(events.DeviceMouse, nil)
	assert.Error(t, err)
}

func TestScriptedSourceHonoursCancellation(t *testing.T) {
	src := NewScriptedSource(DemoScript(time.Hour), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := src.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStreamSourceDecodesLines(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"move","x":1,"y":2}`,
		``,
		`{"type":"click","x":1,"y":2,"button":"right","pressed":true}`,
		`{"type":"key_press","key":"a"}`,
	}, "\n")
	src := NewStreamSource(strings.NewReader(input))
	var mouse, keys tape
	_, err := src.Subscribe(events.DeviceMouse, mouse.listener())
	require.NoError(t, err)
	_, err = src.Subscribe(events.DeviceKeyboard, keys.listener())
	require.NoError(t, err)

	require.NoError(t, src.Run(context.Background()))
	assert.Equal(t, []string{"move", "click:right"}, mouse.calls)
	assert.Equal(t, []string{"down:a"}, keys.calls)
}

func TestStreamSourceReportsBadLine(t *testing.T) {
	src := NewStreamSource(strings.NewReader("{\"type\":\"move\"}\nnot json\n"))
	err := src.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	src = NewStreamSource(strings.NewReader(`{"type":"warp"}`))
	_, err = src.Subscribe(events.DeviceMouse, ListenerFuncs{})
	require.NoError(t, err)
	assert.Error(t, src.Run(context.Background()))
}

func TestStreamInjectorWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	inj := NewStreamInjector(&buf)
	require.NoError(t, inj.SetPosition(3, 4))
	require.NoError(t, inj.PressButton(events.ButtonLeft))
	require.NoError(t, inj.Scroll(0, -1))
	require.NoError(t, inj.PressKey(Named(KeyF5)))
	require.NoError(t, inj.ReleaseKey(CharKey('q')))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	var last InjectedAction
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &last))
	assert.Equal(t, InjectedAction{Op: "key_down", Key: "f5"}, last)
	require.NoError(t, json.Unmarshal([]byte(lines[4]), &last))
	assert.Equal(t, InjectedAction{Op: "key_up", Key: "q"}, last)
}

func TestStreamInjectorKeepsZeroCoordinates(t *testing.T) {
	var buf bytes.Buffer
	inj := NewStreamInjector(&buf)
	require.NoError(t, inj.SetPosition(0, 0))
	require.NoError(t, inj.Scroll(0, 3))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var move map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &move))
	assert.Equal(t, "move", move["op"])
	assert.Contains(t, move, "x")
	assert.Contains(t, move, "y")
	assert.EqualValues(t, 0, move["x"])
	assert.EqualValues(t, 0, move["y"])

	var scroll map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &scroll))
	assert.Equal(t, "scroll", scroll["op"])
	assert.Contains(t, scroll, "dx")
	assert.EqualValues(t, 0, scroll["dx"])
	assert.EqualValues(t, 3, scroll["dy"])
}

func TestXdotoolInjectorArguments(t *testing.T) {
	var got [][]string
	inj := &XdotoolInjector{binary: "xdotool", timeout: time.Second, run: func(_ context.Context, _ string, args ...string) error {
		got = append(got, args)
		return nil
	}}

	require.NoError(t, inj.SetPosition(10, 20))
	require.NoError(t, inj.PressButton(events.ButtonRight))
	require.NoError(t, inj.ReleaseButton(events.ButtonRight))
	require.NoError(t, inj.Scroll(1, -3))
	require.NoError(t, inj.PressKey(Named(KeyEnter)))
	require.NoError(t, inj.ReleaseKey(CharKey('.')))

	assert.Equal(t, [][]string{
		{"mousemove", "--", "10", "20"},
		{"mousedown", "3"},
		{"mouseup", "3"},
		{"click", "--repeat", "3", "5"},
		{"click", "--repeat", "1", "7"},
		{"keydown", "--", "Return"},
		{"keyup", "--", "period"},
	}, got)

	assert.Error(t, inj.PressButton(events.Button("thumb")))
}

func TestKeyTokens(t *testing.T) {
	f12, ok := FunctionKey(12)
	require.True(t, ok)
	assert.Equal(t, "f12", f12.String())
	_, ok = FunctionKey(21)
	assert.False(t, ok)

	names := SpecialKeys()
	assert.Equal(t, KeyPageUp, names["page_up"])
	assert.Equal(t, KeyF20, names["f20"])

	sym, err := Keysym(Named(KeyF20))
	require.NoError(t, err)
	assert.Equal(t, "F20", sym)
	_, err = Keysym(Key{})
	assert.Error(t, err)
}

func TestDetectEnvironments(t *testing.T) {
	env := DetectCaptureEnvironment(SourceSynthetic, map[string]string{})
	assert.True(t, env.Available)
	assert.Equal(t, "not_applicable", env.Permission)

	env = DetectCaptureEnvironment("carrier-pigeon", map[string]string{})
	assert.False(t, env.Available)

	orig := lookPath
	lookPath = func(string) (string, error) { return "", errors.New("missing") }
	defer func() { lookPath = orig }()
	env = DetectInjectionEnvironment(InjectorXdotool, map[string]string{"DISPLAY": ":0"})
	assert.False(t, env.Available)
	assert.NotEmpty(t, env.Guidance)

	env = DetectInjectionEnvironment(InjectorDryRun, map[string]string{})
	assert.True(t, env.Available)
}
