package recording

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offlinefirst/input-replay/pkg/events"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func sample() Recording {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return New("demo", []events.Event{
		events.Move{X: 10, Y: 20, Timestamp: 0},
		events.Click{X: 10, Y: 20, Button: events.ButtonLeft, Action: events.ActionPress, Timestamp: ms(100)},
		events.Click{X: 10, Y: 20, Button: events.ButtonLeft, Action: events.ActionRelease, Timestamp: ms(150)},
		events.Scroll{X: 10, Y: 20, DX: 0, DY: -3, Timestamp: ms(300)},
		events.KeyPress{Key: "a", Timestamp: ms(400)},
		events.KeyRelease{Key: "a", Timestamp: ms(450)},
	}, created)
}

func TestNewDerivesDurationAndCount(t *testing.T) {
	rec := sample()
	assert.Equal(t, 6, rec.TotalEvents)
	assert.Equal(t, ms(450), rec.Duration)

	empty := New("empty", nil, time.Time{})
	assert.Zero(t, empty.Duration)
	assert.Zero(t, empty.TotalEvents)
}

func TestRoundTripPreservesEvents(t *testing.T) {
	rec := sample()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rec))

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, rec.Name, got.Name)
	assert.Equal(t, rec.Duration, got.Duration)
	assert.Equal(t, rec.TotalEvents, got.TotalEvents)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, rec.Events, got.Events)
}

func TestMarshalShape(t *testing.T) {
	data, err := json.Marshal(sample())
	require.NoError(t, err)

	var top map[string]any
	require.NoError(t, json.Unmarshal(data, &top))
	assert.Equal(t, "demo", top["name"])
	assert.InDelta(t, 0.45, top["duration"], 1e-9)
	assert.EqualValues(t, 6, top["total_events"])
	assert.Equal(t, "2024-05-01T10:00:00Z", top["created_at"])
	assert.NotContains(t, top, "optimized")
	list, ok := top["events"].([]any)
	require.True(t, ok)
	first := list[0].(map[string]any)
	assert.Equal(t, "move", first["type"])
}

func TestDecodeAcceptsZonelessCreatedAt(t *testing.T) {
	doc := `{"name":"old","duration":0.1,"total_events":1,"created_at":"2024-01-02T03:04:05.123456",
		"events":[{"type":"move","x":1,"y":2,"timestamp":0.1}]}`
	rec, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2024, rec.CreatedAt.Year())
	assert.Equal(t, 123456000, rec.CreatedAt.Nanosecond())
	assert.Equal(t, ms(100), rec.Duration)
}

func TestDecodeRejectsMalformedRecordings(t *testing.T) {
	cases := map[string]struct {
		doc   string
		index int
	}{
		"not json":         {doc: `{`, index: -1},
		"not object":       {doc: `[]`, index: -1},
		"missing events":   {doc: `{"duration":1}`, index: -1},
		"missing duration": {doc: `{"events":[]}`, index: -1},
		"events not list":  {doc: `{"events":{},"duration":1}`, index: -1},
		"negative dur":     {doc: `{"events":[],"duration":-1}`, index: -1},
		"huge dur":         {doc: `{"events":[],"duration":1e12}`, index: -1},
		"huge timestamp": {
			doc:   `{"events":[{"type":"move","x":1,"y":1,"timestamp":0},{"type":"move","x":1,"y":1,"timestamp":1e12}],"duration":1}`,
			index: 1,
		},
		"event no type":    {doc: `{"events":[{"timestamp":0}],"duration":0}`, index: 0},
		"late bad event": {
			doc:   `{"events":[` + strings.Repeat(`{"type":"move","x":1,"y":1,"timestamp":0},`, 12) + `{"type":"move"}],"duration":0}`,
			index: 12,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRecording), "got %v", err)
			var invalidErr *InvalidRecordingError
			require.True(t, errors.As(err, &invalidErr))
			assert.Equal(t, tc.index, invalidErr.Index)
		})
	}
}

func TestValidate(t *testing.T) {
	data, err := json.Marshal(sample())
	require.NoError(t, err)
	assert.NoError(t, Validate(data))
	assert.ErrorIs(t, Validate([]byte(`{"events":null,"duration":0}`)), ErrInvalidRecording)
}

func TestOptimizeRemovesRedundantMoves(t *testing.T) {
	rec := New("moves", []events.Event{
		events.Move{X: 1, Y: 1, Timestamp: 0},
		events.Move{X: 1, Y: 1, Timestamp: ms(10)},
		events.Click{X: 1, Y: 1, Button: events.ButtonLeft, Action: events.ActionPress, Timestamp: ms(20)},
		events.Move{X: 1, Y: 1, Timestamp: ms(30)},
		events.Move{X: 2, Y: 1, Timestamp: ms(40)},
		events.Move{X: 20, Y: 1, Timestamp: ms(50)},
		events.Move{X: 20, Y: 1, Timestamp: ms(60)},
	}, time.Now())

	stamp := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	out := Optimize(rec, OptimizeOptions{RemoveRedundantMoves: true, Now: func() time.Time { return stamp }})
	assert.True(t, out.Optimized)
	assert.Equal(t, stamp, out.OptimizedAt)
	assert.Equal(t, 4, out.TotalEvents)
	assert.Equal(t, ms(50), out.Duration)
	assert.Len(t, rec.Events, 7)

	out = Optimize(rec, OptimizeOptions{RemoveRedundantMoves: true, MinMoveDistance: 5})
	assert.Equal(t, []events.Event{
		events.Move{X: 1, Y: 1, Timestamp: 0},
		events.Click{X: 1, Y: 1, Button: events.ButtonLeft, Action: events.ActionPress, Timestamp: ms(20)},
		events.Move{X: 20, Y: 1, Timestamp: ms(50)},
	}, out.Events)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"optimized":true`)
	assert.Contains(t, string(data), `"optimization_date"`)
}

func TestAnalyze(t *testing.T) {
	rec := New("stats", []events.Event{
		events.Move{X: 0, Y: 0, Timestamp: 0},
		events.Move{X: 3, Y: 4, Timestamp: ms(100)},
		events.Move{X: 3, Y: 14, Timestamp: ms(300)},
		events.Click{X: 3, Y: 14, Button: events.ButtonRight, Action: events.ActionPress, Timestamp: ms(400)},
		events.Click{X: 3, Y: 14, Button: events.ButtonRight, Action: events.ActionRelease, Timestamp: ms(500)},
		events.KeyPress{Key: "x", Timestamp: ms(1000)},
	}, time.Now())

	stats := Analyze(rec)
	assert.Equal(t, 6, stats.TotalEvents)
	assert.Equal(t, 5, stats.MouseEvents)
	assert.Equal(t, 1, stats.KeyboardEvents)
	assert.Equal(t, 3, stats.ByKind[events.KindMove])
	assert.Equal(t, ClickStats{Total: 1, Right: 1}, stats.Clicks)

	require.NotNil(t, stats.Movement)
	assert.InDelta(t, 15.0, stats.Movement.TotalDistance, 1e-9)
	assert.InDelta(t, 7.5, stats.Movement.AverageDistance, 1e-9)
	assert.InDelta(t, 10.0, stats.Movement.MaxDistance, 1e-9)
	assert.InDelta(t, 5.0, stats.Movement.MinDistance, 1e-9)

	require.NotNil(t, stats.Timing)
	assert.Equal(t, ms(200), stats.Timing.AverageInterval)
	assert.Equal(t, ms(500), stats.Timing.MaxInterval)
	assert.Equal(t, ms(100), stats.Timing.MinInterval)
	assert.InDelta(t, 6.0, stats.Timing.EventsPerSecond, 1e-9)

	empty := Analyze(New("empty", nil, time.Now()))
	assert.Nil(t, empty.Movement)
	assert.Nil(t, empty.Timing)
}

func TestStoreSaveAvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store, err := NewStore(dir, StoreOptions{Clock: func() time.Time { return now }})
	require.NoError(t, err)

	first, err := store.Save(sample())
	require.NoError(t, err)
	second, err := store.Save(sample())
	require.NoError(t, err)
	backup, err := store.Backup(sample(), "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "auto_save_20240501_100000.json"), first)
	assert.Equal(t, filepath.Join(dir, "auto_save_20240501_100000_01.json"), second)
	assert.Equal(t, filepath.Join(dir, "backup_20240501_100000.json"), backup)

	rec, err := store.Load(second)
	require.NoError(t, err)
	assert.Equal(t, sample().Events, rec.Events)
}

func TestStoreLoadRefreshesAfterRewrite(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, StoreOptions{})
	require.NoError(t, err)
	path := filepath.Join(dir, "one.json")

	require.NoError(t, store.SaveAs(path, sample()))
	rec, err := store.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", rec.Name)

	renamed := sample()
	renamed.Name = "renamed and longer"
	require.NoError(t, store.SaveAs(path, renamed))
	rec, err = store.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "renamed and longer", rec.Name)
}

func TestStoreListAndCleanup(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)
	store, err := NewStore(dir, StoreOptions{Clock: func() time.Time { return now }})
	require.NoError(t, err)

	ages := map[string]time.Duration{
		"a.json": 1 * time.Hour,
		"b.json": 2 * time.Hour,
		"c.json": 3 * time.Hour,
		"d.json": 40 * 24 * time.Hour,
	}
	for name, age := range ages {
		path := filepath.Join(dir, name)
		require.NoError(t, store.SaveAs(path, sample()))
		require.NoError(t, os.Chtimes(path, now.Add(-age), now.Add(-age)))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"events":[]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	entries, err := store.List()
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Filename)
		assert.Positive(t, e.Size)
	}
	assert.Equal(t, []string{"a.json", "b.json", "c.json", "d.json"}, names)

	removed, err := store.Cleanup(2, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	entries, err = store.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.json", entries[0].Filename)
	_, err = os.Stat(filepath.Join(dir, "broken.json"))
	assert.NoError(t, err)
}

func TestStoreResolve(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, StoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "session.json"), store.Resolve("session"))
	assert.Equal(t, filepath.Join(dir, "session.json"), store.Resolve("session.json"))
	assert.Equal(t, "/elsewhere/x.json", store.Resolve("/elsewhere/x.json"))
}
