package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/offlinefirst/input-replay/pkg/config"
	"github.com/offlinefirst/input-replay/pkg/events"
	"github.com/offlinefirst/input-replay/pkg/input"
	"github.com/offlinefirst/input-replay/pkg/metrics"
	"github.com/offlinefirst/input-replay/pkg/recording"
)

type testRoot struct {
	rc     *RootCommand
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	dir    string
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRoot returns a root command with a preloaded AppContext pointing
// at a temporary recordings directory and sleeps that return immediately.
func newTestRoot(t *testing.T) *testRoot {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RecordingsDir = dir
	cfg.Playback.InitialDelaySeconds = 0

	registry := prometheus.NewRegistry()
	var stdout, stderr bytes.Buffer
	rc := NewRootCommand()
	rc.stdout = &stdout
	rc.stderr = &stderr
	rc.stdin = strings.NewReader("")
	rc.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	rc.environ = func() map[string]string {
		return map[string]string{"REPLAYCTL_ACCESSIBILITY": "granted", "REPLAYCTL_INJECTION": "granted"}
	}
	rc.appCtx = &AppContext{
		Config:   cfg,
		Logger:   newTestLogger(),
		Metrics:  metrics.MustNewMetrics(registry),
		Registry: registry,
	}
	return &testRoot{rc: rc, stdout: &stdout, stderr: &stderr, dir: dir}
}

func (tr *testRoot) saveRecording(t *testing.T, file string, rec recording.Recording) string {
	t.Helper()
	store, err := tr.rc.appCtx.Store()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	path := filepath.Join(tr.dir, file)
	if err := store.SaveAs(path, rec); err != nil {
		t.Fatalf("save recording: %v", err)
	}
	return path
}

func sampleRecording() recording.Recording {
	return recording.New("sample", []events.Event{
		events.Move{X: 10, Y: 10, Timestamp: 0},
		events.Move{X: 10, Y: 10, Timestamp: 100 * time.Millisecond},
		events.Move{X: 40, Y: 50, Timestamp: 200 * time.Millisecond},
		events.Click{X: 40, Y: 50, Button: events.ButtonLeft, Action: events.ActionPress, Timestamp: 300 * time.Millisecond},
		events.Click{X: 40, Y: 50, Button: events.ButtonLeft, Action: events.ActionRelease, Timestamp: 350 * time.Millisecond},
		events.KeyPress{Key: "a", Timestamp: 500 * time.Millisecond},
		events.KeyRelease{Key: "a", Timestamp: 550 * time.Millisecond},
	}, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC))
}

func TestVersionCommand(t *testing.T) {
	origVersion, origGOOS := runtimeVersion, runtimeGOOS
	runtimeVersion = func() string { return "1.22.0" }
	runtimeGOOS = func() string { return "plan9" }
	defer func() { runtimeVersion, runtimeGOOS = origVersion, origGOOS }()

	rc := NewRootCommand()
	var stdout bytes.Buffer
	rc.stdout = &stdout
	rc.stderr = io.Discard
	if err := rc.Execute([]string{"version"}); err != nil {
		t.Fatalf("version returned error: %v", err)
	}
	if !strings.Contains(stdout.String(), "(go1.22.0/plan9)") {
		t.Fatalf("unexpected version output %q", stdout.String())
	}
}

func TestUnknownCommandFails(t *testing.T) {
	tr := newTestRoot(t)
	if err := tr.rc.Execute([]string{"bundle"}); err == nil {
		t.Fatalf("expected unknown command error")
	}
	if !strings.Contains(tr.stderr.String(), "unknown command") {
		t.Fatalf("expected error on stderr, got %q", tr.stderr.String())
	}
}

func TestRecordSyntheticAutoSaves(t *testing.T) {
	tr := newTestRoot(t)
	if err := tr.rc.Execute([]string{"record", "--name", "demo", "--interval", "0"}); err != nil {
		t.Fatalf("record returned error: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(tr.dir, "auto_save_*.json"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one auto_save file, got %v (%v)", matches, err)
	}
	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open recording: %v", err)
	}
	defer f.Close()
	rec, err := recording.Decode(f)
	if err != nil {
		t.Fatalf("decode recording: %v", err)
	}
	if rec.Name != "demo" {
		t.Fatalf("unexpected name %q", rec.Name)
	}
	// The demo timeline publishes five mouse notifications before any key.
	if rec.TotalEvents < 5 {
		t.Fatalf("expected demo events, got %d", rec.TotalEvents)
	}
	if !strings.Contains(tr.stdout.String(), "Saved") {
		t.Fatalf("expected save summary, got %q", tr.stdout.String())
	}
}

func TestRecordStdinHonoursFlags(t *testing.T) {
	tr := newTestRoot(t)
	tr.rc.stdin = strings.NewReader(strings.Join([]string{
		`{"type":"move","x":1,"y":2}`,
		`{"type":"key_press","key":"a"}`,
		`{"type":"click","x":1,"y":2,"button":"left","pressed":true}`,
		`{"type":"key_release","key":"a"}`,
		"",
	}, "\n"))

	out := filepath.Join(tr.dir, "typed.json")
	if err := tr.rc.Execute([]string{"record", "--source", "stdin", "--no-mouse", "--output", out}); err != nil {
		t.Fatalf("record returned error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var rec recording.Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if rec.TotalEvents != 2 {
		t.Fatalf("expected only keyboard events, got %d: %+v", rec.TotalEvents, rec.Events)
	}
	if rec.Events[0].Kind() != events.KindKeyPress || rec.Events[1].Kind() != events.KindKeyRelease {
		t.Fatalf("unexpected events %+v", rec.Events)
	}
}

func TestPlayStreamsActionsToStdout(t *testing.T) {
	tr := newTestRoot(t)
	tr.saveRecording(t, "sample.json", sampleRecording())

	if err := tr.rc.Execute([]string{"play", "sample", "--injector", "stdout", "--speed", "4", "--repetitions", "2"}); err != nil {
		t.Fatalf("play returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(tr.stdout.String()), "\n")
	// Clicks position the pointer before the button action.
	if len(lines) != 18 {
		t.Fatalf("expected 18 injected actions, got %d:\n%s", len(lines), tr.stdout.String())
	}
	var first input.InjectedAction
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode action: %v", err)
	}
	if first.Op != "move" || first.X != 10 || first.Y != 10 {
		t.Fatalf("unexpected first action %+v", first)
	}
	if !strings.Contains(tr.stderr.String(), "Playback finished: 2 repetition(s), 14 injected") {
		t.Fatalf("expected summary on stderr, got %q", tr.stderr.String())
	}
}

func TestPlayRejectsBadSpeed(t *testing.T) {
	tr := newTestRoot(t)
	tr.saveRecording(t, "sample.json", sampleRecording())
	if err := tr.rc.Execute([]string{"play", "sample", "--speed", "0"}); err == nil {
		t.Fatalf("expected speed error")
	}
}

func TestPlayMissingRecording(t *testing.T) {
	tr := newTestRoot(t)
	if err := tr.rc.Execute([]string{"play", "nope.json"}); err == nil {
		t.Fatalf("expected missing recording error")
	}
}

func TestListRendersTableAndJSON(t *testing.T) {
	tr := newTestRoot(t)
	tr.saveRecording(t, "sample.json", sampleRecording())

	if err := tr.rc.Execute([]string{"list"}); err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if !strings.Contains(tr.stdout.String(), "sample.json") || !strings.Contains(tr.stdout.String(), "0.55s") {
		t.Fatalf("unexpected table output:\n%s", tr.stdout.String())
	}

	tr.stdout.Reset()
	if err := tr.rc.Execute([]string{"list", "--format", "json"}); err != nil {
		t.Fatalf("list json returned error: %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(tr.stdout.Bytes(), &rows); err != nil {
		t.Fatalf("decode list json: %v", err)
	}
	if len(rows) != 1 || rows[0]["total_events"] != float64(7) {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestListEmptyDirectory(t *testing.T) {
	tr := newTestRoot(t)
	if err := tr.rc.Execute([]string{"list"}); err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if !strings.Contains(tr.stdout.String(), "No recordings") {
		t.Fatalf("unexpected output %q", tr.stdout.String())
	}
}

func TestInspectShowsStatistics(t *testing.T) {
	tr := newTestRoot(t)
	tr.saveRecording(t, "sample.json", sampleRecording())
	if err := tr.rc.Execute([]string{"inspect", "sample.json"}); err != nil {
		t.Fatalf("inspect returned error: %v", err)
	}
	out := tr.stdout.String()
	for _, want := range []string{"sample", "Keyboard events", "key_press", "1 (left 1, right 0, middle 0)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestOptimizeInPlaceKeepsBackup(t *testing.T) {
	tr := newTestRoot(t)
	path := tr.saveRecording(t, "sample.json", sampleRecording())

	if err := tr.rc.Execute([]string{"optimize", "sample.json"}); err != nil {
		t.Fatalf("optimize returned error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open optimized: %v", err)
	}
	defer f.Close()
	rec, err := recording.Decode(f)
	if err != nil {
		t.Fatalf("decode optimized: %v", err)
	}
	if rec.TotalEvents != 6 || !rec.Optimized {
		t.Fatalf("expected redundant move dropped, got %d events optimized=%v", rec.TotalEvents, rec.Optimized)
	}
	backups, _ := filepath.Glob(filepath.Join(tr.dir, "backup_*.json"))
	if len(backups) != 1 {
		t.Fatalf("expected one backup, got %v", backups)
	}
	if !strings.Contains(tr.stdout.String(), "7 -> 6 events") {
		t.Fatalf("unexpected summary %q", tr.stdout.String())
	}
}

func TestCleanupAppliesMaxFiles(t *testing.T) {
	tr := newTestRoot(t)
	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"a.json", "b.json", "c.json"} {
		path := tr.saveRecording(t, name, sampleRecording())
		stamp := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if err := tr.rc.Execute([]string{"cleanup", "--max-files", "1"}); err != nil {
		t.Fatalf("cleanup returned error: %v", err)
	}
	remaining, _ := filepath.Glob(filepath.Join(tr.dir, "*.json"))
	if len(remaining) != 1 || filepath.Base(remaining[0]) != "c.json" {
		t.Fatalf("expected newest file kept, got %v", remaining)
	}
	if !strings.Contains(tr.stdout.String(), "Removed 2 recording(s)") {
		t.Fatalf("unexpected output %q", tr.stdout.String())
	}
}

func TestDoctorReportsBackends(t *testing.T) {
	tr := newTestRoot(t)
	if err := tr.rc.Execute([]string{"doctor"}); err != nil {
		t.Fatalf("doctor returned error: %v", err)
	}
	out := tr.stdout.String()
	for _, want := range []string{"capture", "injection", "synthetic", "dry-run", "Ready to record and replay."} {
		if !strings.Contains(out, want) {
			t.Fatalf("doctor output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigInitThenShow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "replayctl.yaml")

	rc := NewRootCommand()
	var stdout bytes.Buffer
	rc.stdout = &stdout
	rc.stderr = io.Discard
	if err := rc.Execute([]string{"config", "init", path}); err != nil {
		t.Fatalf("config init returned error: %v", err)
	}
	if err := rc.Execute([]string{"config", "init", path}); err == nil {
		t.Fatalf("expected second init without --force to fail")
	}

	stdout.Reset()
	if err := rc.Execute([]string{"--config", path, "--log-level", "error", "config", "show"}); err != nil {
		t.Fatalf("config show returned error: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "# source: "+path) || !strings.Contains(out, "default_speed: 1") {
		t.Fatalf("unexpected config show output:\n%s", out)
	}
	if rc.appCtx.Config.Logging.Level != "error" {
		t.Fatalf("expected log level override, got %q", rc.appCtx.Config.Logging.Level)
	}
}

func TestWithMetricsWithoutAddressRunsInline(t *testing.T) {
	tr := newTestRoot(t)
	called := false
	err := withMetrics(context.Background(), tr.rc.appCtx, func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("expected inline run, called=%v err=%v", called, err)
	}
}

func TestWithMetricsStopsServerWhenDone(t *testing.T) {
	tr := newTestRoot(t)
	tr.rc.appCtx.Config.Metrics.Address = "127.0.0.1:0"
	done := make(chan error, 1)
	go func() {
		done <- withMetrics(context.Background(), tr.rc.appCtx, func(context.Context) error { return nil })
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("withMetrics returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("metrics server did not shut down")
	}
}
