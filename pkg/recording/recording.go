// Package recording holds the durable form of a capture session: the
// Recording value, its JSON encoding, validation, analysis, optimisation and
// an on-disk store.
package recording

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/offlinefirst/input-replay/pkg/events"
)

// ErrInvalidRecording matches every InvalidRecordingError.
var ErrInvalidRecording = errors.New("invalid recording")

// InvalidRecordingError describes malformed persisted data. Index is the
// offending event position, or -1 when the problem is not event specific.
type InvalidRecordingError struct {
	Reason string
	Index  int
	Err    error
}

func (e *InvalidRecordingError) Error() string {
	msg := "invalid recording: " + e.Reason
	if e.Index >= 0 {
		msg = fmt.Sprintf("invalid recording: event %d: %s", e.Index, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidRecordingError) Unwrap() error { return e.Err }

// Is reports whether target is ErrInvalidRecording.
func (e *InvalidRecordingError) Is(target error) bool { return target == ErrInvalidRecording }

func invalid(index int, reason string, err error) error {
	return &InvalidRecordingError{Reason: reason, Index: index, Err: err}
}

// Recording is a named, immutable list of captured events.
type Recording struct {
	Name        string
	Duration    time.Duration
	TotalEvents int
	CreatedAt   time.Time
	Events      []events.Event
	// Optimized and OptimizedAt are set by Optimize.
	Optimized   bool
	OptimizedAt time.Time
}

// New builds a Recording whose duration and count derive from evts.
func New(name string, evts []events.Event, createdAt time.Time) Recording {
	evts = append([]events.Event(nil), evts...)
	return Recording{
		Name:        name,
		Duration:    events.Duration(evts),
		TotalEvents: len(evts),
		CreatedAt:   createdAt,
		Events:      evts,
	}
}

type wireRecording struct {
	Name             string            `json:"name"`
	Duration         float64           `json:"duration"`
	TotalEvents      int               `json:"total_events"`
	CreatedAt        string            `json:"created_at"`
	Events           []json.RawMessage `json:"events"`
	Optimized        bool              `json:"optimized,omitempty"`
	OptimizationDate string            `json:"optimization_date,omitempty"`
}

// MarshalJSON renders the persisted shape with durations in seconds.
func (r Recording) MarshalJSON() ([]byte, error) {
	w := wireRecording{
		Name:        r.Name,
		Duration:    events.Seconds(r.Duration),
		TotalEvents: r.TotalEvents,
		CreatedAt:   formatInstant(r.CreatedAt),
		Events:      make([]json.RawMessage, 0, len(r.Events)),
		Optimized:   r.Optimized,
	}
	if r.Optimized && !r.OptimizedAt.IsZero() {
		w.OptimizationDate = formatInstant(r.OptimizedAt)
	}
	for i, ev := range r.Events {
		data, err := events.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		w.Events = append(w.Events, data)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes and validates the persisted shape.
func (r *Recording) UnmarshalJSON(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return invalid(-1, "not a JSON object", err)
	}
	rawEvents, ok := top["events"]
	if !ok {
		return invalid(-1, `missing "events"`, nil)
	}
	rawDuration, ok := top["duration"]
	if !ok {
		return invalid(-1, `missing "duration"`, nil)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(rawEvents, &list); err != nil || list == nil && !isJSONArray(rawEvents) {
		return invalid(-1, `"events" is not a list`, err)
	}
	var seconds float64
	if err := json.Unmarshal(rawDuration, &seconds); err != nil {
		return invalid(-1, `"duration" is not a number`, err)
	}
	duration, err := events.FromSeconds(seconds)
	if err != nil {
		return invalid(-1, `"duration" must be a non-negative number`, err)
	}

	out := Recording{Duration: duration}
	if raw, ok := top["name"]; ok {
		if err := json.Unmarshal(raw, &out.Name); err != nil {
			return invalid(-1, `"name" is not a string`, err)
		}
	}
	if raw, ok := top["created_at"]; ok {
		var stamp string
		if err := json.Unmarshal(raw, &stamp); err != nil {
			return invalid(-1, `"created_at" is not a string`, err)
		}
		at, err := parseInstant(stamp)
		if err != nil {
			return invalid(-1, `"created_at" is not an ISO-8601 instant`, err)
		}
		out.CreatedAt = at
	}
	if raw, ok := top["optimized"]; ok {
		if err := json.Unmarshal(raw, &out.Optimized); err != nil {
			return invalid(-1, `"optimized" is not a boolean`, err)
		}
	}
	if raw, ok := top["optimization_date"]; ok {
		var stamp string
		if err := json.Unmarshal(raw, &stamp); err == nil && stamp != "" {
			if at, err := parseInstant(stamp); err == nil {
				out.OptimizedAt = at
			}
		}
	}

	out.Events = make([]events.Event, 0, len(list))
	for i, raw := range list {
		ev, err := events.Unmarshal(raw)
		if err != nil {
			return invalid(i, "malformed event", err)
		}
		out.Events = append(out.Events, ev)
	}

	out.TotalEvents = len(out.Events)
	if raw, ok := top["total_events"]; ok {
		if err := json.Unmarshal(raw, &out.TotalEvents); err != nil {
			return invalid(-1, `"total_events" is not an integer`, err)
		}
	}

	*r = out
	return nil
}

func isJSONArray(raw json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("["))
}

// Decode reads one recording from r.
func Decode(r io.Reader) (Recording, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Recording{}, fmt.Errorf("read recording: %w", err)
	}
	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		var invalidErr *InvalidRecordingError
		if errors.As(err, &invalidErr) {
			return Recording{}, invalidErr
		}
		return Recording{}, invalid(-1, "malformed JSON", err)
	}
	return rec, nil
}

// Encode writes rec as indented JSON.
func Encode(w io.Writer, rec Recording) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal recording: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	return nil
}

// Validate checks data against the persisted shape without keeping the result.
func Validate(data []byte) error {
	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		var invalidErr *InvalidRecordingError
		if errors.As(err, &invalidErr) {
			return invalidErr
		}
		return invalid(-1, "malformed JSON", err)
	}
	return nil
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

// Instants written by older tools omit the zone; those are read as local time.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	var lastErr error
	for _, layout := range instantLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
