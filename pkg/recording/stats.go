package recording

import (
	"time"

	"github.com/offlinefirst/input-replay/pkg/events"
)

// Statistics summarises a recording for the inspect command.
type Statistics struct {
	TotalEvents    int
	Duration       time.Duration
	ByKind         map[events.Kind]int
	MouseEvents    int
	KeyboardEvents int

	Clicks ClickStats
	// Movement is nil when the recording has fewer than two moves.
	Movement *MovementStats
	// Timing is nil when the recording has fewer than two events.
	Timing *TimingStats
}

// ClickStats counts button presses; releases are not counted.
type ClickStats struct {
	Total  int
	Left   int
	Right  int
	Middle int
}

// MovementStats measures the straight-line distance between consecutive moves.
type MovementStats struct {
	Moves           int
	TotalDistance   float64
	AverageDistance float64
	MaxDistance     float64
	MinDistance     float64
}

// TimingStats measures the gaps between consecutive events.
type TimingStats struct {
	AverageInterval time.Duration
	MaxInterval     time.Duration
	MinInterval     time.Duration
	EventsPerSecond float64
}

// Analyze computes Statistics for rec.
func Analyze(rec Recording) Statistics {
	stats := Statistics{
		TotalEvents: len(rec.Events),
		Duration:    rec.Duration,
		ByKind:      make(map[events.Kind]int, len(events.Kinds)),
	}

	var moves []events.Move
	for _, ev := range rec.Events {
		stats.ByKind[ev.Kind()]++
		switch ev.Kind().Device() {
		case events.DeviceKeyboard:
			stats.KeyboardEvents++
		default:
			stats.MouseEvents++
		}
		switch e := ev.(type) {
		case events.Move:
			moves = append(moves, e)
		case events.Click:
			if e.Action != events.ActionPress {
				continue
			}
			stats.Clicks.Total++
			switch e.Button {
			case events.ButtonLeft:
				stats.Clicks.Left++
			case events.ButtonRight:
				stats.Clicks.Right++
			case events.ButtonMiddle:
				stats.Clicks.Middle++
			}
		}
	}

	if len(moves) > 1 {
		m := &MovementStats{Moves: len(moves)}
		for i := 1; i < len(moves); i++ {
			d := distance(moves[i-1], moves[i])
			m.TotalDistance += d
			if i == 1 || d > m.MaxDistance {
				m.MaxDistance = d
			}
			if i == 1 || d < m.MinDistance {
				m.MinDistance = d
			}
		}
		m.AverageDistance = m.TotalDistance / float64(len(moves)-1)
		stats.Movement = m
	}

	if n := len(rec.Events); n > 1 {
		t := &TimingStats{}
		var sum time.Duration
		for i := 1; i < n; i++ {
			gap := rec.Events[i].At() - rec.Events[i-1].At()
			sum += gap
			if i == 1 || gap > t.MaxInterval {
				t.MaxInterval = gap
			}
			if i == 1 || gap < t.MinInterval {
				t.MinInterval = gap
			}
		}
		t.AverageInterval = sum / time.Duration(n-1)
		span := rec.Duration
		if span <= 0 {
			span = time.Second
		}
		t.EventsPerSecond = float64(n) / span.Seconds()
		stats.Timing = t
	}
	return stats
}
