package recording

import (
	"math"
	"time"

	"github.com/offlinefirst/input-replay/pkg/events"
)

// OptimizeOptions selects which moves Optimize discards.
type OptimizeOptions struct {
	// RemoveRedundantMoves drops a move to the position of the previous kept move.
	RemoveRedundantMoves bool
	// MinMoveDistance drops moves closer than this many pixels to the previous
	// kept move. Zero disables the check.
	MinMoveDistance float64
	// Now stamps the optimisation date; defaults to time.Now.
	Now func() time.Time
}

// DefaultOptimizeOptions removes redundant moves only.
func DefaultOptimizeOptions() OptimizeOptions {
	return OptimizeOptions{RemoveRedundantMoves: true}
}

// Optimize returns a new Recording with superfluous moves removed. Clicks,
// scrolls and keys are always kept in order; rec is not modified.
func Optimize(rec Recording, opts OptimizeOptions) Recording {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	kept := make([]events.Event, 0, len(rec.Events))
	var last *events.Move
	for _, ev := range rec.Events {
		move, ok := ev.(events.Move)
		if !ok {
			kept = append(kept, ev)
			continue
		}
		if last != nil {
			if opts.RemoveRedundantMoves && move.X == last.X && move.Y == last.Y {
				continue
			}
			if opts.MinMoveDistance > 0 && distance(*last, move) < opts.MinMoveDistance {
				continue
			}
		}
		kept = append(kept, move)
		m := move
		last = &m
	}

	out := New(rec.Name, kept, rec.CreatedAt)
	out.Optimized = true
	out.OptimizedAt = now()
	return out
}

func distance(a, b events.Move) float64 {
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
}
