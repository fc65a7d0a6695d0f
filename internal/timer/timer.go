// Package timer provides the cancellable single-shot scheduler the engine
// uses for phase deadlines and bot action delays.
//
// The scheduler is injected so tests can substitute a manually driven
// implementation instead of wall-clock time (see internal/testutil).
package timer

import "time"

// Handle is a pending deferred action. Each handle has exactly one owner;
// the owner cancels it before advancing away from the phase that scheduled
// it. A cancelled action must never fire afterward.
type Handle interface {
	// Cancel stops the action if it has not fired. It reports whether the
	// cancellation prevented the action from running.
	Cancel() bool
}

// Scheduler fires fn once after d. Implementations must be safe for use
// from multiple matches concurrently.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Handle
}

// Wall schedules on real time via time.AfterFunc.
type Wall struct{}

// NewWall returns the wall-clock scheduler.
func NewWall() Wall { return Wall{} }

// Schedule implements Scheduler.
func (Wall) Schedule(d time.Duration, fn func()) Handle {
	return wallHandle{time.AfterFunc(d, fn)}
}

type wallHandle struct {
	t *time.Timer
}

func (h wallHandle) Cancel() bool {
	return h.t.Stop()
}
