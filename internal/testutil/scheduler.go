// Package testutil provides deterministic substitutes for time-dependent
// collaborators, so tests never wait on the wall clock.
package testutil

import (
	"sync"
	"time"

	"pitwall/internal/timer"
)

// ManualScheduler implements timer.Scheduler with explicit firing.
//
// Scheduled actions accumulate and run only when the test calls FireNext
// or FireAll, in the order the wall clock would run them: shortest delay
// first, insertion order on ties. Cancelled actions are skipped, matching
// the guarantee the wall-clock scheduler gives.
//
// Thread-safety: all methods are safe for concurrent use.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []*manualHandle
}

// NewManualScheduler returns an empty scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

type manualHandle struct {
	mu        sync.Mutex
	fn        func()
	d         time.Duration
	cancelled bool
	fired     bool
}

func (h *manualHandle) Cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fired || h.cancelled {
		return false
	}
	h.cancelled = true
	return true
}

// take marks the handle fired and returns its action, or nil when the
// handle was cancelled or already fired.
func (h *manualHandle) take() func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled || h.fired {
		return nil
	}
	h.fired = true
	return h.fn
}

// Schedule implements timer.Scheduler.
func (s *ManualScheduler) Schedule(d time.Duration, fn func()) timer.Handle {
	h := &manualHandle{fn: fn, d: d}
	s.mu.Lock()
	s.pending = append(s.pending, h)
	s.mu.Unlock()
	return h
}

// FireNext runs the live pending action with the shortest delay, the one
// the wall clock would run next. It reports whether an action ran.
// Actions scheduled by the fired callback become pending.
func (s *ManualScheduler) FireNext() bool {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return false
		}
		next := 0
		for i, h := range s.pending[1:] {
			if h.d < s.pending[next].d {
				next = i + 1
			}
		}
		h := s.pending[next]
		s.pending = append(s.pending[:next], s.pending[next+1:]...)
		s.mu.Unlock()

		if fn := h.take(); fn != nil {
			fn()
			return true
		}
		// Cancelled handle; try the next one.
	}
}

// FireAll runs live pending actions until none remain, including actions
// scheduled while firing. Returns the number of actions run.
func (s *ManualScheduler) FireAll() int {
	n := 0
	for s.FireNext() {
		n++
	}
	return n
}

// PendingLive returns how many scheduled actions are neither fired nor
// cancelled.
func (s *ManualScheduler) PendingLive() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.pending {
		h.mu.Lock()
		if !h.cancelled && !h.fired {
			n++
		}
		h.mu.Unlock()
	}
	return n
}
