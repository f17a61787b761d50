package gesture

import (
	"time"

	"github.com/pleimann/gopad/internal/mapping"
)

// timerPurpose distinguishes the timers a single button (or the engine as a
// whole) may have in flight at once.
type timerPurpose int

const (
	purposeLongHold timerPurpose = iota
	purposeRepeat
	purposeDoubleTap
	purposeChordWindow
	purposeTouchTick
)

// timerKey identifies a scheduled timer. Engine-wide timers use a sentinel
// button of -1.
type timerKey struct {
	button  mapping.Button
	purpose timerPurpose
}

const engineTimer mapping.Button = -1

// scheduler is the engine's timer registry. Every callback is posted back
// into the engine's serial loop, so firings never race classifier mutation.
// A generation counter per key makes cancellation and rescheduling atomic:
// a firing whose generation no longer matches is silently dropped, which
// also disposes of timers left over from a profile switch (the engine bumps
// every generation by clearing the map).
//
// All methods must be called from the engine loop.
type scheduler struct {
	post    func(func())
	seq     uint64
	pending map[timerKey]uint64
}

func newScheduler(post func(func())) *scheduler {
	return &scheduler{
		post:    post,
		pending: make(map[timerKey]uint64),
	}
}

// schedule arms a one-shot timer for key, replacing any pending firing.
func (s *scheduler) schedule(key timerKey, delay time.Duration, fn func()) {
	s.seq++
	gen := s.seq
	s.pending[key] = gen

	time.AfterFunc(delay, func() {
		s.post(func() {
			if s.pending[key] != gen {
				return // cancelled, rescheduled, or profile switched
			}
			delete(s.pending, key)
			fn()
		})
	})
}

// schedulePeriodic arms a repeating timer for key. It keeps firing at the
// given interval until cancelled.
func (s *scheduler) schedulePeriodic(key timerKey, interval time.Duration, fn func()) {
	s.seq++
	gen := s.seq
	s.pending[key] = gen

	var arm func()
	arm = func() {
		time.AfterFunc(interval, func() {
			s.post(func() {
				if s.pending[key] != gen {
					return
				}
				fn()
				if s.pending[key] == gen { // fn may have cancelled us
					arm()
				}
			})
		})
	}
	arm()
}

// cancel disarms any pending firing for key. Cancelling a timer that has
// already fired is a no-op.
func (s *scheduler) cancel(key timerKey) {
	delete(s.pending, key)
}

// reschedule replaces the pending firing for key with a new delay.
func (s *scheduler) reschedule(key timerKey, delay time.Duration, fn func()) {
	s.schedule(key, delay, fn)
}

// cancelAll disarms every pending timer. Used on profile switch and
// controller disconnect.
func (s *scheduler) cancelAll() {
	s.pending = make(map[timerKey]uint64)
}

// active reports whether key has a pending firing.
func (s *scheduler) active(key timerKey) bool {
	_, ok := s.pending[key]
	return ok
}
