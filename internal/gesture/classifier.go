package gesture

import (
	"time"

	"github.com/pleimann/gopad/internal/mapping"
)

// pressState tracks one button through Idle -> Pressed -> {LongHeld |
// Released}. One instance per button, owned by the engine loop, reset on
// profile switch and disconnect.
type pressState struct {
	down             bool
	pressedAt        time.Time
	longHoldFired    bool
	doubleFired      bool
	pendingDoubleTap time.Time // release time of a possible first tap
	holdAction       *mapping.Action
	chordConsumed    bool
	seqConsumed      bool
	navConsumed      bool
}

// classifyPress runs the per-button press state machine. Must be called
// from the engine loop. Presses that were held back by the chord window
// arrive here with their original timestamps.
func (e *Engine) classifyPress(b mapping.Button, at time.Time) {
	st := &e.states[b]
	if st.down {
		e.logf("duplicate press for %s while already held, ignored", b)
		return
	}

	pendingDT := st.pendingDoubleTap
	*st = pressState{down: true, pressedAt: at, pendingDoubleTap: pendingDT}

	// Layer activators are authoritative: push the layer, emit nothing.
	if layerID, ok := e.profile.Activators[b]; ok {
		e.layers.Push(layerID)
		e.logf("layer %s activated by %s", e.profile.Layers[layerID].Name, b)
		return
	}

	// On-screen keyboard navigation owns the input while active.
	if e.navActive.Load() {
		st.navConsumed = true
		if e.navHandler != nil {
			e.navHandler(b)
		}
		return
	}

	binding := mapping.Resolve(e.profile, e.layers, b)
	if binding == nil {
		e.logf("unmapped button %s", b)
		return
	}

	// Second tap of a double-tap pair fires here, at press time, and
	// swallows the rest of this press-release cycle.
	if binding.DoubleTap != nil && !pendingDT.IsZero() && at.Sub(pendingDT) <= e.profile.Timing.DoubleTapWindow {
		e.sched.cancel(timerKey{b, purposeDoubleTap})
		st.pendingDoubleTap = time.Time{}
		st.doubleFired = true
		e.emit(Event{Kind: KindDoubleTap, Buttons: []mapping.Button{b}, At: at})
		e.execute(*binding.DoubleTap)
		return
	}
	st.pendingDoubleTap = time.Time{}

	// Hold-style mappings start immediately and end on release.
	if binding.Hold != nil {
		st.holdAction = binding.Hold
		e.startHold(*binding.Hold)
		return
	}

	if binding.LongHold != nil {
		action := *binding.LongHold
		// Presses replayed from an expired chord window arrive with
		// their physical timestamps; the threshold is measured from
		// the press, not from the replay.
		delay := e.profile.Timing.LongHoldThreshold - time.Since(at)
		if delay < 0 {
			delay = 0
		}
		e.sched.schedule(timerKey{b, purposeLongHold}, delay, func() {
			st := &e.states[b]
			if !st.down {
				e.logf("stale long-hold firing for %s dropped", b)
				return
			}
			st.longHoldFired = true
			e.emit(Event{Kind: KindLongHold, Buttons: []mapping.Button{b}, At: time.Now()})
			e.execute(action)
		})
	}

	if binding.Repeat != nil {
		action := *binding.Repeat
		key := timerKey{b, purposeRepeat}
		e.sched.schedulePeriodic(key, e.profile.Timing.RepeatInterval, func() {
			if !e.states[b].down {
				e.sched.cancel(key)
				return
			}
			e.emit(Event{Kind: KindRepeat, Buttons: []mapping.Button{b}, At: time.Now()})
			e.execute(action)
		})
	}
}

// classifyRelease runs the release half of the state machine. Must be
// called from the engine loop.
func (e *Engine) classifyRelease(b mapping.Button, at time.Time, held time.Duration) {
	st := &e.states[b]
	if !st.down {
		// Out-of-order or duplicate release: no-op on an idle button.
		e.logf("release without press for %s, ignored", b)
		return
	}
	if held < 0 {
		e.logf("negative held duration for %s, treating as instant release", b)
		held = 0
	}

	st.down = false
	e.sched.cancel(timerKey{b, purposeLongHold})
	e.sched.cancel(timerKey{b, purposeRepeat})

	if layerID, ok := e.profile.Activators[b]; ok {
		e.layers.Pop(layerID)
		e.logf("layer %s released by %s", e.profile.Layers[layerID].Name, b)
		return
	}

	if st.navConsumed {
		st.navConsumed = false
		return
	}

	if st.holdAction != nil {
		e.stopHold(*st.holdAction)
		st.holdAction = nil
		// A hold-style button with a double-tap mapping still pairs:
		// mark this release so the next press inside the window fires
		// the double-tap instead of a second hold.
		if binding := mapping.Resolve(e.profile, e.layers, b); binding != nil && binding.DoubleTap != nil {
			st.pendingDoubleTap = at
			e.sched.schedule(timerKey{b, purposeDoubleTap}, e.profile.Timing.DoubleTapWindow, func() {
				e.states[b].pendingDoubleTap = time.Time{}
			})
		}
		return
	}

	// One dispatch per press-hold: anything already claimed by a chord,
	// a fired double-tap or long-hold, or a matched sequence is done.
	if st.chordConsumed {
		st.chordConsumed = false
		return
	}
	if st.doubleFired {
		st.doubleFired = false
		return
	}
	if st.longHoldFired {
		st.longHoldFired = false
		return
	}
	if st.seqConsumed {
		st.seqConsumed = false
		return
	}

	binding := mapping.Resolve(e.profile, e.layers, b)
	if binding == nil {
		return
	}

	// A double-tap mapping defers the single press by the pairing window.
	if binding.DoubleTap != nil {
		st.pendingDoubleTap = at
		press := binding.Press
		e.sched.schedule(timerKey{b, purposeDoubleTap}, e.profile.Timing.DoubleTapWindow, func() {
			st := &e.states[b]
			st.pendingDoubleTap = time.Time{}
			if press != nil {
				e.emit(Event{Kind: KindPress, Buttons: []mapping.Button{b}, At: time.Now()})
				e.execute(*press)
			}
		})
		return
	}

	if binding.Press != nil {
		e.emit(Event{Kind: KindPress, Buttons: []mapping.Button{b}, At: at})
		e.execute(*binding.Press)
	}
}

// suppressSequence cancels the pending individual dispatches of a matched
// sequence's buttons. Dispatches that already fired are left alone.
func (e *Engine) suppressSequence(seq *mapping.Sequence) {
	for _, b := range seq.Buttons {
		st := &e.states[b]
		e.sched.cancel(timerKey{b, purposeDoubleTap})
		e.sched.cancel(timerKey{b, purposeLongHold})
		e.sched.cancel(timerKey{b, purposeRepeat})
		st.pendingDoubleTap = time.Time{}
		if st.down {
			st.seqConsumed = true
		}
	}
}
