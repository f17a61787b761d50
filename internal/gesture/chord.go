package gesture

import (
	"time"

	"github.com/pleimann/gopad/internal/mapping"
)

// chordEvent is a press or release held back while a chord window is open.
type chordEvent struct {
	button  mapping.Button
	at      time.Time
	release bool
	held    time.Duration
}

// chordResult says what the window did with a press.
type chordResult int

const (
	// chordPassthrough: the press is no chord candidate, classify it now.
	chordPassthrough chordResult = iota
	// chordBuffered: held back until the window resolves.
	chordBuffered
	// chordFired: the press completed a chord, which has been dispatched.
	chordFired
)

// chordWindow intercepts near-simultaneous presses of chord-member buttons
// before they reach the classifier. Presses of buttons that participate in
// no configured chord bypass it entirely. If the accumulated set matches a
// configured chord the chord fires at once; otherwise the window expires
// after the configured budget and the buffered events replay through the
// classifier with their original timestamps, as if no window existed.
type chordWindow struct {
	open    bool
	events  []chordEvent
	pressed map[mapping.Button]bool
}

func (w *chordWindow) reset() {
	w.open = false
	w.events = nil
	w.pressed = nil
}

// chordPress routes one press through the window.
func (e *Engine) chordPress(b mapping.Button, at time.Time) chordResult {
	p := e.profile
	if len(p.Chords) == 0 || !p.ChordMembers[b] {
		return chordPassthrough
	}
	// Activators outrank chords; never buffer them.
	if _, isActivator := p.Activators[b]; isActivator {
		return chordPassthrough
	}

	w := &e.chord
	if !w.open {
		w.open = true
		w.pressed = make(map[mapping.Button]bool)
		e.sched.schedule(timerKey{engineTimer, purposeChordWindow}, p.Timing.ChordWindow, e.flushChord)
	}
	if w.pressed[b] {
		e.logf("duplicate press for %s inside chord window, ignored", b)
		return chordBuffered
	}
	w.events = append(w.events, chordEvent{button: b, at: at})
	w.pressed[b] = true

	if len(w.pressed) < 2 {
		return chordBuffered
	}

	set := make([]mapping.Button, 0, len(w.pressed))
	for btn := range w.pressed {
		set = append(set, btn)
	}
	chord, ok := p.Chords[mapping.ChordKey(set)]
	if !ok {
		return chordBuffered
	}

	// Full match: fire once, consume every participant's release.
	e.sched.cancel(timerKey{engineTimer, purposeChordWindow})
	released := make(map[mapping.Button]bool)
	for _, ev := range w.events {
		if ev.release {
			released[ev.button] = true
		}
	}
	for btn := range w.pressed {
		if released[btn] {
			continue // released inside the window, nothing left to consume
		}
		st := &e.states[btn]
		*st = pressState{down: true, pressedAt: at, chordConsumed: true}
	}
	w.reset()

	e.emit(Event{Kind: KindChord, Buttons: chord.Buttons, At: at})
	e.execute(chord.Action)
	return chordFired
}

// chordRelease buffers a release whose press is still inside the window.
// Returns true when the release was consumed.
func (e *Engine) chordRelease(b mapping.Button, at time.Time, held time.Duration) bool {
	w := &e.chord
	if !w.open || !w.pressed[b] {
		return false
	}
	w.events = append(w.events, chordEvent{button: b, at: at, release: true, held: held})
	return true
}

// flushChord expires the window without a match: every buffered press and
// release replays through the classifier in arrival order.
func (e *Engine) flushChord() {
	w := &e.chord
	if !w.open {
		return
	}
	events := w.events
	w.reset()

	for _, ev := range events {
		if ev.release {
			e.classifyRelease(ev.button, ev.at, ev.held)
		} else {
			e.classifyPress(ev.button, ev.at)
		}
	}
}
