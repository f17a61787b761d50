package gesture

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pleimann/gopad/internal/config"
	"github.com/pleimann/gopad/internal/mapping"
	"github.com/pleimann/gopad/internal/sink"
	"github.com/pleimann/gopad/internal/touch"
)

const (
	opsBuffer = 256

	// touchTickInterval drives long-tap detection and momentum decay at
	// the same cadence as the stick poller.
	touchTickInterval = 8333 * time.Microsecond

	// pinchStep is the accumulated magnification change per discrete
	// pinch action dispatch.
	pinchStep = 0.05
)

// Engine turns raw controller input into classified gestures and resolved
// actions. All classification state is owned by a single loop goroutine;
// ingress methods marshal events into it, so the state machines never need
// locks and timer firings interleave deterministically with input.
type Engine struct {
	out      sink.Sink
	observer func(Event)
	verbose  bool

	navHandler func(mapping.Button)
	navActive  atomic.Bool

	filters  touch.Filters
	momentum touch.Momentum

	ops      chan func()
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Owned by the loop goroutine.
	profiles   []*mapping.Profile
	profile    *mapping.Profile
	app        string
	sched      *scheduler
	layers     *mapping.LayerStack
	states     [mapping.ButtonCount]pressState
	chord      chordWindow
	seq        sequenceMatcher
	touch      *touch.Recognizer
	ticking    bool
	pinchAccum float64

	gestureActive atomic.Bool
}

// New creates an engine writing to out. Profiles are installed with
// SetProfiles; nothing dispatches until one is active.
func New(out sink.Sink, fc config.FilterConfig, mc config.MomentumConfig) *Engine {
	e := &Engine{
		out:  out,
		done: make(chan struct{}),
		ops:  make(chan func(), opsBuffer),
		filters: touch.Filters{
			MinCutoff: fc.MinCutoff,
			Beta:      fc.Beta,
			DCutoff:   fc.DCutoff,
		},
		momentum: touch.Momentum{
			StartVelocity: mc.StartVelocity,
			Sustain:       time.Duration(mc.SustainMs) * time.Millisecond,
			ReleaseWindow: time.Duration(mc.ReleaseWindowMs) * time.Millisecond,
			DecayRate:     mc.DecayRate,
			StopVelocity:  mc.StopVelocity,
			MaxIdle:       time.Duration(mc.MaxIdleMs) * time.Millisecond,
			BoostMin:      mc.BoostMin,
			BoostMax:      mc.BoostMax,
			BoostMaxVel:   mc.BoostMaxVel,
		},
		layers: &mapping.LayerStack{},
	}
	e.sched = newScheduler(e.post)
	e.touch = touch.New(touch.Params{}, e.momentum, e.filters, touch.Callbacks{
		Tap:     e.touchTap,
		LongTap: e.touchLongTap,
		Pan:     func(dx, dy float64) { e.scroll(dx, dy, false) },
		Pinch:   e.touchPinch,
		Pointer: e.moveCursor,
		Scroll:  func(dx, dy float64) { e.scroll(dx, dy, true) },
	})
	return e
}

// SetObserver installs a callback receiving every classified gesture.
// Must be called before Start.
func (e *Engine) SetObserver(fn func(Event)) { e.observer = fn }

// SetVerbose enables per-gesture logging. Must be called before Start.
func (e *Engine) SetVerbose(v bool) { e.verbose = v }

// SetNavHandler installs the receiver for button presses while navigation
// intercept is active. Must be called before Start.
func (e *Engine) SetNavHandler(fn func(mapping.Button)) { e.navHandler = fn }

// SetNavIntercept toggles navigation mode: while active, button presses
// bypass classification and go to the nav handler instead.
func (e *Engine) SetNavIntercept(active bool) { e.navActive.Store(active) }

// GestureActive reports whether a two-finger touch gesture or momentum
// scroll currently owns the touchpad. Safe from any goroutine; the stick
// poller uses it to redirect right-stick output.
func (e *Engine) GestureActive() bool { return e.gestureActive.Load() }

// Start launches the engine loop. It runs until ctx is cancelled or Stop
// is called.
func (e *Engine) Start(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.done:
				return
			case fn := <-e.ops:
				fn()
			}
		}
	}()
}

// Stop shuts the loop down and waits for it to exit. Pending timers become
// no-ops.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.done) })
	e.wg.Wait()
}

// post marshals fn into the engine loop. Timer firings and ingress events
// both arrive through here, which is what serializes them.
func (e *Engine) post(fn func()) {
	select {
	case e.ops <- fn:
	case <-e.done:
	}
}

// SetProfiles installs a freshly compiled profile set and re-selects the
// active profile. All in-flight classification state is discarded.
func (e *Engine) SetProfiles(profiles []*mapping.Profile) {
	e.post(func() {
		e.profiles = profiles
		e.applyProfile(mapping.Select(profiles, e.app))
	})
}

// SetFrontmostApp switches the active profile by application scope. A
// no-op when the selected profile is unchanged.
func (e *Engine) SetFrontmostApp(app string) {
	e.post(func() {
		e.app = app
		if p := mapping.Select(e.profiles, app); p != e.profile {
			e.applyProfile(p)
		}
	})
}

// OnButtonPressed ingests a physical button press.
func (e *Engine) OnButtonPressed(b mapping.Button, at time.Time) {
	if !b.Valid() {
		return
	}
	e.post(func() {
		if e.profile == nil {
			return
		}
		e.handlePress(b, at)
	})
}

// OnButtonReleased ingests a physical button release. held is the firmware
// reported press duration.
func (e *Engine) OnButtonReleased(b mapping.Button, at time.Time, held time.Duration) {
	if !b.Valid() {
		return
	}
	e.post(func() {
		if e.profile == nil {
			return
		}
		if e.chordRelease(b, at, held) {
			return
		}
		e.classifyRelease(b, at, held)
	})
}

// OnTouchDown ingests a touchpad contact start for slot 0 or 1.
func (e *Engine) OnTouchDown(slot int, x, y float64, at time.Time) {
	e.post(func() {
		if e.profile == nil {
			return
		}
		e.touch.Down(slot, x, y, at)
		e.syncTouch()
	})
}

// OnTouchMoved ingests a touchpad contact position update.
func (e *Engine) OnTouchMoved(slot int, x, y float64, at time.Time) {
	e.post(func() {
		if e.profile == nil {
			return
		}
		e.touch.Move(slot, x, y, at)
		e.syncTouch()
	})
}

// OnTouchUp ingests a touchpad contact end.
func (e *Engine) OnTouchUp(slot int, at time.Time) {
	e.post(func() {
		if e.profile == nil {
			return
		}
		e.touch.Up(slot, at)
		e.syncTouch()
	})
}

// OnDisconnect clears all live input state when the controller goes away,
// so nothing stays logically held across a reconnect.
func (e *Engine) OnDisconnect() {
	e.post(func() {
		e.applyProfile(e.profile)
	})
}

// handlePress routes one press through the chord window, the per-button
// classifier, and the sequence matcher, in that order. A fired chord claims
// its presses outright: they never reach the sequence history, and presses
// already recorded while buffered are purged.
func (e *Engine) handlePress(b mapping.Button, at time.Time) {
	switch e.chordPress(b, at) {
	case chordFired:
		e.seq.clear()
		return
	case chordPassthrough:
		e.classifyPress(b, at)
	case chordBuffered:
		// Recorded below so a window-expiry replay can still match.
	}
	if seq := e.seq.record(e.profile, b, at); seq != nil {
		e.emit(Event{Kind: KindSequence, Buttons: seq.Buttons, At: at})
		if seq.Suppress {
			e.suppressSequence(seq)
		}
		e.execute(seq.Action)
	}
}

// applyProfile makes p the active profile and resets every state machine.
// Clearing the scheduler bumps all timer generations, so firings scheduled
// under the old profile land as no-ops.
func (e *Engine) applyProfile(p *mapping.Profile) {
	e.sched.cancelAll()
	e.ticking = false
	e.states = [mapping.ButtonCount]pressState{}
	e.layers.Clear()
	e.chord.reset()
	e.seq.clear()
	e.touch.Reset()
	e.pinchAccum = 0
	e.gestureActive.Store(false)
	e.profile = p
	if p == nil {
		return
	}
	e.touch.SetParams(touchParams(&p.Timing), e.momentum)
	e.logf("profile %q active", p.Name)
}

// syncTouch keeps the periodic tick armed exactly while the recognizer
// needs time-based transitions, and publishes the gesture-ownership gate.
func (e *Engine) syncTouch() {
	e.gestureActive.Store(e.touch.Gesturing() || e.touch.Coasting())
	active := e.touch.Active()
	if active == e.ticking {
		return
	}
	e.ticking = active
	key := timerKey{engineTimer, purposeTouchTick}
	if !active {
		e.sched.cancel(key)
		return
	}
	e.sched.schedulePeriodic(key, touchTickInterval, func() {
		e.touch.Tick(time.Now())
		e.syncTouch()
	})
}

func (e *Engine) touchTap(fingers int) {
	kind := KindTap
	action := e.profile.Touch.Tap
	if fingers == 2 {
		kind = KindTwoFingerTap
		action = e.profile.Touch.TwoFingerTap
	}
	e.emit(Event{Kind: kind, At: time.Now()})
	if action != nil {
		e.execute(*action)
	}
}

func (e *Engine) touchLongTap() {
	e.emit(Event{Kind: KindLongTap, At: time.Now()})
	if e.profile.Touch.LongTap != nil {
		e.execute(*e.profile.Touch.LongTap)
	}
}

// touchPinch accumulates magnification deltas and dispatches one discrete
// pinch action per step crossed, in either direction.
func (e *Engine) touchPinch(delta float64) {
	e.pinchAccum += delta
	for e.pinchAccum >= pinchStep {
		e.pinchAccum -= pinchStep
		e.emit(Event{Kind: KindPinch, At: time.Now()})
		if e.profile.Touch.PinchOut != nil {
			e.execute(*e.profile.Touch.PinchOut)
		}
	}
	for e.pinchAccum <= -pinchStep {
		e.pinchAccum += pinchStep
		e.emit(Event{Kind: KindPinch, At: time.Now()})
		if e.profile.Touch.PinchIn != nil {
			e.execute(*e.profile.Touch.PinchIn)
		}
	}
}

func (e *Engine) emit(ev Event) {
	if e.verbose {
		log.Printf("gesture: %s %v", ev.Kind, ev.Buttons)
	}
	if e.observer != nil {
		e.observer(ev)
	}
}

func (e *Engine) execute(action mapping.Action) {
	if e.out == nil {
		return
	}
	if err := e.out.Execute(action); err != nil {
		log.Printf("action failed: %v", err)
	}
}

func (e *Engine) startHold(action mapping.Action) {
	if e.out == nil {
		return
	}
	if err := e.out.StartHold(action); err != nil {
		log.Printf("hold start failed: %v", err)
	}
}

func (e *Engine) stopHold(action mapping.Action) {
	if e.out == nil {
		return
	}
	if err := e.out.StopHold(action); err != nil {
		log.Printf("hold stop failed: %v", err)
	}
}

func (e *Engine) moveCursor(dx, dy float64) {
	if e.out == nil {
		return
	}
	if err := e.out.MoveCursor(dx, dy); err != nil {
		log.Printf("cursor move failed: %v", err)
	}
}

func (e *Engine) scroll(dx, dy float64, momentum bool) {
	if e.out == nil {
		return
	}
	if err := e.out.Scroll(dx, dy, momentum); err != nil {
		log.Printf("scroll failed: %v", err)
	}
}

func (e *Engine) logf(format string, args ...any) {
	if e.verbose {
		log.Printf(format, args...)
	}
}

// touchParams maps the profile's timing block onto the recognizer's
// thresholds.
func touchParams(t *mapping.Timing) touch.Params {
	return touch.Params{
		Settle:                  t.TouchSettle,
		TapMaxDuration:          t.TapMaxDuration,
		TapMaxMovement:          t.TapMaxMovement,
		TwoFingerTapMaxMovement: t.TwoFingerTapMaxMovement,
		TwoFingerTapMaxCenter:   t.TwoFingerTapMaxCenter,
		LongTapThreshold:        t.LongTapThreshold,
		LongTapMaxMovement:      t.LongTapMaxMovement,
		TwoFingerMinDistance:    t.TwoFingerMinDistance,
		PinchVsPanRatio:         t.PinchVsPanRatio,
		PinchDeadzone:           t.PinchDeadzone,
		PanDeadzone:             t.PanDeadzone,
		PinchLock:               t.PinchLock,
		TapCooldown:             t.TouchSettle,
	}
}
