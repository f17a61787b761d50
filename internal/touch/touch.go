// Package touch classifies raw touchpad contacts into taps, long-taps,
// two-finger pans and pinches, and direct pointer motion, with momentum
// continuation after a fast two-finger lift.
//
// The recognizer is driven entirely by explicit timestamps: Down, Move, Up
// and Tick all take the event time, so the whole state machine is
// deterministic and replayable. The engine owns one recognizer and calls it
// from its serial loop only.
package touch

import (
	"math"
	"time"

	"github.com/pleimann/gopad/internal/filter"
)

// Params are the gesture thresholds, resolved from the active profile.
type Params struct {
	Settle                  time.Duration
	TapMaxDuration          time.Duration
	TapMaxMovement          float64
	TwoFingerTapMaxMovement float64
	TwoFingerTapMaxCenter   float64
	LongTapThreshold        time.Duration
	LongTapMaxMovement      float64
	TwoFingerMinDistance    float64
	PinchVsPanRatio         float64
	PinchDeadzone           float64
	PanDeadzone             float64
	PinchLock               time.Duration
	TapCooldown             time.Duration

	PanScale     float64 // scroll units per normalized pad unit
	PointerScale float64 // pointer units per normalized pad unit
}

// Momentum are the post-lift continuation parameters.
type Momentum struct {
	StartVelocity float64 // pad units/s to qualify
	Sustain       time.Duration
	ReleaseWindow time.Duration
	DecayRate     float64 // 1/s exponential decay
	StopVelocity  float64
	MaxIdle       time.Duration
	BoostMin      float64
	BoostMax      float64
	BoostMaxVel   float64
}

// Filters configures the motion filter instances the recognizer owns.
type Filters struct {
	MinCutoff float64
	Beta      float64
	DCutoff   float64
}

// Callbacks receive classified output. All callbacks run on the caller's
// goroutine (the engine loop).
type Callbacks struct {
	Tap     func(fingers int)
	LongTap func()
	Pan     func(dx, dy float64)
	Pinch   func(delta float64) // signed magnification change
	Pointer func(dx, dy float64)
	Scroll  func(dx, dy float64) // momentum ticks
}

// contact is the per-finger-slot state, created on touch-down and destroyed
// on touch-up. At most two concurrent contacts.
type contact struct {
	x, y       float64
	baseX      float64 // position when the settle interval elapsed
	baseY      float64
	startedAt  time.Time
	lastMoved  time.Time
	cumulative float64
	settled    bool
}

// liftStats survive a contact to classify multi-finger taps when the last
// finger lifts.
type liftStats struct {
	duration   time.Duration
	cumulative float64
	at         time.Time
}

// Recognizer is the touchpad gesture state machine.
type Recognizer struct {
	params Params
	mo     Momentum
	cb     Callbacks

	slots     [2]*contact
	twoFinger bool          // ever had two concurrent contacts this touch session
	lifted    [2]*liftStats // indexed by slot, so thresholds track fingers

	// Two-finger derived state.
	centerFX, centerFY *filter.Motion
	distF              *filter.Motion
	havePrev           bool
	prevCX, prevCY     float64
	prevDist           float64
	prevSample         time.Time
	engaged            bool // a pan or pinch was emitted this session
	centerTravel       float64

	// Pinch direction lock: brief after a reversal to stop snap-back.
	pinchDir       int
	pinchLockUntil time.Time

	// Pointer filters for single-finger motion.
	pointerFX, pointerFY *filter.Motion
	havePointer          bool
	prevPX, prevPY       float64
	prevPointerAt        time.Time

	longTapFired bool
	cooldownTill time.Time

	// Pan velocity tracking for momentum qualification.
	velFX, velFY   *filter.Motion
	velX, velY     float64
	sustainedSince time.Time
	lastQualified  time.Time

	momentum momentumState
}

type momentumState struct {
	active   bool
	vx, vy   float64
	lastTick time.Time
}

// New creates a recognizer. Params and Momentum come from the active
// profile; Filters configure all owned motion filters.
func New(params Params, mo Momentum, f Filters, cb Callbacks) *Recognizer {
	mk := func() *filter.Motion { return filter.NewMotion(f.MinCutoff, f.Beta, f.DCutoff) }
	if params.LongTapThreshold == 0 {
		params.LongTapThreshold = params.TapMaxDuration
	}
	if params.TapCooldown == 0 {
		params.TapCooldown = params.Settle
	}
	if params.PanScale == 0 {
		params.PanScale = 40
	}
	if params.PointerScale == 0 {
		params.PointerScale = 100
	}
	return &Recognizer{
		params:    params,
		mo:        mo,
		cb:        cb,
		centerFX:  mk(),
		centerFY:  mk(),
		distF:     mk(),
		pointerFX: mk(),
		pointerFY: mk(),
		velFX:     mk(),
		velFY:     mk(),
	}
}

// SetParams swaps the thresholds on a profile switch. Live touch state is
// expected to have been Reset by the caller.
func (r *Recognizer) SetParams(params Params, mo Momentum) {
	if params.LongTapThreshold == 0 {
		params.LongTapThreshold = params.TapMaxDuration
	}
	if params.TapCooldown == 0 {
		params.TapCooldown = params.Settle
	}
	if params.PanScale == 0 {
		params.PanScale = 40
	}
	if params.PointerScale == 0 {
		params.PointerScale = 100
	}
	r.params = params
	r.mo = mo
}

// Active reports whether the recognizer needs periodic ticks: a finger is
// down or momentum is coasting.
func (r *Recognizer) Active() bool {
	return r.slots[0] != nil || r.slots[1] != nil || r.momentum.active
}

// Gesturing reports whether a two-finger gesture owns the pad right now.
// The stick poller uses this to redirect right-stick output.
func (r *Recognizer) Gesturing() bool {
	return (r.slots[0] != nil && r.slots[1] != nil) || r.engaged
}

// Down starts a contact in the given slot.
func (r *Recognizer) Down(slot int, x, y float64, at time.Time) {
	if slot < 0 || slot > 1 {
		return
	}
	if r.slots[slot] != nil {
		// Duplicate down for an occupied slot: restart the contact.
		r.slots[slot] = nil
	}

	// A new touch always stops coasting.
	r.momentum.active = false

	r.slots[slot] = &contact{
		x: x, y: y,
		baseX: x, baseY: y,
		startedAt: at,
		lastMoved: at,
	}

	if r.slots[0] != nil && r.slots[1] != nil {
		r.twoFinger = true
		r.longTapFired = false
		r.resetGestureFilters()
	} else if slot == 0 && r.slots[1] == nil {
		// Fresh session.
		r.twoFinger = false
		r.engaged = false
		r.longTapFired = false
		r.lifted = [2]*liftStats{}
		r.centerTravel = 0
		r.sustainedSince = time.Time{}
		r.resetPointerFilters()
		r.resetGestureFilters()
	}
}

// Up ends a contact. When the last finger lifts the session is classified.
func (r *Recognizer) Up(slot int, at time.Time) {
	if slot < 0 || slot > 1 || r.slots[slot] == nil {
		return // touch-up for an unknown slot: ignore
	}
	c := r.slots[slot]
	r.slots[slot] = nil
	r.lifted[slot] = &liftStats{
		duration:   at.Sub(c.startedAt),
		cumulative: c.cumulative,
		at:         at,
	}

	if r.slots[0] != nil || r.slots[1] != nil {
		// One finger remains; two-finger smoothing is stale now.
		r.resetGestureFilters()
		return
	}

	r.finishSession(at)
}

// Move updates a contact's position and may emit pan/pinch/pointer output.
func (r *Recognizer) Move(slot int, x, y float64, at time.Time) {
	if slot < 0 || slot > 1 || r.slots[slot] == nil {
		return
	}
	c := r.slots[slot]

	// Movement inside the settle interval is ignored entirely; it is
	// tap-induced drift, not intent.
	if !c.settled {
		if at.Sub(c.startedAt) < r.params.Settle {
			c.x, c.y = x, y
			c.lastMoved = at
			return
		}
		c.settled = true
		c.baseX, c.baseY = c.x, c.y
	}

	dx := x - c.x
	dy := y - c.y
	c.cumulative += math.Hypot(dx, dy)
	c.x, c.y = x, y
	c.lastMoved = at

	if r.slots[0] != nil && r.slots[1] != nil {
		r.moveTwoFinger(at)
		return
	}

	if r.twoFinger || r.longTapFired || at.Before(r.cooldownTill) {
		return
	}
	r.movePointer(x, y, at)
}

// moveTwoFinger disambiguates pinch against pan from the smoothed
// inter-finger distance and gesture center.
func (r *Recognizer) moveTwoFinger(at time.Time) {
	a, b := r.slots[0], r.slots[1]
	if !a.settled || !b.settled {
		return
	}

	dist := math.Hypot(b.x-a.x, b.y-a.y)
	if dist < r.params.TwoFingerMinDistance {
		return
	}
	cx := (a.x + b.x) / 2
	cy := (a.y + b.y) / 2

	if !r.havePrev {
		r.prevCX, r.prevCY = cx, cy
		r.prevDist = dist
		r.prevSample = at
		r.havePrev = true
		return
	}

	dt := at.Sub(r.prevSample).Seconds()
	if dt <= 0 {
		return
	}

	scx := r.centerFX.Filter(cx, dt)
	scy := r.centerFY.Filter(cy, dt)
	sdist := r.distF.Filter(dist, dt)

	panDX := scx - r.prevCX
	panDY := scy - r.prevCY
	pinchDelta := sdist - r.prevDist
	r.prevCX, r.prevCY = scx, scy
	r.prevDist = sdist
	r.prevSample = at

	panMag := math.Hypot(panDX, panDY)
	r.centerTravel += panMag

	// Track smoothed pan velocity for momentum qualification.
	r.velX = r.velFX.Filter(panDX/dt, dt)
	r.velY = r.velFY.Filter(panDY/dt, dt)
	speed := math.Hypot(r.velX, r.velY)
	if speed >= r.mo.StartVelocity {
		if r.sustainedSince.IsZero() {
			r.sustainedSince = at
		}
		r.lastQualified = at
	} else {
		r.sustainedSince = time.Time{}
	}

	pinchMag := math.Abs(pinchDelta)
	isPinch := pinchMag > r.params.PinchDeadzone &&
		(panMag <= 0 || pinchMag/panMag >= r.params.PinchVsPanRatio)

	if isPinch {
		dir := 1
		if pinchDelta < 0 {
			dir = -1
		}
		// Brief direction lock after a reversal prevents snap-back
		// when the fingers overshoot at the end of a zoom.
		if r.pinchDir != 0 && dir != r.pinchDir {
			if at.Before(r.pinchLockUntil) {
				return
			}
			r.pinchLockUntil = at.Add(r.params.PinchLock)
		}
		r.pinchDir = dir
		r.engaged = true
		if r.cb.Pinch != nil {
			r.cb.Pinch(pinchDelta)
		}
		return
	}

	if panMag < r.params.PanDeadzone {
		return
	}
	r.engaged = true
	if r.cb.Pan != nil {
		r.cb.Pan(panDX*r.params.PanScale, panDY*r.params.PanScale)
	}
}

// movePointer emits single-finger motion through the x/y filter pair.
func (r *Recognizer) movePointer(x, y float64, at time.Time) {
	if !r.havePointer {
		r.prevPX = x
		r.prevPY = y
		r.prevPointerAt = at
		r.havePointer = true
		r.pointerFX.Filter(x, 1e-3)
		r.pointerFY.Filter(y, 1e-3)
		return
	}
	dt := at.Sub(r.prevPointerAt).Seconds()
	if dt <= 0 {
		return
	}
	fx := r.pointerFX.Filter(x, dt)
	fy := r.pointerFY.Filter(y, dt)
	dx := (fx - r.prevPX) * r.params.PointerScale
	dy := (fy - r.prevPY) * r.params.PointerScale
	r.prevPX, r.prevPY = fx, fy
	r.prevPointerAt = at
	if r.cb.Pointer != nil && (dx != 0 || dy != 0) {
		r.cb.Pointer(dx, dy)
	}
}

// finishSession classifies at the final lift: momentum, two-finger tap, or
// single tap. Long-tap fired at its threshold, never here.
func (r *Recognizer) finishSession(at time.Time) {
	defer func() {
		r.lifted = [2]*liftStats{}
		r.twoFinger = false
		r.engaged = false
		r.havePointer = false
		r.resetPointerFilters()
		r.resetGestureFilters()
	}()

	if r.engaged {
		r.maybeStartMomentum(at)
		r.cooldownTill = at.Add(r.params.TapCooldown)
		return
	}
	if r.longTapFired {
		r.cooldownTill = at.Add(r.params.TapCooldown)
		return
	}

	if r.twoFinger && r.lifted[0] != nil && r.lifted[1] != nil {
		primary := *r.lifted[0]
		secondary := *r.lifted[1]
		ok := primary.duration <= r.params.TapMaxDuration &&
			secondary.duration <= r.params.TapMaxDuration &&
			primary.cumulative <= r.params.TapMaxMovement &&
			secondary.cumulative <= r.params.TwoFingerTapMaxMovement &&
			r.centerTravel <= r.params.TwoFingerTapMaxCenter
		if ok && r.cb.Tap != nil {
			r.cb.Tap(2)
		}
		r.cooldownTill = at.Add(r.params.TapCooldown)
		return
	}

	single := r.lifted[0]
	if single == nil {
		single = r.lifted[1]
	}
	if single != nil {
		s := *single
		if s.duration <= r.params.TapMaxDuration && s.cumulative <= r.params.TapMaxMovement {
			if r.cb.Tap != nil {
				r.cb.Tap(1)
			}
		}
		r.cooldownTill = at.Add(r.params.TapCooldown)
	}
}

// Tick drives time-based transitions: the long-tap threshold and momentum
// decay. The engine calls it at a fixed cadence while Active.
func (r *Recognizer) Tick(at time.Time) {
	// Long-tap fires at the threshold, not at lift, and only for a
	// single settled near-stationary contact.
	if !r.longTapFired && !r.twoFinger && !r.engaged {
		if c := r.slots[0]; c != nil && r.slots[1] == nil {
			if at.Sub(c.startedAt) >= r.params.LongTapThreshold &&
				c.cumulative <= r.params.LongTapMaxMovement {
				r.longTapFired = true
				if r.cb.LongTap != nil {
					r.cb.LongTap()
				}
			}
		}
	}

	r.tickMomentum(at)
}

func (r *Recognizer) resetGestureFilters() {
	r.centerFX.Reset()
	r.centerFY.Reset()
	r.distF.Reset()
	r.velFX.Reset()
	r.velFY.Reset()
	r.havePrev = false
	r.pinchDir = 0
	r.pinchLockUntil = time.Time{}
}

func (r *Recognizer) resetPointerFilters() {
	r.pointerFX.Reset()
	r.pointerFY.Reset()
	r.havePointer = false
}

// Reset drops all live state: contacts, filters, momentum, cooldowns.
// Called on profile switch and controller disconnect.
func (r *Recognizer) Reset() {
	r.slots[0] = nil
	r.slots[1] = nil
	r.lifted = [2]*liftStats{}
	r.twoFinger = false
	r.engaged = false
	r.longTapFired = false
	r.centerTravel = 0
	r.cooldownTill = time.Time{}
	r.sustainedSince = time.Time{}
	r.lastQualified = time.Time{}
	r.velX, r.velY = 0, 0
	r.momentum = momentumState{}
	r.resetGestureFilters()
	r.resetPointerFilters()
}
