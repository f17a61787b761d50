package touch

import (
	"math"
	"time"
)

// maybeStartMomentum decides at lift whether the pan was fast and sustained
// enough to keep scrolling. Velocity is the smoothed pan velocity at the
// last qualifying sample.
func (r *Recognizer) maybeStartMomentum(at time.Time) {
	if r.mo.StartVelocity <= 0 {
		return
	}
	if r.sustainedSince.IsZero() {
		return
	}
	if at.Sub(r.sustainedSince) < r.mo.Sustain {
		return
	}
	if at.Sub(r.lastQualified) > r.mo.ReleaseWindow {
		// The fingers slowed down before lifting; treat it as a
		// deliberate stop.
		return
	}
	r.momentum = momentumState{
		active:   true,
		vx:       r.velX,
		vy:       r.velY,
		lastTick: at,
	}
}

// tickMomentum applies exponential decay and emits a scroll step per tick.
// Low speed dissipates slowly, high speed gets an amplified start and
// decays toward the same floor.
func (r *Recognizer) tickMomentum(at time.Time) {
	if !r.momentum.active {
		return
	}
	dt := at.Sub(r.momentum.lastTick).Seconds()
	if dt <= 0 {
		return
	}
	if r.mo.MaxIdle > 0 && dt > r.mo.MaxIdle.Seconds() {
		// Ticks stopped arriving for too long; do not replay the
		// backlog as one giant scroll.
		r.momentum.active = false
		return
	}
	r.momentum.lastTick = at

	decay := math.Exp(-r.mo.DecayRate * dt)
	r.momentum.vx *= decay
	r.momentum.vy *= decay

	speed := math.Hypot(r.momentum.vx, r.momentum.vy)
	if speed < r.mo.StopVelocity {
		r.momentum.active = false
		return
	}

	boost := r.boostFor(speed)
	if r.cb.Scroll != nil {
		r.cb.Scroll(
			r.momentum.vx*boost*dt*r.params.PanScale,
			r.momentum.vy*boost*dt*r.params.PanScale,
		)
	}
}

// boostFor interpolates the velocity amplifier between BoostMin and
// BoostMax by speed, saturating at BoostMaxVel.
func (r *Recognizer) boostFor(speed float64) float64 {
	if r.mo.BoostMax <= r.mo.BoostMin || r.mo.BoostMaxVel <= 0 {
		if r.mo.BoostMin > 0 {
			return r.mo.BoostMin
		}
		return 1
	}
	t := speed / r.mo.BoostMaxVel
	if t > 1 {
		t = 1
	}
	return r.mo.BoostMin + (r.mo.BoostMax-r.mo.BoostMin)*t
}

// Coasting reports whether momentum scrolling is in progress.
func (r *Recognizer) Coasting() bool { return r.momentum.active }
