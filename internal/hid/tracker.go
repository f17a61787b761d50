package hid

import (
	"sync/atomic"
	"time"
)

// Events receives the edges a Tracker derives from consecutive frames.
// Nil callbacks are skipped.
type Events struct {
	Pressed    func(button int, at time.Time)
	Released   func(button int, at time.Time, held time.Duration)
	TouchDown  func(slot int, x, y float64, at time.Time)
	TouchMoved func(slot int, x, y float64, at time.Time)
	TouchUp    func(slot int, at time.Time)
}

// Tracker turns the controller's full-state frames into press/release and
// touch edges. Held durations come from the device clock, so host-side
// delivery jitter does not distort them; u32 subtraction makes the
// millisecond wrap harmless.
//
// ProcessFrame must be called from a single goroutine (the device read
// loop). Axes may be read concurrently.
type Tracker struct {
	ev Events

	prevMask   uint32
	pressedAt  [32]uint32 // device ms at press, per bit
	prevTouch  [2]TouchPoint
	frameCount uint64

	// Latest axis snapshot, packed 4x s16 for lock-free reads by the
	// stick poller.
	axes atomic.Uint64
}

func NewTracker(ev Events) *Tracker {
	return &Tracker{ev: ev}
}

// ProcessFrame diffs f against the previous frame and fires edge events.
// at is the host arrival time; all downstream timestamps are host time.
func (t *Tracker) ProcessFrame(f *Frame, at time.Time) {
	t.frameCount++
	t.axes.Store(packAxes(f.Axes))

	changed := f.Buttons ^ t.prevMask
	for i := 0; i < 32 && changed != 0; i++ {
		bit := uint32(1) << i
		if changed&bit == 0 {
			continue
		}
		changed &^= bit
		if f.Buttons&bit != 0 {
			t.pressedAt[i] = f.Timestamp
			if t.ev.Pressed != nil {
				t.ev.Pressed(i, at)
			}
		} else {
			held := time.Duration(f.Timestamp-t.pressedAt[i]) * time.Millisecond
			if t.ev.Released != nil {
				t.ev.Released(i, at, held)
			}
		}
	}
	t.prevMask = f.Buttons

	for s := 0; s < 2; s++ {
		cur, prev := f.Touches[s], t.prevTouch[s]
		switch {
		case cur.Present && !prev.Present:
			x, y := cur.Norm()
			if t.ev.TouchDown != nil {
				t.ev.TouchDown(s, x, y, at)
			}
		case cur.Present && prev.Present:
			if cur.X != prev.X || cur.Y != prev.Y {
				x, y := cur.Norm()
				if t.ev.TouchMoved != nil {
					t.ev.TouchMoved(s, x, y, at)
				}
			}
		case !cur.Present && prev.Present:
			if t.ev.TouchUp != nil {
				t.ev.TouchUp(s, at)
			}
		}
		t.prevTouch[s] = cur
	}
}

// Reset drops all edge state, releasing any logically held buttons and
// contacts first. Called on device disconnect.
func (t *Tracker) Reset(at time.Time) {
	for i := 0; i < 32; i++ {
		bit := uint32(1) << i
		if t.prevMask&bit != 0 && t.ev.Released != nil {
			t.ev.Released(i, at, 0)
		}
	}
	t.prevMask = 0
	for s := 0; s < 2; s++ {
		if t.prevTouch[s].Present && t.ev.TouchUp != nil {
			t.ev.TouchUp(s, at)
		}
		t.prevTouch[s] = TouchPoint{}
	}
	t.axes.Store(0)
}

// Axes returns the latest stick deflections normalized to [-1, 1]. Safe
// from any goroutine.
func (t *Tracker) Axes() (lx, ly, rx, ry float64) {
	a := unpackAxes(t.axes.Load())
	norm := func(v int16) float64 {
		f := float64(v) / 32767
		if f < -1 {
			f = -1
		}
		return f
	}
	return norm(a[0]), norm(a[1]), norm(a[2]), norm(a[3])
}

func packAxes(a [4]int16) uint64 {
	return uint64(uint16(a[0])) |
		uint64(uint16(a[1]))<<16 |
		uint64(uint16(a[2]))<<32 |
		uint64(uint16(a[3]))<<48
}

func unpackAxes(v uint64) [4]int16 {
	return [4]int16{
		int16(uint16(v)),
		int16(uint16(v >> 16)),
		int16(uint16(v >> 32)),
		int16(uint16(v >> 48)),
	}
}
