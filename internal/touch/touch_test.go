package touch

import (
	"math"
	"testing"
	"time"
)

func testParams() Params {
	return Params{
		Settle:                  150 * time.Millisecond,
		TapMaxDuration:          500 * time.Millisecond,
		TapMaxMovement:          0.05,
		TwoFingerTapMaxMovement: 0.08,
		TwoFingerTapMaxCenter:   0.04,
		LongTapThreshold:        500 * time.Millisecond,
		LongTapMaxMovement:      0.03,
		TwoFingerMinDistance:    0.05,
		PinchVsPanRatio:         1.8,
		PinchDeadzone:           0.002,
		PanDeadzone:             0.001,
		PinchLock:               200 * time.Millisecond,
		PanScale:                1,
		PointerScale:            1,
	}
}

func testMomentum() Momentum {
	return Momentum{
		StartVelocity: 0.5,
		Sustain:       50 * time.Millisecond,
		ReleaseWindow: 100 * time.Millisecond,
		DecayRate:     3.0,
		StopVelocity:  0.05,
		MaxIdle:       time.Second,
		BoostMin:      1.0,
		BoostMax:      2.5,
		BoostMaxVel:   3.0,
	}
}

func testFilters() Filters {
	return Filters{MinCutoff: 1.0, Beta: 0.01, DCutoff: 1.0}
}

type capture struct {
	taps    []int
	longTap int
	panX    float64
	panY    float64
	pinch   float64
	pointer int
	scrolls int
	scrollX float64
}

func (c *capture) callbacks() Callbacks {
	return Callbacks{
		Tap:     func(fingers int) { c.taps = append(c.taps, fingers) },
		LongTap: func() { c.longTap++ },
		Pan:     func(dx, dy float64) { c.panX += dx; c.panY += dy },
		Pinch:   func(d float64) { c.pinch += d },
		Pointer: func(dx, dy float64) { c.pointer++ },
		Scroll:  func(dx, dy float64) { c.scrolls++; c.scrollX += dx },
	}
}

func TestSingleFingerTap(t *testing.T) {
	var c capture
	r := New(testParams(), testMomentum(), testFilters(), c.callbacks())

	t0 := time.Now()
	r.Down(0, 0.5, 0.5, t0)
	r.Up(0, t0.Add(100*time.Millisecond))

	if len(c.taps) != 1 || c.taps[0] != 1 {
		t.Fatalf("expected one single-finger tap, got %v", c.taps)
	}
}

func TestTapRejectedWhenTooLong(t *testing.T) {
	var c capture
	r := New(testParams(), testMomentum(), testFilters(), c.callbacks())

	t0 := time.Now()
	r.Down(0, 0.5, 0.5, t0)
	r.Up(0, t0.Add(600*time.Millisecond))

	if len(c.taps) != 0 {
		t.Fatalf("expected no tap after a long press, got %v", c.taps)
	}
}

func TestTapRejectedWhenMoved(t *testing.T) {
	var c capture
	r := New(testParams(), testMomentum(), testFilters(), c.callbacks())

	t0 := time.Now()
	r.Down(0, 0.5, 0.5, t0)
	// Past the settle interval so movement counts.
	r.Move(0, 0.5, 0.5, t0.Add(160*time.Millisecond))
	r.Move(0, 0.7, 0.5, t0.Add(200*time.Millisecond))
	r.Up(0, t0.Add(250*time.Millisecond))

	if len(c.taps) != 0 {
		t.Fatalf("expected no tap after movement, got %v", c.taps)
	}
}

func TestSettleAbsorbsEarlyDrift(t *testing.T) {
	var c capture
	r := New(testParams(), testMomentum(), testFilters(), c.callbacks())

	t0 := time.Now()
	r.Down(0, 0.5, 0.5, t0)
	// Big jitter inside the settle interval must not disqualify the tap.
	r.Move(0, 0.8, 0.8, t0.Add(50*time.Millisecond))
	r.Move(0, 0.5, 0.5, t0.Add(100*time.Millisecond))
	r.Up(0, t0.Add(120*time.Millisecond))

	if len(c.taps) != 1 {
		t.Fatalf("expected tap despite pre-settle drift, got %v", c.taps)
	}
}

func TestTwoFingerTap(t *testing.T) {
	var c capture
	r := New(testParams(), testMomentum(), testFilters(), c.callbacks())

	t0 := time.Now()
	r.Down(0, 0.4, 0.5, t0)
	r.Down(1, 0.6, 0.5, t0.Add(20*time.Millisecond))
	r.Up(1, t0.Add(100*time.Millisecond))
	r.Up(0, t0.Add(110*time.Millisecond))

	if len(c.taps) != 1 || c.taps[0] != 2 {
		t.Fatalf("expected one two-finger tap, got %v", c.taps)
	}
}

func TestTwoFingerTapSecondaryLiftsFirst(t *testing.T) {
	var c capture
	r := New(testParams(), testMomentum(), testFilters(), c.callbacks())

	// The secondary finger drifts more than the primary ceiling allows
	// but stays within its own looser bound, and lifts first. The
	// thresholds follow the fingers, not the lift order.
	t0 := time.Now()
	r.Down(0, 0.50, 0.5, t0)
	r.Down(1, 0.53, 0.5, t0.Add(10*time.Millisecond))
	r.Move(1, 0.53, 0.5, t0.Add(170*time.Millisecond))
	r.Move(1, 0.56, 0.5, t0.Add(190*time.Millisecond))
	r.Move(1, 0.59, 0.5, t0.Add(210*time.Millisecond))
	r.Up(1, t0.Add(250*time.Millisecond))
	r.Up(0, t0.Add(260*time.Millisecond))

	if len(c.taps) != 1 || c.taps[0] != 2 {
		t.Fatalf("expected one two-finger tap, got %v", c.taps)
	}
}

func TestLongTapFiresAtThresholdAndSuppressesTap(t *testing.T) {
	var c capture
	r := New(testParams(), testMomentum(), testFilters(), c.callbacks())

	t0 := time.Now()
	r.Down(0, 0.5, 0.5, t0)
	r.Tick(t0.Add(400 * time.Millisecond))
	if c.longTap != 0 {
		t.Fatal("long-tap fired before the threshold")
	}
	r.Tick(t0.Add(500 * time.Millisecond))
	if c.longTap != 1 {
		t.Fatal("long-tap did not fire at the threshold")
	}
	r.Tick(t0.Add(600 * time.Millisecond))
	if c.longTap != 1 {
		t.Fatal("long-tap fired more than once")
	}
	r.Up(0, t0.Add(700*time.Millisecond))
	if len(c.taps) != 0 {
		t.Fatalf("lift after a long-tap must not also tap, got %v", c.taps)
	}
}

func TestTwoFingerPan(t *testing.T) {
	var c capture
	r := New(testParams(), testMomentum(), testFilters(), c.callbacks())

	t0 := time.Now()
	r.Down(0, 0.3, 0.5, t0)
	r.Down(1, 0.5, 0.5, t0)
	// Both fingers translate together: constant distance, moving center.
	for i := 1; i <= 20; i++ {
		at := t0.Add(time.Duration(150+i*10) * time.Millisecond)
		d := float64(i) * 0.01
		r.Move(0, 0.3+d, 0.5, at)
		r.Move(1, 0.5+d, 0.5, at)
	}
	if c.panX <= 0 {
		t.Fatalf("expected positive horizontal pan, got %v", c.panX)
	}
	if math.Abs(c.pinch) > math.Abs(c.panX)/2 {
		t.Fatalf("pan misclassified as pinch: pan=%v pinch=%v", c.panX, c.pinch)
	}

	r.Up(0, t0.Add(400*time.Millisecond))
	r.Up(1, t0.Add(400*time.Millisecond))
	if len(c.taps) != 0 {
		t.Fatalf("pan lift must not tap, got %v", c.taps)
	}
}

func TestTwoFingerPinch(t *testing.T) {
	var c capture
	r := New(testParams(), testMomentum(), testFilters(), c.callbacks())

	t0 := time.Now()
	r.Down(0, 0.4, 0.5, t0)
	r.Down(1, 0.6, 0.5, t0)
	// Fingers spread symmetrically: fixed center, growing distance.
	for i := 1; i <= 20; i++ {
		at := t0.Add(time.Duration(150+i*10) * time.Millisecond)
		d := float64(i) * 0.01
		r.Move(0, 0.4-d, 0.5, at)
		r.Move(1, 0.6+d, 0.5, at)
	}
	if c.pinch <= 0 {
		t.Fatalf("expected positive pinch (spread), got %v", c.pinch)
	}
	if math.Abs(c.panX) > c.pinch/2 {
		t.Fatalf("pinch misclassified as pan: pan=%v pinch=%v", c.panX, c.pinch)
	}
}

func TestSingleFingerPointerMotion(t *testing.T) {
	var c capture
	r := New(testParams(), testMomentum(), testFilters(), c.callbacks())

	t0 := time.Now()
	r.Down(0, 0.2, 0.2, t0)
	for i := 1; i <= 10; i++ {
		at := t0.Add(time.Duration(150+i*10) * time.Millisecond)
		r.Move(0, 0.2+float64(i)*0.02, 0.2, at)
	}
	if c.pointer == 0 {
		t.Fatal("expected pointer motion output")
	}
}

func TestMomentumAfterFastPan(t *testing.T) {
	var c capture
	r := New(testParams(), testMomentum(), testFilters(), c.callbacks())

	t0 := time.Now()
	r.Down(0, 0.1, 0.5, t0)
	r.Down(1, 0.3, 0.5, t0)
	// Fast sustained swipe: ~2 pad units/s for 200ms.
	var at time.Time
	for i := 1; i <= 20; i++ {
		at = t0.Add(time.Duration(150+i*10) * time.Millisecond)
		d := float64(i) * 0.02
		r.Move(0, 0.1+d, 0.5, at)
		r.Move(1, 0.3+d, 0.5, at)
	}
	r.Up(0, at.Add(10*time.Millisecond))
	r.Up(1, at.Add(10*time.Millisecond))

	if !r.Coasting() {
		t.Fatal("expected momentum after a fast sustained pan")
	}

	// Ticks should emit scrolls in the pan direction and decay to a stop.
	tick := at.Add(10 * time.Millisecond)
	for i := 0; i < 500 && r.Coasting(); i++ {
		tick = tick.Add(16 * time.Millisecond)
		r.Tick(tick)
	}
	if r.Coasting() {
		t.Fatal("momentum never decayed below the stop threshold")
	}
	if c.scrolls == 0 || c.scrollX <= 0 {
		t.Fatalf("expected positive momentum scrolls, got n=%d x=%v", c.scrolls, c.scrollX)
	}
}

func TestNoMomentumAfterSlowRelease(t *testing.T) {
	var c capture
	r := New(testParams(), testMomentum(), testFilters(), c.callbacks())

	t0 := time.Now()
	r.Down(0, 0.1, 0.5, t0)
	r.Down(1, 0.3, 0.5, t0)
	var at time.Time
	// Fast phase, then a slow-down before lift.
	for i := 1; i <= 15; i++ {
		at = t0.Add(time.Duration(150+i*10) * time.Millisecond)
		d := float64(i) * 0.02
		r.Move(0, 0.1+d, 0.5, at)
		r.Move(1, 0.3+d, 0.5, at)
	}
	for i := 1; i <= 40; i++ {
		at = at.Add(10 * time.Millisecond)
		r.Move(0, 0.4, 0.5, at)
		r.Move(1, 0.6, 0.5, at)
	}
	r.Up(0, at.Add(10*time.Millisecond))
	r.Up(1, at.Add(10*time.Millisecond))

	if r.Coasting() {
		t.Fatal("slow release must not start momentum")
	}
}

func TestNewTouchStopsMomentum(t *testing.T) {
	var c capture
	r := New(testParams(), testMomentum(), testFilters(), c.callbacks())
	r.momentum = momentumState{active: true, vx: 1, lastTick: time.Now()}

	r.Down(0, 0.5, 0.5, time.Now())
	if r.Coasting() {
		t.Fatal("a new touch must stop coasting")
	}
}

func TestMomentumIdleTimeout(t *testing.T) {
	var c capture
	r := New(testParams(), testMomentum(), testFilters(), c.callbacks())
	t0 := time.Now()
	r.momentum = momentumState{active: true, vx: 2, lastTick: t0}

	// A tick far in the future must stop coasting without emitting the
	// accumulated backlog.
	r.Tick(t0.Add(5 * time.Second))
	if r.Coasting() {
		t.Fatal("expected idle timeout to stop momentum")
	}
	if c.scrolls != 0 {
		t.Fatalf("idle timeout must not emit a scroll, got %d", c.scrolls)
	}
}

func TestUpForUnknownSlotIgnored(t *testing.T) {
	var c capture
	r := New(testParams(), testMomentum(), testFilters(), c.callbacks())
	r.Up(1, time.Now())
	r.Move(0, 0.5, 0.5, time.Now())
	if r.Active() {
		t.Fatal("orphan events must not create state")
	}
}

func TestResetClearsEverything(t *testing.T) {
	var c capture
	r := New(testParams(), testMomentum(), testFilters(), c.callbacks())
	t0 := time.Now()
	r.Down(0, 0.5, 0.5, t0)
	r.Down(1, 0.7, 0.5, t0)
	r.momentum.active = true
	r.Reset()
	if r.Active() || r.Gesturing() || r.Coasting() {
		t.Fatal("reset left live state behind")
	}
}
