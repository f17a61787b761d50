package stick

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/pleimann/gopad/internal/mapping"
)

type countSink struct {
	mu      sync.Mutex
	cursorX float64
	cursorY float64
	cursorN int
	scrollN int
	keys    []string
}

func (s *countSink) Execute(a mapping.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(a.Keys) > 0 {
		s.keys = append(s.keys, a.Keys[0])
	}
	return nil
}

func (s *countSink) StartHold(mapping.Action) error { return nil }
func (s *countSink) StopHold(mapping.Action) error  { return nil }

func (s *countSink) MoveCursor(dx, dy float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursorX += dx
	s.cursorY += dy
	s.cursorN++
	return nil
}

func (s *countSink) Scroll(dx, dy float64, momentum bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollN++
	return nil
}

func testFilter() FilterParams {
	return FilterParams{MinCutoff: 1, Beta: 0.01, DCutoff: 1}
}

func TestRadialDeadzoneZeroesSmallDeflection(t *testing.T) {
	x, y := radialDeadzone(0.05, 0.05)
	if x != 0 || y != 0 {
		t.Fatalf("expected zero inside deadzone, got %v,%v", x, y)
	}
}

func TestRadialDeadzonePreservesDirection(t *testing.T) {
	x, y := radialDeadzone(0.6, 0.8)
	if x == 0 && y == 0 {
		t.Fatal("full deflection zeroed")
	}
	// (0.6, 0.8) is a unit vector: direction must be intact.
	want := 0.8 / 0.6
	got := y / x
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("direction changed: want ratio %v, got %v", want, got)
	}
}

func TestRadialDeadzoneRampsFromZero(t *testing.T) {
	// Just past the dead radius the output should be tiny, not a jump.
	x, _ := radialDeadzone(0.13, 0)
	if x <= 0 || x > 0.05 {
		t.Fatalf("expected a small ramped value, got %v", x)
	}
	x, _ = radialDeadzone(1, 0)
	if math.Abs(x-1) > 1e-9 {
		t.Fatalf("full deflection should map to 1, got %v", x)
	}
}

func TestPointerModeEmitsCursorMotion(t *testing.T) {
	s := &countSink{}
	p := New(func() (float64, float64, float64, float64) {
		return 0.8, 0, 0, 0
	}, s, nil, testFilter())
	p.SetModes(mapping.StickPointer, mapping.StickNone)

	now := time.Now()
	for i := 0; i < 20; i++ {
		p.poll(now.Add(time.Duration(i)*8*time.Millisecond), 0.008)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursorN == 0 || s.cursorX <= 0 {
		t.Fatalf("expected rightward cursor motion, got n=%d x=%v", s.cursorN, s.cursorX)
	}
	if s.scrollN != 0 {
		t.Fatal("pointer mode must not scroll")
	}
}

func TestCenteredStickEmitsNothing(t *testing.T) {
	s := &countSink{}
	p := New(func() (float64, float64, float64, float64) {
		return 0.02, -0.03, 0, 0
	}, s, nil, testFilter())
	p.SetModes(mapping.StickPointer, mapping.StickScroll)

	now := time.Now()
	for i := 0; i < 10; i++ {
		p.poll(now.Add(time.Duration(i)*8*time.Millisecond), 0.008)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursorN != 0 || s.scrollN != 0 {
		t.Fatalf("deadzone leak: cursor=%d scroll=%d", s.cursorN, s.scrollN)
	}
}

func TestScrollModeEmitsScroll(t *testing.T) {
	s := &countSink{}
	p := New(func() (float64, float64, float64, float64) {
		return 0, 0, 0, 0.9
	}, s, nil, testFilter())
	p.SetModes(mapping.StickNone, mapping.StickScroll)

	now := time.Now()
	for i := 0; i < 10; i++ {
		p.poll(now.Add(time.Duration(i)*8*time.Millisecond), 0.008)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scrollN == 0 {
		t.Fatal("expected scroll output")
	}
}

func TestGateRedirectsRightStickToPointer(t *testing.T) {
	s := &countSink{}
	gated := true
	p := New(func() (float64, float64, float64, float64) {
		return 0, 0, 0.9, 0
	}, s, func() bool { return gated }, testFilter())
	p.SetModes(mapping.StickNone, mapping.StickScroll)

	now := time.Now()
	for i := 0; i < 10; i++ {
		p.poll(now.Add(time.Duration(i)*8*time.Millisecond), 0.008)
	}

	s.mu.Lock()
	if s.scrollN != 0 {
		s.mu.Unlock()
		t.Fatal("gated right stick still scrolled")
	}
	if s.cursorN == 0 {
		s.mu.Unlock()
		t.Fatal("gated right stick emitted no pointer motion")
	}
	s.mu.Unlock()

	// Gate released: scrolling resumes.
	gated = false
	for i := 10; i < 20; i++ {
		p.poll(now.Add(time.Duration(i)*8*time.Millisecond), 0.008)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scrollN == 0 {
		t.Fatal("right stick did not return to scrolling")
	}
}

func TestArrowModeRepeatsWithHysteresis(t *testing.T) {
	deflect := 1.0
	s := &countSink{}
	p := New(func() (float64, float64, float64, float64) {
		return deflect, 0, 0, 0
	}, s, nil, testFilter())
	p.SetModes(mapping.StickArrows, mapping.StickNone)

	now := time.Now()
	at := now
	step := func(n int) {
		for i := 0; i < n; i++ {
			at = at.Add(8 * time.Millisecond)
			p.poll(at, 0.008)
		}
	}

	step(1)
	s.mu.Lock()
	if len(s.keys) != 1 || s.keys[0] != "right" {
		s.mu.Unlock()
		t.Fatalf("expected one immediate right arrow, got %v", s.keys)
	}
	s.mu.Unlock()

	// Held: repeats at the repeat interval, roughly 2 more over 400ms.
	step(50)
	s.mu.Lock()
	n := len(s.keys)
	s.mu.Unlock()
	if n < 2 {
		t.Fatalf("expected key repeat while held, got %d presses", n)
	}

	// Back inside the release threshold: no more presses.
	deflect = 0.2
	step(2)
	s.mu.Lock()
	idle := len(s.keys)
	s.mu.Unlock()
	deflect = 0.4 // above release but below engage: still disengaged
	step(30)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.keys) != idle {
		t.Fatalf("hysteresis failed: %d -> %d presses", idle, len(s.keys))
	}
}

func TestDominantDirection(t *testing.T) {
	cases := []struct {
		x, y float64
		want arrowDir
	}{
		{1, 0.2, arrowRight},
		{-1, 0.2, arrowLeft},
		{0.2, 1, arrowDown},
		{0.2, -1, arrowUp},
	}
	for _, c := range cases {
		if got := dominantDirection(c.x, c.y); got != c.want {
			t.Fatalf("dominantDirection(%v,%v) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}
