// Package stick polls the analog sticks at a fixed rate and turns their
// deflection into pointer motion, scrolling, or discrete arrow keys,
// depending on the active profile's stick modes.
package stick

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/pleimann/gopad/internal/filter"
	"github.com/pleimann/gopad/internal/mapping"
	"github.com/pleimann/gopad/internal/sink"
)

// DefaultInterval is the polling cadence, about 120Hz.
const DefaultInterval = 8333 * time.Microsecond

const (
	deadzone = 0.12

	// Arrow mode hysteresis: engage past the outer threshold, release
	// inside the inner one, so a stick resting near the edge of the
	// deadzone does not chatter.
	arrowEngage  = 0.5
	arrowRelease = 0.3
	arrowRepeat  = 150 * time.Millisecond

	pointerSpeed = 700.0 // units/s at full deflection
	scrollSpeed  = 30.0
)

// Source samples the current stick deflections, each axis in [-1, 1].
// Implementations must be safe to call from the poller goroutine.
type Source func() (lx, ly, rx, ry float64)

// Gate reports whether a touchpad gesture currently owns scrolling; while
// true the right stick is redirected to pointer motion regardless of mode.
type Gate func() bool

// Poller drives both sticks. It owns its filters and arrow state; modes
// are swapped atomically on profile change.
type Poller struct {
	src      Source
	out      sink.Sink
	gate     Gate
	interval time.Duration

	mu    sync.Mutex
	left  axisPair
	right axisPair

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// axisPair is the per-stick state: mode, smoothing filters, and the arrow
// direction machine.
type axisPair struct {
	mode mapping.StickMode

	fx, fy *filter.Motion

	arrowDir  arrowDir
	arrowNext time.Time
}

type arrowDir int

const (
	arrowNone arrowDir = iota
	arrowUp
	arrowDown
	arrowLeft
	arrowRight
)

func (d arrowDir) key() string {
	switch d {
	case arrowUp:
		return "up"
	case arrowDown:
		return "down"
	case arrowLeft:
		return "left"
	case arrowRight:
		return "right"
	}
	return ""
}

// New creates a poller. Modes default to none until SetModes is called.
func New(src Source, out sink.Sink, gate Gate, fc FilterParams) *Poller {
	mk := func() *filter.Motion { return filter.NewMotion(fc.MinCutoff, fc.Beta, fc.DCutoff) }
	return &Poller{
		src:      src,
		out:      out,
		gate:     gate,
		interval: DefaultInterval,
		left:     axisPair{fx: mk(), fy: mk()},
		right:    axisPair{fx: mk(), fy: mk()},
		done:     make(chan struct{}),
	}
}

// FilterParams configures the stick smoothing filters.
type FilterParams struct {
	MinCutoff float64
	Beta      float64
	DCutoff   float64
}

// SetModes installs the active profile's stick modes and resets smoothing
// and arrow state.
func (p *Poller) SetModes(left, right mapping.StickMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.left.mode = left
	p.right.mode = right
	p.left.reset()
	p.right.reset()
}

func (a *axisPair) reset() {
	a.fx.Reset()
	a.fy.Reset()
	a.arrowDir = arrowNone
	a.arrowNext = time.Time{}
}

// Start launches the polling goroutine.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.done:
				return
			case now := <-ticker.C:
				dt := now.Sub(last).Seconds()
				last = now
				p.poll(now, dt)
			}
		}
	}()
}

// Stop halts polling and waits for the goroutine to exit.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}

func (p *Poller) poll(now time.Time, dt float64) {
	if dt <= 0 {
		return
	}
	lx, ly, rx, ry := p.src()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.drive(&p.left, lx, ly, now, dt, false)
	p.drive(&p.right, rx, ry, now, dt, true)
}

func (p *Poller) drive(a *axisPair, x, y float64, now time.Time, dt float64, isRight bool) {
	mode := a.mode
	// While a two-finger touch gesture owns scrolling, the right stick
	// falls back to pointer motion so the two outputs cannot fight.
	if isRight && mode == mapping.StickScroll && p.gate != nil && p.gate() {
		mode = mapping.StickPointer
	}
	if mode == mapping.StickNone {
		return
	}

	x, y = radialDeadzone(x, y)

	switch mode {
	case mapping.StickPointer, mapping.StickScroll:
		fx := a.fx.Filter(x, dt)
		fy := a.fy.Filter(y, dt)
		if fx == 0 && fy == 0 {
			return
		}
		if mode == mapping.StickPointer {
			if err := p.out.MoveCursor(fx*pointerSpeed*dt, fy*pointerSpeed*dt); err != nil {
				log.Printf("stick cursor: %v", err)
			}
		} else {
			if err := p.out.Scroll(fx*scrollSpeed*dt, fy*scrollSpeed*dt, false); err != nil {
				log.Printf("stick scroll: %v", err)
			}
		}
	case mapping.StickArrows:
		p.arrows(a, x, y, now)
	}
}

// arrows maps deflection to a dominant direction with hysteresis and key
// repeat while engaged.
func (p *Poller) arrows(a *axisPair, x, y float64, now time.Time) {
	mag := math.Hypot(x, y)

	if a.arrowDir != arrowNone && mag < arrowRelease {
		a.arrowDir = arrowNone
		return
	}
	if a.arrowDir == arrowNone && mag < arrowEngage {
		return
	}

	dir := dominantDirection(x, y)
	if dir != a.arrowDir {
		a.arrowDir = dir
		a.arrowNext = now.Add(arrowRepeat)
		p.pressArrow(dir)
		return
	}
	if now.After(a.arrowNext) {
		a.arrowNext = now.Add(arrowRepeat)
		p.pressArrow(dir)
	}
}

func (p *Poller) pressArrow(dir arrowDir) {
	k := dir.key()
	if k == "" {
		return
	}
	err := p.out.Execute(mapping.Action{Kind: mapping.ActionKeys, Keys: []string{k}})
	if err != nil {
		log.Printf("stick arrow: %v", err)
	}
}

func dominantDirection(x, y float64) arrowDir {
	if math.Abs(x) >= math.Abs(y) {
		if x > 0 {
			return arrowRight
		}
		return arrowLeft
	}
	if y > 0 {
		return arrowDown
	}
	return arrowUp
}

// radialDeadzone zeroes deflection inside the dead radius and rescales the
// remainder so output magnitude ramps from 0 at the edge of the deadzone
// to 1 at full deflection, preserving direction.
func radialDeadzone(x, y float64) (float64, float64) {
	mag := math.Hypot(x, y)
	if mag < deadzone {
		return 0, 0
	}
	scaled := (mag - deadzone) / (1 - deadzone)
	if scaled > 1 {
		scaled = 1
	}
	return x / mag * scaled, y / mag * scaled
}
