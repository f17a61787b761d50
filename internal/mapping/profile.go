package mapping

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pleimann/gopad/internal/config"
)

// Timing is the fully resolved set of gesture thresholds for one profile:
// global defaults with the profile's own overrides applied. The engine reads
// only this struct, never the raw config.
type Timing struct {
	ChordWindow       time.Duration
	DoubleTapWindow   time.Duration
	LongHoldThreshold time.Duration
	RepeatInterval    time.Duration
	SequenceWindow    time.Duration

	TouchSettle             time.Duration
	TapMaxDuration          time.Duration
	LongTapThreshold        time.Duration
	TapMaxMovement          float64
	TwoFingerTapMaxMovement float64
	TwoFingerTapMaxCenter   float64
	LongTapMaxMovement      float64
	TwoFingerMinDistance    float64
	PinchVsPanRatio         float64
	PinchDeadzone           float64
	PanDeadzone             float64
	PinchLock               time.Duration
}

// Bindings holds the per-trigger actions of a single button within one layer.
type Bindings struct {
	Press     *Action
	DoubleTap *Action
	LongHold  *Action
	Repeat    *Action
	Hold      *Action
}

// Empty reports whether no trigger is bound.
func (b *Bindings) Empty() bool {
	return b == nil || (b.Press == nil && b.DoubleTap == nil && b.LongHold == nil && b.Repeat == nil && b.Hold == nil)
}

// LayerID indexes into Profile.Layers.
type LayerID int

// Layer is a hold-to-activate overlay of button bindings.
type Layer struct {
	ID        LayerID
	Name      string
	Activator Button
	Buttons   map[Button]*Bindings
}

// Chord maps a canonicalized simultaneous button set to one action.
type Chord struct {
	Buttons []Button // sorted
	Action  Action
}

// Key returns the canonical identity of the chord's button set.
func (c *Chord) Key() string {
	return ChordKey(c.Buttons)
}

// ChordKey canonicalizes a button set into a deterministic string key.
// The input is sorted in place.
func ChordKey(buttons []Button) string {
	sort.Slice(buttons, func(i, j int) bool { return buttons[i] < buttons[j] })
	var sb strings.Builder
	for i, b := range buttons {
		if i > 0 {
			sb.WriteByte('+')
		}
		sb.WriteString(strconv.Itoa(int(b)))
	}
	return sb.String()
}

// Sequence is an ordered multi-press pattern bound to one action.
type Sequence struct {
	Buttons  []Button
	Window   time.Duration
	Suppress bool // cancel the participating buttons' individual dispatches
	Action   Action
	order    int // declaration order, tie-break for equal lengths
}

// StickMode selects what a stick drives.
type StickMode int

const (
	StickNone StickMode = iota
	StickPointer
	StickScroll
	StickArrows
)

func (m StickMode) String() string {
	switch m {
	case StickPointer:
		return "pointer"
	case StickScroll:
		return "scroll"
	case StickArrows:
		return "arrows"
	default:
		return "none"
	}
}

func parseStickMode(s string) (StickMode, error) {
	switch s {
	case "", "none":
		return StickNone, nil
	case "pointer":
		return StickPointer, nil
	case "scroll":
		return StickScroll, nil
	case "arrows":
		return StickArrows, nil
	default:
		return StickNone, fmt.Errorf("unknown stick mode: %q", s)
	}
}

// TouchActions binds the discrete touchpad gestures.
type TouchActions struct {
	Tap          *Action
	TwoFingerTap *Action
	LongTap      *Action
	PinchIn      *Action
	PinchOut     *Action
}

// Profile is an immutable compiled profile. The engine swaps whole *Profile
// pointers on profile switch and never observes a half-updated one.
type Profile struct {
	Name string
	App  string // frontmost-application scope, empty = any

	Timing Timing

	Base       map[Button]*Bindings
	Layers     []*Layer
	Activators map[Button]LayerID

	Chords       map[string]*Chord
	ChordMembers map[Button]bool

	// Sequences sorted longest first, declaration order breaking ties.
	Sequences      []*Sequence
	MaxSequenceLen int
	MaxSequenceWin time.Duration

	LeftStick  StickMode
	RightStick StickMode

	Touch TouchActions
}

// Conflict describes an ambiguous configuration that was resolved
// deterministically at load time. Conflicts are reported, never fatal.
type Conflict struct {
	Profile string
	Button  Button
	Detail  string
}

func (c Conflict) String() string {
	return fmt.Sprintf("profile %s: button %s: %s", c.Profile, c.Button, c.Detail)
}

const (
	minSequenceWindow = 300 * time.Millisecond
	maxSequenceWindow = 3 * time.Second
)

// Compile turns the raw config into compiled profiles. Ambiguous
// configurations (a layer activator that also carries bindings) are resolved
// in favor of the activator role and reported as conflicts.
func Compile(cfg *config.Config) ([]*Profile, []Conflict, error) {
	var profiles []*Profile
	var conflicts []Conflict

	for i := range cfg.Profiles {
		p, c, err := compileProfile(&cfg.Timing, &cfg.Profiles[i])
		if err != nil {
			return nil, nil, fmt.Errorf("profile %s: %w", cfg.Profiles[i].Name, err)
		}
		profiles = append(profiles, p)
		conflicts = append(conflicts, c...)
	}

	return profiles, conflicts, nil
}

// Select returns the profile scoped to the given frontmost application, or
// the first unscoped profile when none matches.
func Select(profiles []*Profile, app string) *Profile {
	var fallback *Profile
	for _, p := range profiles {
		if p.App != "" && p.App == app {
			return p
		}
		if p.App == "" && fallback == nil {
			fallback = p
		}
	}
	if fallback == nil && len(profiles) > 0 {
		fallback = profiles[0]
	}
	return fallback
}

func compileProfile(global *config.TimingConfig, raw *config.Profile) (*Profile, []Conflict, error) {
	p := &Profile{
		Name:         raw.Name,
		App:          raw.App,
		Timing:       resolveTiming(global, raw.Timing),
		Base:         make(map[Button]*Bindings),
		Activators:   make(map[Button]LayerID),
		Chords:       make(map[string]*Chord),
		ChordMembers: make(map[Button]bool),
	}
	var conflicts []Conflict

	for _, bb := range raw.Buttons {
		btn, bindings, err := compileBindings(bb)
		if err != nil {
			return nil, nil, err
		}
		p.Base[btn] = bindings
	}

	for li, le := range raw.Layers {
		activator, err := ParseButton(le.Activator)
		if err != nil {
			return nil, nil, fmt.Errorf("layer %s: %w", le.Name, err)
		}
		layer := &Layer{
			ID:        LayerID(li),
			Name:      le.Name,
			Activator: activator,
			Buttons:   make(map[Button]*Bindings),
		}
		for _, bb := range le.Buttons {
			btn, bindings, err := compileBindings(bb)
			if err != nil {
				return nil, nil, fmt.Errorf("layer %s: %w", le.Name, err)
			}
			layer.Buttons[btn] = bindings
		}
		p.Layers = append(p.Layers, layer)

		if _, dup := p.Activators[activator]; dup {
			return nil, nil, fmt.Errorf("button %s activates two layers", activator)
		}
		p.Activators[activator] = layer.ID
	}

	// The activator role is authoritative: a residual binding on an
	// activator button is reported and ignored during resolution.
	for activator := range p.Activators {
		if !p.Base[activator].Empty() {
			conflicts = append(conflicts, Conflict{
				Profile: p.Name,
				Button:  activator,
				Detail:  "bound action ignored while acting as layer activator",
			})
		}
		for _, layer := range p.Layers {
			if !layer.Buttons[activator].Empty() {
				conflicts = append(conflicts, Conflict{
					Profile: p.Name,
					Button:  activator,
					Detail:  fmt.Sprintf("binding in layer %s ignored for activator", layer.Name),
				})
			}
		}
	}

	for _, cb := range raw.Chords {
		buttons, err := parseButtons(cb.Buttons)
		if err != nil {
			return nil, nil, fmt.Errorf("chord: %w", err)
		}
		action, err := compileAction(cb.Action)
		if err != nil {
			return nil, nil, fmt.Errorf("chord %v: %w", cb.Buttons, err)
		}
		chord := &Chord{Buttons: buttons, Action: action}
		key := chord.Key()
		if _, dup := p.Chords[key]; dup {
			return nil, nil, fmt.Errorf("duplicate chord %v", cb.Buttons)
		}
		p.Chords[key] = chord
		for _, b := range chord.Buttons {
			p.ChordMembers[b] = true
		}
	}

	for si, se := range raw.Sequences {
		buttons, err := parseButtons(se.Buttons)
		if err != nil {
			return nil, nil, fmt.Errorf("sequence: %w", err)
		}
		if allSame(buttons) {
			// A repeated single button is indistinguishable from a
			// double-tap at runtime; reject it here.
			return nil, nil, fmt.Errorf("sequence %v: single repeated button is ambiguous with double-tap", se.Buttons)
		}
		action, err := compileAction(se.Action)
		if err != nil {
			return nil, nil, fmt.Errorf("sequence %v: %w", se.Buttons, err)
		}

		window := p.Timing.SequenceWindow
		if se.WindowMs > 0 {
			window = time.Duration(se.WindowMs) * time.Millisecond
		}
		if window < minSequenceWindow {
			window = minSequenceWindow
		}
		if window > maxSequenceWindow {
			window = maxSequenceWindow
		}

		suppress := true
		if se.SuppressIndividual != nil {
			suppress = *se.SuppressIndividual
		}

		seq := &Sequence{
			Buttons:  buttons,
			Window:   window,
			Suppress: suppress,
			Action:   action,
			order:    si,
		}
		p.Sequences = append(p.Sequences, seq)
		if len(buttons) > p.MaxSequenceLen {
			p.MaxSequenceLen = len(buttons)
		}
		if window > p.MaxSequenceWin {
			p.MaxSequenceWin = window
		}
	}

	// Longest match wins; declaration order breaks ties.
	sort.SliceStable(p.Sequences, func(i, j int) bool {
		a, b := p.Sequences[i], p.Sequences[j]
		if len(a.Buttons) != len(b.Buttons) {
			return len(a.Buttons) > len(b.Buttons)
		}
		return a.order < b.order
	})

	var err error
	if p.LeftStick, err = parseStickMode(raw.Sticks.Left); err != nil {
		return nil, nil, err
	}
	if p.RightStick, err = parseStickMode(raw.Sticks.Right); err != nil {
		return nil, nil, err
	}

	if p.Touch.Tap, err = compileActionPtr(raw.Touch.Tap); err != nil {
		return nil, nil, fmt.Errorf("touch tap: %w", err)
	}
	if p.Touch.TwoFingerTap, err = compileActionPtr(raw.Touch.TwoFingerTap); err != nil {
		return nil, nil, fmt.Errorf("touch two_finger_tap: %w", err)
	}
	if p.Touch.LongTap, err = compileActionPtr(raw.Touch.LongTap); err != nil {
		return nil, nil, fmt.Errorf("touch long_tap: %w", err)
	}
	if p.Touch.PinchIn, err = compileActionPtr(raw.Touch.PinchIn); err != nil {
		return nil, nil, fmt.Errorf("touch pinch_in: %w", err)
	}
	if p.Touch.PinchOut, err = compileActionPtr(raw.Touch.PinchOut); err != nil {
		return nil, nil, fmt.Errorf("touch pinch_out: %w", err)
	}

	return p, conflicts, nil
}

func compileBindings(bb config.ButtonBinding) (Button, *Bindings, error) {
	btn, err := ParseButton(bb.Button)
	if err != nil {
		return -1, nil, err
	}

	var b Bindings
	if b.Press, err = compileActionPtr(bb.Press); err != nil {
		return -1, nil, fmt.Errorf("button %s press: %w", bb.Button, err)
	}
	if b.DoubleTap, err = compileActionPtr(bb.DoubleTap); err != nil {
		return -1, nil, fmt.Errorf("button %s double_tap: %w", bb.Button, err)
	}
	if b.LongHold, err = compileActionPtr(bb.LongHold); err != nil {
		return -1, nil, fmt.Errorf("button %s long_hold: %w", bb.Button, err)
	}
	if b.Repeat, err = compileActionPtr(bb.Repeat); err != nil {
		return -1, nil, fmt.Errorf("button %s repeat: %w", bb.Button, err)
	}
	if b.Hold, err = compileActionPtr(bb.Hold); err != nil {
		return -1, nil, fmt.Errorf("button %s hold: %w", bb.Button, err)
	}

	return btn, &b, nil
}

func parseButtons(names []string) ([]Button, error) {
	buttons := make([]Button, 0, len(names))
	for _, n := range names {
		b, err := ParseButton(n)
		if err != nil {
			return nil, err
		}
		buttons = append(buttons, b)
	}
	return buttons, nil
}

func allSame(buttons []Button) bool {
	for _, b := range buttons[1:] {
		if b != buttons[0] {
			return false
		}
	}
	return true
}

func resolveTiming(global *config.TimingConfig, o *config.TimingOverrides) Timing {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }

	t := Timing{
		ChordWindow:             ms(global.ChordWindowMs),
		DoubleTapWindow:         ms(global.DoubleTapWindowMs),
		LongHoldThreshold:       ms(global.LongHoldThresholdMs),
		RepeatInterval:          ms(global.RepeatIntervalMs),
		SequenceWindow:          ms(global.SequenceWindowMs),
		TouchSettle:             ms(global.TouchSettleMs),
		TapMaxDuration:          ms(global.TapMaxDurationMs),
		LongTapThreshold:        ms(global.LongTapThresholdMs),
		TapMaxMovement:          global.TapMaxMovement,
		TwoFingerTapMaxMovement: global.TwoFingerTapMaxMovement,
		TwoFingerTapMaxCenter:   global.TwoFingerTapMaxCenter,
		LongTapMaxMovement:      global.LongTapMaxMovement,
		TwoFingerMinDistance:    global.TwoFingerMinDistance,
		PinchVsPanRatio:         global.PinchVsPanRatio,
		PinchDeadzone:           global.PinchDeadzone,
		PanDeadzone:             global.PanDeadzone,
		PinchLock:               ms(global.PinchLockMs),
	}

	if o == nil {
		return t
	}
	if o.ChordWindowMs != nil {
		t.ChordWindow = ms(*o.ChordWindowMs)
	}
	if o.DoubleTapWindowMs != nil {
		t.DoubleTapWindow = ms(*o.DoubleTapWindowMs)
	}
	if o.LongHoldThresholdMs != nil {
		t.LongHoldThreshold = ms(*o.LongHoldThresholdMs)
	}
	if o.RepeatIntervalMs != nil {
		t.RepeatInterval = ms(*o.RepeatIntervalMs)
	}
	if o.SequenceWindowMs != nil {
		t.SequenceWindow = ms(*o.SequenceWindowMs)
	}
	if o.TouchSettleMs != nil {
		t.TouchSettle = ms(*o.TouchSettleMs)
	}
	if o.TapMaxDurationMs != nil {
		t.TapMaxDuration = ms(*o.TapMaxDurationMs)
	}
	if o.LongTapThresholdMs != nil {
		t.LongTapThreshold = ms(*o.LongTapThresholdMs)
	}
	if o.TapMaxMovement != nil {
		t.TapMaxMovement = *o.TapMaxMovement
	}
	if o.LongTapMaxMovement != nil {
		t.LongTapMaxMovement = *o.LongTapMaxMovement
	}
	if o.PinchVsPanRatio != nil {
		t.PinchVsPanRatio = *o.PinchVsPanRatio
	}
	return t
}
