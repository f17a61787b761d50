package mapping

import (
	"testing"
	"time"

	"github.com/pleimann/gopad/internal/config"
)

func act(name string) *config.Action {
	return &config.Action{Keys: []string{name}}
}

func baseTiming() config.TimingConfig {
	return config.TimingConfig{
		ChordWindowMs:       150,
		DoubleTapWindowMs:   300,
		LongHoldThresholdMs: 500,
		RepeatIntervalMs:    150,
		SequenceWindowMs:    800,
		TapMaxDurationMs:    500,
		LongTapThresholdMs:  500,
	}
}

func compileOne(t *testing.T, p config.Profile) (*Profile, []Conflict) {
	t.Helper()
	cfg := &config.Config{
		Timing:   baseTiming(),
		Profiles: []config.Profile{p},
	}
	profiles, conflicts, err := Compile(cfg)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("Compile() returned %d profiles", len(profiles))
	}
	return profiles[0], conflicts
}

func TestParseButton(t *testing.T) {
	b, err := ParseButton("dpad_left")
	if err != nil {
		t.Fatalf("ParseButton() error: %v", err)
	}
	if b != ButtonDpadLeft {
		t.Errorf("ParseButton(dpad_left) = %v", b)
	}
	if b.String() != "dpad_left" {
		t.Errorf("round trip = %q", b.String())
	}
	if _, err := ParseButton("turbo"); err == nil {
		t.Error("ParseButton(turbo) expected error")
	}
}

func TestCompileTimings(t *testing.T) {
	p, _ := compileOne(t, config.Profile{Name: "default"})
	if p.Timing.ChordWindow != 150*time.Millisecond {
		t.Errorf("chord window = %v", p.Timing.ChordWindow)
	}
	if p.Timing.LongHoldThreshold != 500*time.Millisecond {
		t.Errorf("long-hold = %v", p.Timing.LongHoldThreshold)
	}
}

func TestCompileTimingOverride(t *testing.T) {
	override := 250
	p, _ := compileOne(t, config.Profile{
		Name:   "default",
		Timing: &config.TimingOverrides{LongHoldThresholdMs: &override},
	})
	if p.Timing.LongHoldThreshold != 250*time.Millisecond {
		t.Errorf("overridden long-hold = %v", p.Timing.LongHoldThreshold)
	}
	// Untouched values inherit the globals.
	if p.Timing.ChordWindow != 150*time.Millisecond {
		t.Errorf("chord window = %v", p.Timing.ChordWindow)
	}
}

func TestCompileLongTapThresholdIndependent(t *testing.T) {
	override := 250
	p, _ := compileOne(t, config.Profile{
		Name:   "default",
		Timing: &config.TimingOverrides{TapMaxDurationMs: &override},
	})
	if p.Timing.TapMaxDuration != 250*time.Millisecond {
		t.Errorf("overridden tap max duration = %v", p.Timing.TapMaxDuration)
	}
	// The long-tap threshold does not follow the tap ceiling.
	if p.Timing.LongTapThreshold != 500*time.Millisecond {
		t.Errorf("long-tap threshold = %v", p.Timing.LongTapThreshold)
	}
}

func TestCompileChordsCanonicalized(t *testing.T) {
	p, _ := compileOne(t, config.Profile{
		Name: "default",
		Chords: []config.ChordBinding{
			{Buttons: []string{"rb", "lb"}, Action: config.Action{Keys: []string{"ch"}}},
		},
	})

	// Lookup must succeed regardless of press order.
	if _, ok := p.Chords[ChordKey([]Button{ButtonLB, ButtonRB})]; !ok {
		t.Fatal("chord not found under canonical key")
	}
	if _, ok := p.Chords[ChordKey([]Button{ButtonRB, ButtonLB})]; !ok {
		t.Fatal("chord key is order sensitive")
	}
	if !p.ChordMembers[ButtonLB] || !p.ChordMembers[ButtonRB] {
		t.Error("chord membership not recorded")
	}
	if p.ChordMembers[ButtonA] {
		t.Error("non-member marked as chord member")
	}
}

func TestCompileSequenceOrderAndDefaults(t *testing.T) {
	p, _ := compileOne(t, config.Profile{
		Name: "default",
		Sequences: []config.SequenceEntry{
			{Buttons: []string{"a", "b"}, Action: config.Action{Keys: []string{"s2"}}},
			{Buttons: []string{"a", "b", "a"}, Action: config.Action{Keys: []string{"s3"}}},
		},
	})

	if len(p.Sequences) != 2 {
		t.Fatalf("sequences = %d", len(p.Sequences))
	}
	// Longest first.
	if len(p.Sequences[0].Buttons) != 3 {
		t.Errorf("first sequence has %d steps, want 3", len(p.Sequences[0].Buttons))
	}
	if !p.Sequences[0].Suppress {
		t.Error("suppress should default to true")
	}
	if p.MaxSequenceLen != 3 {
		t.Errorf("max sequence length = %d", p.MaxSequenceLen)
	}
}

func TestCompileSequenceWindowClamped(t *testing.T) {
	p, _ := compileOne(t, config.Profile{
		Name: "default",
		Sequences: []config.SequenceEntry{
			{Buttons: []string{"a", "b"}, WindowMs: 50, Action: config.Action{Keys: []string{"fast"}}},
			{Buttons: []string{"x", "y"}, WindowMs: 60000, Action: config.Action{Keys: []string{"slow"}}},
		},
	})

	for _, s := range p.Sequences {
		if s.Window < minSequenceWindow || s.Window > maxSequenceWindow {
			t.Errorf("window %v outside clamp range", s.Window)
		}
	}
}

func TestCompileRejectsRepeatedSingleButtonSequence(t *testing.T) {
	cfg := &config.Config{
		Timing: baseTiming(),
		Profiles: []config.Profile{{
			Name: "default",
			Sequences: []config.SequenceEntry{
				{Buttons: []string{"a", "a"}, Action: config.Action{Keys: []string{"x"}}},
			},
		}},
	}
	if _, _, err := Compile(cfg); err == nil {
		t.Fatal("expected error for a sequence of one repeated button")
	}
}

func TestCompileActivatorConflictReported(t *testing.T) {
	p, conflicts := compileOne(t, config.Profile{
		Name: "default",
		Buttons: []config.ButtonBinding{
			{Button: "lb", Press: act("p-lb")},
		},
		Layers: []config.LayerEntry{
			{Name: "nav", Activator: "lb"},
		},
	})

	if len(conflicts) != 1 {
		t.Fatalf("conflicts = %v", conflicts)
	}
	// The activator role wins: lb resolves to nothing.
	if got := Resolve(p, NewLayerStack(), ButtonLB); got != nil {
		t.Errorf("activator resolved to %+v", got)
	}
}

func TestCompileRejectsActionWithTwoPayloads(t *testing.T) {
	cfg := &config.Config{
		Timing: baseTiming(),
		Profiles: []config.Profile{{
			Name: "default",
			Buttons: []config.ButtonBinding{
				{Button: "a", Press: &config.Action{Keys: []string{"x"}, Exec: "ls"}},
			},
		}},
	}
	if _, _, err := Compile(cfg); err == nil {
		t.Fatal("expected error for an action with two payloads")
	}
}

func TestSelectPrefersAppMatch(t *testing.T) {
	cfg := &config.Config{
		Timing: baseTiming(),
		Profiles: []config.Profile{
			{Name: "default"},
			{Name: "editor", App: "vim"},
		},
	}
	profiles, _, err := Compile(cfg)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	if got := Select(profiles, "vim"); got.Name != "editor" {
		t.Errorf("Select(vim) = %s", got.Name)
	}
	if got := Select(profiles, "browser"); got.Name != "default" {
		t.Errorf("Select(browser) = %s", got.Name)
	}
	if got := Select(profiles, ""); got.Name != "default" {
		t.Errorf("Select(none) = %s", got.Name)
	}
}
