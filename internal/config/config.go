package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Timing   TimingConfig   `yaml:"timing"`
	Filter   FilterConfig   `yaml:"filter"`
	Momentum MomentumConfig `yaml:"momentum"`
	Output   OutputConfig   `yaml:"output"`
	Profiles []Profile      `yaml:"profiles"`
}

type DeviceConfig struct {
	VendorID       uint16 `yaml:"vendor_id"`
	ProductID      uint16 `yaml:"product_id"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
}

// TimingConfig holds the global gesture thresholds. Profiles may override
// individual values; unset (nil) profile fields fall back to these.
type TimingConfig struct {
	ChordWindowMs           int     `yaml:"chord_window_ms"`
	DoubleTapWindowMs       int     `yaml:"double_tap_window_ms"`
	LongHoldThresholdMs     int     `yaml:"long_hold_threshold_ms"`
	RepeatIntervalMs        int     `yaml:"repeat_interval_ms"`
	SequenceWindowMs        int     `yaml:"sequence_window_ms"`
	TouchSettleMs           int     `yaml:"touch_settle_ms"`
	TapMaxDurationMs        int     `yaml:"tap_max_duration_ms"`
	LongTapThresholdMs      int     `yaml:"long_tap_threshold_ms"`
	TapMaxMovement          float64 `yaml:"tap_max_movement"`
	TwoFingerTapMaxMovement float64 `yaml:"two_finger_tap_max_movement"`
	TwoFingerTapMaxCenter   float64 `yaml:"two_finger_tap_max_center"`
	LongTapMaxMovement      float64 `yaml:"long_tap_max_movement"`
	TwoFingerMinDistance    float64 `yaml:"two_finger_min_distance"`
	PinchVsPanRatio         float64 `yaml:"pinch_vs_pan_ratio"`
	PinchDeadzone           float64 `yaml:"pinch_deadzone"`
	PanDeadzone             float64 `yaml:"pan_deadzone"`
	PinchLockMs             int     `yaml:"pinch_lock_ms"`
}

// TimingOverrides mirrors TimingConfig with pointer fields so a profile can
// override just the thresholds it cares about.
type TimingOverrides struct {
	ChordWindowMs       *int     `yaml:"chord_window_ms,omitempty"`
	DoubleTapWindowMs   *int     `yaml:"double_tap_window_ms,omitempty"`
	LongHoldThresholdMs *int     `yaml:"long_hold_threshold_ms,omitempty"`
	RepeatIntervalMs    *int     `yaml:"repeat_interval_ms,omitempty"`
	SequenceWindowMs    *int     `yaml:"sequence_window_ms,omitempty"`
	TouchSettleMs       *int     `yaml:"touch_settle_ms,omitempty"`
	TapMaxDurationMs    *int     `yaml:"tap_max_duration_ms,omitempty"`
	LongTapThresholdMs  *int     `yaml:"long_tap_threshold_ms,omitempty"`
	TapMaxMovement      *float64 `yaml:"tap_max_movement,omitempty"`
	LongTapMaxMovement  *float64 `yaml:"long_tap_max_movement,omitempty"`
	PinchVsPanRatio     *float64 `yaml:"pinch_vs_pan_ratio,omitempty"`
}

type FilterConfig struct {
	MinCutoff float64 `yaml:"min_cutoff"`
	Beta      float64 `yaml:"beta"`
	DCutoff   float64 `yaml:"d_cutoff"`
}

type MomentumConfig struct {
	StartVelocity   float64 `yaml:"start_velocity"`
	SustainMs       int     `yaml:"sustain_ms"`
	ReleaseWindowMs int     `yaml:"release_window_ms"`
	DecayRate       float64 `yaml:"decay_rate"`
	StopVelocity    float64 `yaml:"stop_velocity"`
	MaxIdleMs       int     `yaml:"max_idle_ms"`
	BoostMin        float64 `yaml:"boost_min"`
	BoostMax        float64 `yaml:"boost_max"`
	BoostMaxVel     float64 `yaml:"boost_max_velocity"`
}

type OutputConfig struct {
	Command           string   `yaml:"command"`
	Args              []string `yaml:"args"`
	WorkingDir        string   `yaml:"working_dir,omitempty"`
	CursorSensitivity float64  `yaml:"cursor_sensitivity"`
	ScrollSensitivity float64  `yaml:"scroll_sensitivity"`
}

type Profile struct {
	Name      string           `yaml:"name"`
	App       string           `yaml:"app,omitempty"`
	Timing    *TimingOverrides `yaml:"timing,omitempty"`
	Buttons   []ButtonBinding  `yaml:"buttons"`
	Chords    []ChordBinding   `yaml:"chords,omitempty"`
	Sequences []SequenceEntry  `yaml:"sequences,omitempty"`
	Layers    []LayerEntry     `yaml:"layers,omitempty"`
	Sticks    StickModes       `yaml:"sticks"`
	Touch     TouchBindings    `yaml:"touch"`
}

type ButtonBinding struct {
	Button    string  `yaml:"button"`
	Press     *Action `yaml:"press,omitempty"`
	DoubleTap *Action `yaml:"double_tap,omitempty"`
	LongHold  *Action `yaml:"long_hold,omitempty"`
	Repeat    *Action `yaml:"repeat,omitempty"`
	Hold      *Action `yaml:"hold,omitempty"`
}

type ChordBinding struct {
	Buttons []string `yaml:"buttons"`
	Action  Action   `yaml:"action"`
}

type SequenceEntry struct {
	Buttons            []string `yaml:"buttons"`
	WindowMs           int      `yaml:"window_ms,omitempty"`
	SuppressIndividual *bool    `yaml:"suppress_individual,omitempty"`
	Action             Action   `yaml:"action"`
}

type LayerEntry struct {
	Name      string          `yaml:"name"`
	Activator string          `yaml:"activator"`
	Buttons   []ButtonBinding `yaml:"buttons"`
}

type StickModes struct {
	Left  string `yaml:"left,omitempty"`  // pointer | scroll | arrows | none
	Right string `yaml:"right,omitempty"` // same
}

type TouchBindings struct {
	Tap          *Action `yaml:"tap,omitempty"`
	TwoFingerTap *Action `yaml:"two_finger_tap,omitempty"`
	LongTap      *Action `yaml:"long_tap,omitempty"`
	PinchIn      *Action `yaml:"pinch_in,omitempty"`
	PinchOut     *Action `yaml:"pinch_out,omitempty"`
}

// Action is the raw form of a mapped action. Exactly one of the fields
// should be set; the mapping compiler turns it into a tagged variant.
type Action struct {
	Keys   []string `yaml:"keys,omitempty"`
	Macro  []string `yaml:"macro,omitempty"`
	Exec   string   `yaml:"exec,omitempty"`
	Script string   `yaml:"script,omitempty"`
}

func (a *Action) IsZero() bool {
	return a == nil || (len(a.Keys) == 0 && len(a.Macro) == 0 && a.Exec == "" && a.Script == "")
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Device.VendorID == 0 {
		return fmt.Errorf("device.vendor_id is required")
	}
	if c.Device.ProductID == 0 {
		return fmt.Errorf("device.product_id is required")
	}
	if len(c.Profiles) == 0 {
		return fmt.Errorf("at least one profile is required")
	}

	names := make(map[string]bool)
	for i, p := range c.Profiles {
		if p.Name == "" {
			return fmt.Errorf("profile %d has no name", i)
		}
		if names[p.Name] {
			return fmt.Errorf("duplicate profile name: %s", p.Name)
		}
		names[p.Name] = true

		seen := make(map[string]bool)
		for _, btn := range p.Buttons {
			if seen[btn.Button] {
				return fmt.Errorf("profile %s: duplicate button %q", p.Name, btn.Button)
			}
			seen[btn.Button] = true
		}

		for j, chord := range p.Chords {
			if len(chord.Buttons) < 2 {
				return fmt.Errorf("profile %s: chord %d must have at least 2 buttons", p.Name, j)
			}
		}

		for j, seq := range p.Sequences {
			if len(seq.Buttons) < 2 {
				return fmt.Errorf("profile %s: sequence %d must have at least 2 steps", p.Name, j)
			}
		}

		layers := make(map[string]bool)
		for _, layer := range p.Layers {
			if layer.Name == "" {
				return fmt.Errorf("profile %s: layer with no name", p.Name)
			}
			if layers[layer.Name] {
				return fmt.Errorf("profile %s: duplicate layer name %q", p.Name, layer.Name)
			}
			layers[layer.Name] = true
			if layer.Activator == "" {
				return fmt.Errorf("profile %s: layer %s has no activator", p.Name, layer.Name)
			}
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Device.PollIntervalMs == 0 {
		c.Device.PollIntervalMs = 8
	}
	t := &c.Timing
	if t.ChordWindowMs == 0 {
		t.ChordWindowMs = 150
	}
	if t.DoubleTapWindowMs == 0 {
		t.DoubleTapWindowMs = 300
	}
	if t.LongHoldThresholdMs == 0 {
		t.LongHoldThresholdMs = 500
	}
	if t.RepeatIntervalMs == 0 {
		t.RepeatIntervalMs = 150
	}
	if t.SequenceWindowMs == 0 {
		t.SequenceWindowMs = 800
	}
	if t.TouchSettleMs == 0 {
		t.TouchSettleMs = 150
	}
	if t.TapMaxDurationMs == 0 {
		t.TapMaxDurationMs = 500
	}
	if t.LongTapThresholdMs == 0 {
		t.LongTapThresholdMs = 500
	}
	if t.TapMaxMovement == 0 {
		t.TapMaxMovement = 0.05
	}
	if t.TwoFingerTapMaxMovement == 0 {
		t.TwoFingerTapMaxMovement = 0.08
	}
	if t.TwoFingerTapMaxCenter == 0 {
		t.TwoFingerTapMaxCenter = 0.03
	}
	if t.LongTapMaxMovement == 0 {
		t.LongTapMaxMovement = 0.02
	}
	if t.TwoFingerMinDistance == 0 {
		t.TwoFingerMinDistance = 0.08
	}
	if t.PinchVsPanRatio == 0 {
		t.PinchVsPanRatio = 1.8
	}
	if t.PinchDeadzone == 0 {
		t.PinchDeadzone = 0.01
	}
	if t.PanDeadzone == 0 {
		t.PanDeadzone = 0.002
	}
	if t.PinchLockMs == 0 {
		t.PinchLockMs = 200
	}

	if c.Filter.MinCutoff == 0 {
		c.Filter.MinCutoff = 1.0
	}
	if c.Filter.Beta == 0 {
		c.Filter.Beta = 0.5
	}
	if c.Filter.DCutoff == 0 {
		c.Filter.DCutoff = 1.0
	}

	m := &c.Momentum
	if m.StartVelocity == 0 {
		m.StartVelocity = 0.6
	}
	if m.SustainMs == 0 {
		m.SustainMs = 80
	}
	if m.ReleaseWindowMs == 0 {
		m.ReleaseWindowMs = 100
	}
	if m.DecayRate == 0 {
		m.DecayRate = 3.0
	}
	if m.StopVelocity == 0 {
		m.StopVelocity = 0.05
	}
	if m.MaxIdleMs == 0 {
		m.MaxIdleMs = 500
	}
	if m.BoostMin == 0 {
		m.BoostMin = 1.0
	}
	if m.BoostMax == 0 {
		m.BoostMax = 2.5
	}
	if m.BoostMaxVel == 0 {
		m.BoostMaxVel = 3.0
	}

	if c.Output.CursorSensitivity == 0 {
		c.Output.CursorSensitivity = 1.0
	}
	if c.Output.ScrollSensitivity == 0 {
		c.Output.ScrollSensitivity = 1.0
	}
}

// Exists checks if a config file exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
