package mapping

import "fmt"

// Button identifies a physical controller button. The set is closed and the
// ordering is stable, so sorted button lists form deterministic chord keys.
type Button int

const (
	ButtonA Button = iota
	ButtonB
	ButtonX
	ButtonY
	ButtonLB
	ButtonRB
	ButtonLT
	ButtonRT
	ButtonBack
	ButtonStart
	ButtonGuide
	ButtonLStick
	ButtonRStick
	ButtonDpadUp
	ButtonDpadDown
	ButtonDpadLeft
	ButtonDpadRight
	ButtonPad // touchpad click

	ButtonCount
)

var buttonNames = [ButtonCount]string{
	"a", "b", "x", "y",
	"lb", "rb", "lt", "rt",
	"back", "start", "guide",
	"lstick", "rstick",
	"dpad_up", "dpad_down", "dpad_left", "dpad_right",
	"pad",
}

func (b Button) String() string {
	if b < 0 || b >= ButtonCount {
		return fmt.Sprintf("button(%d)", int(b))
	}
	return buttonNames[b]
}

// Valid reports whether b names a real button.
func (b Button) Valid() bool {
	return b >= 0 && b < ButtonCount
}

// ParseButton resolves a config button name to its identity.
func ParseButton(name string) (Button, error) {
	for i, n := range buttonNames {
		if n == name {
			return Button(i), nil
		}
	}
	return -1, fmt.Errorf("unknown button: %q", name)
}
