package gesture

import (
	"fmt"
	"strings"
	"time"

	"github.com/pleimann/gopad/internal/mapping"
)

// Kind represents the classification assigned to a physical gesture.
type Kind int

const (
	KindPress Kind = iota
	KindDoubleTap
	KindLongHold
	KindRepeat
	KindChord
	KindSequence
	KindTap
	KindTwoFingerTap
	KindLongTap
	KindPan
	KindPinch
)

func (k Kind) String() string {
	switch k {
	case KindPress:
		return "press"
	case KindDoubleTap:
		return "double_tap"
	case KindLongHold:
		return "long_hold"
	case KindRepeat:
		return "repeat"
	case KindChord:
		return "chord"
	case KindSequence:
		return "sequence"
	case KindTap:
		return "tap"
	case KindTwoFingerTap:
		return "two_finger_tap"
	case KindLongTap:
		return "long_tap"
	case KindPan:
		return "pan"
	case KindPinch:
		return "pinch"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Event records one classification decision. Events are observational: they
// feed logging and tests, never control flow.
type Event struct {
	Kind    Kind
	Buttons []mapping.Button
	At      time.Time
}

func (e Event) String() string {
	if len(e.Buttons) == 0 {
		return e.Kind.String()
	}
	names := make([]string, len(e.Buttons))
	for i, b := range e.Buttons {
		names[i] = b.String()
	}
	return fmt.Sprintf("%s(%s)", e.Kind, strings.Join(names, "+"))
}

// buttonEvent is one recorded press, retained by the sequence history.
type buttonEvent struct {
	button mapping.Button
	at     time.Time
}
