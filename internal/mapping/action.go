package mapping

import (
	"fmt"
	"strings"

	"github.com/pleimann/gopad/internal/config"
)

// ActionKind discriminates the closed set of action variants. The engine
// never inspects an action's payload; only the output sink does.
type ActionKind int

const (
	ActionKeys ActionKind = iota
	ActionMacro
	ActionExec
	ActionScript
)

func (k ActionKind) String() string {
	switch k {
	case ActionKeys:
		return "keys"
	case ActionMacro:
		return "macro"
	case ActionExec:
		return "exec"
	case ActionScript:
		return "script"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Action is a compiled, immutable action binding.
type Action struct {
	Kind    ActionKind
	Keys    []string // ActionKeys, ActionMacro
	Command string   // ActionExec
	Script  string   // ActionScript: opaque reference for the scripting host
}

func (a Action) String() string {
	switch a.Kind {
	case ActionKeys, ActionMacro:
		return fmt.Sprintf("%s(%s)", a.Kind, strings.Join(a.Keys, " "))
	case ActionExec:
		return fmt.Sprintf("exec(%s)", a.Command)
	case ActionScript:
		return fmt.Sprintf("script(%s)", a.Script)
	}
	return a.Kind.String()
}

func compileAction(raw config.Action) (Action, error) {
	set := 0
	if len(raw.Keys) > 0 {
		set++
	}
	if len(raw.Macro) > 0 {
		set++
	}
	if raw.Exec != "" {
		set++
	}
	if raw.Script != "" {
		set++
	}
	if set == 0 {
		return Action{}, fmt.Errorf("action has no payload")
	}
	if set > 1 {
		return Action{}, fmt.Errorf("action must set exactly one of keys/macro/exec/script")
	}

	switch {
	case len(raw.Keys) > 0:
		return Action{Kind: ActionKeys, Keys: raw.Keys}, nil
	case len(raw.Macro) > 0:
		return Action{Kind: ActionMacro, Keys: raw.Macro}, nil
	case raw.Exec != "":
		return Action{Kind: ActionExec, Command: raw.Exec}, nil
	default:
		return Action{Kind: ActionScript, Script: raw.Script}, nil
	}
}

func compileActionPtr(raw *config.Action) (*Action, error) {
	if raw.IsZero() {
		return nil, nil
	}
	a, err := compileAction(*raw)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
