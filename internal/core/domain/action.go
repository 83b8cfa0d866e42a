package domain

import (
	"fmt"
	"strings"
)

// Action is the lifecycle action applied to every running instance found
// during one invocation. It is fixed for the whole sweep, never per-instance.
type Action string

const (
	ActionStop      Action = "STOP"
	ActionTerminate Action = "TERMINATE"
)

func (a Action) String() string {
	return string(a)
}

// ParseAction accepts the action name in any case ("stop", "TeRmInAtE").
func ParseAction(raw string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(ActionStop):
		return ActionStop, nil
	case string(ActionTerminate):
		return ActionTerminate, nil
	default:
		return "", fmt.Errorf("unknown sweep action %q (expected STOP or TERMINATE)", raw)
	}
}
