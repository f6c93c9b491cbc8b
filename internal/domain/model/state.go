package model

import (
	"fmt"
	"strings"
)

type State string

const (
	StatePresent    State = "present"
	StateCheckedOut State = "checked-out"
)

func (s State) String() string {
	return string(s)
}

func (s State) IsValid() bool {
	switch s {
	case StatePresent, StateCheckedOut:
		return true
	default:
		return false
	}
}

func ParseState(s string) (State, error) {
	state := State(strings.ToLower(strings.TrimSpace(s)))
	if !state.IsValid() {
		return "", fmt.Errorf("invalid state: %s", s)
	}

	return state, nil
}

func AllStates() []State {
	return []State{StatePresent, StateCheckedOut}
}
