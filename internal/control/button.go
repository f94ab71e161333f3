// Package control turns button edge events into actions.
//
// Each logical button is a two-state machine:
//
//	Idle    + press   -> Pressed
//	Pressed + release -> Idle, emits Action
//	Pressed + press   -> Pressed (duplicate press ignored)
//	Idle    + release -> Idle    (spurious release ignored)
//
// An action therefore fires exactly once per clean press/release cycle.
package control

import (
	"fmt"
	"strings"
)

// ButtonID identifies a logical button.
type ButtonID int

const (
	Record ButtonID = iota
	Play
	Pause
)

func (b ButtonID) String() string {
	switch b {
	case Record:
		return "record"
	case Play:
		return "play"
	case Pause:
		return "pause"
	default:
		return fmt.Sprintf("button(%d)", int(b))
	}
}

// ParseButtonID maps an action name from configuration onto a ButtonID.
func ParseButtonID(name string) (ButtonID, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "record":
		return Record, nil
	case "play":
		return Play, nil
	case "pause":
		return Pause, nil
	default:
		return 0, fmt.Errorf("unknown button action %q", name)
	}
}

// State is the held state of a button.
type State int

const (
	Idle State = iota
	Pressed
)

func (s State) String() string {
	if s == Pressed {
		return "pressed"
	}
	return "idle"
}

// Action is emitted when a button completes a press/release cycle.
type Action struct {
	Button ButtonID
}

// ButtonStateMachine tracks the state of every registered button. It is owned by
// the engine loop and is not safe for concurrent use.
type ButtonStateMachine struct {
	states map[ButtonID]State
}

// NewButtonStateMachine registers the given buttons, all Idle. With no arguments
// it registers Record, Play and Pause.
func NewButtonStateMachine(buttons ...ButtonID) *ButtonStateMachine {
	if len(buttons) == 0 {
		buttons = []ButtonID{Record, Play, Pause}
	}
	m := &ButtonStateMachine{states: make(map[ButtonID]State, len(buttons))}
	for _, b := range buttons {
		m.states[b] = Idle
	}
	return m
}

// Press records a press edge. Unknown buttons and repeated presses are no-ops.
func (m *ButtonStateMachine) Press(id ButtonID) {
	if _, ok := m.states[id]; ok {
		m.states[id] = Pressed
	}
}

// Release records a release edge and reports the completed action, if any.
func (m *ButtonStateMachine) Release(id ButtonID) (Action, bool) {
	if m.states[id] != Pressed {
		return Action{}, false
	}
	m.states[id] = Idle
	return Action{Button: id}, true
}

// State returns the current state of id; unknown buttons report Idle.
func (m *ButtonStateMachine) State(id ButtonID) State {
	return m.states[id]
}
