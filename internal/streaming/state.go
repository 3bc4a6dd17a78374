package streaming

import log "github.com/sirupsen/logrus"

// State is the lifecycle of a relay session.
type State int

const (
	StateOpen State = iota
	StateClosing
	StateError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	case StateError:
		return "ERROR"
	case StateClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

var allowedTransitions = map[State][]State{
	StateOpen:    {StateClosing, StateError},
	StateClosing: {StateClosed},
	StateError:   {StateClosed},
}

type stateMachine struct {
	state State
	log   *log.Entry
}

// to moves to next if the transition is legal; illegal moves are logged and ignored.
func (m *stateMachine) to(next State) bool {
	for _, s := range allowedTransitions[m.state] {
		if s == next {
			m.state = next
			return true
		}
	}
	if m.log != nil {
		m.log.WithFields(log.Fields{"from": m.state.String(), "to": next.String()}).Warn("ignoring illegal session transition")
	}
	return false
}
