// Package translator bridges two call legs and speaks each party's words,
// translated, into the other party's ear.
package translator

import "fmt"

// State is the lifecycle state of a CallSession.
type State int

const (
	// StateNew is a session that has not issued any command yet.
	StateNew State = iota
	// StateAnswered means answer has been queued for leg A.
	StateAnswered
	// StateAwaitingLanguage means the language menu is being gathered.
	StateAwaitingLanguage
	// StateBridging means the config/dub/dial sequence is being issued.
	StateBridging
	// StateActive is the steady state while both legs are bridged.
	StateActive
	// StateTerminating means the call engine reported an error or is closing.
	StateTerminating
	// StateClosed means the session has been released.
	StateClosed
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateAnswered:
		return "ANSWERED"
	case StateAwaitingLanguage:
		return "AWAITING_LANGUAGE"
	case StateBridging:
		return "BRIDGING"
	case StateActive:
		return "ACTIVE"
	case StateTerminating:
		return "TERMINATING"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// IsTerminal returns true once no further commands may be issued.
func (s State) IsTerminal() bool {
	return s == StateTerminating || s == StateClosed
}

// MarshalText lets State render by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
