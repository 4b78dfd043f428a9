package call

import "fmt"

// State is a position in a cached call's delivery state machine.
//
//	Idle -> [DeliveringCache] -> NetworkPending -> Terminal
//	Idle -> Terminal                  (Execute served from cache)
//	any non-terminal -> Canceled
//
// An asynchronous call enters Terminal when its final delivery starts
// running, not when the underlying call completes.
type State int32

const (
	StateIdle State = iota
	StateDeliveringCache
	StateNetworkPending
	StateTerminal
	StateCanceled
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDeliveringCache:
		return "delivering-cache"
	case StateNetworkPending:
		return "network-pending"
	case StateTerminal:
		return "terminal"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Done reports whether no further transitions are possible.
func (s State) Done() bool {
	return s == StateTerminal || s == StateCanceled
}

var transitions = map[State][]State{
	StateIdle:            {StateDeliveringCache, StateNetworkPending, StateTerminal, StateCanceled},
	StateDeliveringCache: {StateNetworkPending, StateCanceled},
	StateNetworkPending:  {StateTerminal, StateCanceled},
}

// CanTransition reports whether the machine may move from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Validate returns ErrInvalidTransition if s may not move to next.
func (s State) Validate(next State) error {
	if !s.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return nil
}
