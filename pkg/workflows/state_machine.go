package workflows

// StateMachine enforces status transitions over an arbitrary string-like
// state type.
type StateMachine[S comparable] struct {
	allowedTransitions map[S][]S
}

// NewStateMachine creates a state machine from an allowed-transitions table.
func NewStateMachine[S comparable](transitions map[S][]S) *StateMachine[S] {
	return &StateMachine[S]{allowedTransitions: transitions}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine[S]) CanTransition(from, to S) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine[S]) GetAllowedTransitions(from S) []S {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return nil
	}
	return allowed
}

// Terminal reports whether no further transitions are possible from a status.
func (sm *StateMachine[S]) Terminal(from S) bool {
	return len(sm.allowedTransitions[from]) == 0
}
