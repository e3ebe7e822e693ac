package fitment

import (
	"fmt"

	"partstream/fitment-engine/internal/constants"
)

// ValidationState tracks whether a mapping has been confirmed accurate.
type ValidationState string

const (
	StateUnvalidated ValidationState = "unvalidated"
	StateValidated   ValidationState = "validated"
	StateInvalidated ValidationState = "invalidated"
)

// Transition names the cause of a state change.
type Transition string

const (
	TransitionConfirm       Transition = "confirm"        // explicit human confirm
	TransitionTrustedImport Transition = "trusted-import" // import rule that trusts the source
	TransitionReject        Transition = "reject"         // explicit reject
	TransitionEditReset     Transition = "edit-reset"     // any field edit forces re-review
)

// Apply returns the state reached from `from` via `t`, or an error when the
// transition is not legal. Validated never silently flips back: only an
// explicit reject or an edit reset moves it.
func Apply(from ValidationState, t Transition) (ValidationState, error) {
	switch t {
	case TransitionConfirm, TransitionTrustedImport:
		if from == StateValidated {
			return from, fmt.Errorf("mapping already validated")
		}
		return StateValidated, nil
	case TransitionReject:
		if from == StateInvalidated {
			return from, fmt.Errorf("mapping already invalidated")
		}
		return StateInvalidated, nil
	case TransitionEditReset:
		return StateUnvalidated, nil
	default:
		return from, fmt.Errorf("unknown transition %q", t)
	}
}

// ChangeKind maps a transition to the history entry kind it must emit.
func (t Transition) ChangeKind() constants.ChangeKind {
	switch t {
	case TransitionConfirm, TransitionTrustedImport:
		return constants.ChangeValidated
	case TransitionReject:
		return constants.ChangeInvalidated
	default:
		return constants.ChangeUpdated
	}
}

// IsValidated is a convenience for the denormalized boolean column kept in
// sync with the state.
func (s ValidationState) IsValidated() bool {
	return s == StateValidated
}
