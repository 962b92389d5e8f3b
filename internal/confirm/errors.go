package confirm

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned for an action the current state does
	// not allow. The controller state is left untouched.
	ErrInvalidTransition = errors.New("invalid review transition")
	ErrReviewNotFound    = errors.New("review not found")

	// ErrBlocked and ErrDenied are terminal for the draft under review.
	ErrBlocked = errors.New("account is inactive")
	ErrDenied  = errors.New("insufficient funds")
)

// PersistenceFailure reports that the ledger refused or failed to record a
// confirmed draft. Reason is the collaborator's message, verbatim.
type PersistenceFailure struct {
	Reason string
	Err    error
}

func (e *PersistenceFailure) Error() string {
	return "persistence failed: " + e.Reason
}

func (e *PersistenceFailure) Unwrap() error {
	return e.Err
}

func invalidTransition(action string, from State) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, action, from)
}
