package lockup

import "errors"

var (
	// ErrAmbiguousCorrelation is returned when more than one lock event matches a deposit.
	ErrAmbiguousCorrelation = errors.New("more than one lock event matches the deposit")

	// ErrUnresolvedCorrelation is returned when no lock event matches a deposit made after lock history began.
	ErrUnresolvedCorrelation = errors.New("no lock event matches the deposit")

	// ErrLockupMismatch is returned when a withdrawal differs from the locked value.
	ErrLockupMismatch = errors.New("the values of lockup and withdraw are different")

	// ErrNegativeLockup is returned when a withdrawal exceeds the locked value.
	ErrNegativeLockup = errors.New("withdrawal exceeds the locked value")
)
