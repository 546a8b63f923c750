/*
Package errors provides semantic error types for the recovery registry.

Registry faults are the four terminal outcomes a caller of the guardian
registry has to interpret:

	var (
	    ErrInvalidGuardianSetup = errors.New("invalid guardian setup")
	    ErrInvalidThreshold     = errors.New("invalid threshold")
	    ErrAlreadyInitialized   = errors.New("guardians already initialized")
	    ErrAccountNotFound      = errors.New("account not found")
	)

Each is reported as a *GuardianError carrying a stable numeric Code, which
is what the host surfaces to clients. Store and boundary faults
(ErrNotFound, ErrConditionFailed, ErrCorruptSlot, ErrInvalidArgument, ...)
carry no code.

Usage:

	err := reg.Initialize(ctx, account, guardians, 2)
	if errors.IsAlreadyInitialized(err) {
	    // the account is set up; read it instead
	}

	code, ok := errors.CodeOf(err) // CodeAlreadyInitialized, true

All types support wrapping and match through the standard errors.Is.
*/
package errors
