package orchestrator

import "errors"

// Common errors returned by the orchestrator.
var (
	// ErrNotFound is returned when a deployment or project does not exist.
	ErrNotFound = errors.New("not found")
	// ErrQuotaExceeded is returned when the user's monthly deployment
	// allowance is used up.
	ErrQuotaExceeded = errors.New("deployment quota exceeded")
	// ErrEnvironmentNotAllowed is returned when the user's plan does not
	// include the target environment.
	ErrEnvironmentNotAllowed = errors.New("environment not allowed on current plan")
	// ErrInvalidRollbackTarget is returned when the rollback target is not a
	// successful deployment.
	ErrInvalidRollbackTarget = errors.New("rollback target must be a successful deployment")
	// ErrNotCancellable is returned when a deployment is already in a
	// terminal state and cannot be cancelled.
	ErrNotCancellable = errors.New("deployment is not cancellable")
)
