package types

import "errors"

// Error taxonomy for the authorization engine. Every administrative and
// lifecycle call either succeeds or fails atomically with one of these,
// wrapped with context via fmt.Errorf("...: %w", ...).
var (
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrNoPermission          = errors.New("no permission")
	ErrSignerNotAuthorized   = errors.New("signer not authorized")

	// ErrConflictingMetaTxPermissions flags a role-separation violation:
	// one role being granted both signing and execution authority for the
	// same meta-transaction workflow on the same selector.
	ErrConflictingMetaTxPermissions = errors.New("conflicting meta-transaction permissions")

	ErrCannotModifyProtected = errors.New("cannot modify protected resource")
	ErrCapacityExceeded      = errors.New("role wallet capacity exceeded")
	ErrTooEarly              = errors.New("release time not reached")
	ErrExpired               = errors.New("deadline expired")
	ErrInvalidOperation      = errors.New("invalid operation")
	ErrNotSupported          = errors.New("not supported")
)
