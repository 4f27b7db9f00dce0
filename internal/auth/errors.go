package auth

import "errors"

var (
	// ErrInvalidInput marks requests rejected before any store access.
	ErrInvalidInput = errors.New("auth: invalid input")

	// ErrAccountNotFound and ErrBadPassword stay distinct so logs and metrics
	// can tell them apart. The HTTP layer collapses both into one uniform
	// rejection so callers cannot probe which emails exist.
	ErrAccountNotFound = errors.New("auth: account not found")
	ErrBadPassword     = errors.New("auth: password mismatch")

	// ErrStoreFault wraps infrastructure failures: unreachable store, corrupt
	// stored hash, or an ambiguous email match.
	ErrStoreFault = errors.New("auth: credential store fault")

	// ErrEmailTaken is returned when a create or update collides with the
	// unique email index.
	ErrEmailTaken = errors.New("auth: email already registered")

	// ErrSessionNotFound is the session store's miss result.
	ErrSessionNotFound = errors.New("auth: session not found")

	// Session validation outcomes, one per rejection class.
	ErrSessionMalformed = errors.New("auth: session token malformed")
	ErrSessionExpired   = errors.New("auth: session expired")
	ErrSessionRevoked   = errors.New("auth: session revoked")

	// ErrScopeIntegrity marks an admin account with no barangay on record.
	// Such an account authorizes nothing until the data is repaired.
	ErrScopeIntegrity = errors.New("auth: admin account has no barangay scope")

	// ErrProtectedAccount guards master admin accounts against deletion.
	ErrProtectedAccount = errors.New("auth: master admin accounts cannot be deleted")
)
