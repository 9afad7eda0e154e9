// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested match does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotParticipant indicates the acting user holds no slot in the match.
	ErrNotParticipant = errors.New("not a participant")

	// ErrNotOpen indicates a claim or leave against a match that left the open state.
	ErrNotOpen = errors.New("match not open")

	// ErrFull indicates both wager slots are already taken.
	ErrFull = errors.New("match full")

	// ErrForbidden indicates the actor lacks the role required for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrIllegalState indicates the operation is not valid in the match's current state.
	ErrIllegalState = errors.New("illegal state")

	// ErrAlreadyResolved indicates a lifecycle call against a terminal match.
	ErrAlreadyResolved = errors.New("already resolved")

	// ErrNotReady indicates checkout provisioning was requested before the roster is complete.
	ErrNotReady = errors.New("not ready for checkout")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., duplicate match id).
	ErrAlreadyExists = errors.New("already exists")

	// ErrExternalUnavailable indicates the platform collaborator failed or timed out.
	ErrExternalUnavailable = errors.New("external service unavailable")
)
