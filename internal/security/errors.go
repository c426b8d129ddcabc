package security

import "errors"

var (
	// ErrSessionClosed signals an event arriving after a session reached a
	// terminal state. Callers treat it as an idempotent no-op, not a failure.
	ErrSessionClosed = errors.New("session already closed")

	// ErrSessionNotFound signals a lookup for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrDuplicateSession signals a session id collision on create.
	ErrDuplicateSession = errors.New("duplicate session")

	// ErrSessionNotSuspended signals a resume request for a session that is
	// not currently suspended.
	ErrSessionNotSuspended = errors.New("session is not suspended")

	// ErrVerificationNotFound signals that no teacher verification exists
	// for the requested quiz.
	ErrVerificationNotFound = errors.New("teacher verification not found")
)
