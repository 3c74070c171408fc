package errors

import "errors"

// Kind is the stable classification surfaced to callers alongside the message.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindNoActiveSession Kind = "no_active_session"
	KindConflict        Kind = "conflict"
	KindAuth            Kind = "auth_error"
)

// Error is a domain failure with a kind tag and a human-readable detail.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrInvalidTopicInput    = newError(KindValidation, "invalid topic input")
	ErrInvalidCategory      = newError(KindValidation, "unknown topic category")
	ErrInvalidDuration      = newError(KindValidation, "session duration must be at least one minute")
	ErrInvalidPolarity      = newError(KindValidation, "vote polarity must be positive or negative")
	ErrInvalidVoterIdentity = newError(KindValidation, "voter identity is required")
	ErrSessionRequired      = newError(KindValidation, "session is required")
	ErrOwnerCannotVote      = newError(KindValidation, "owner cannot vote on own topic")
	ErrInvalidMemberInput   = newError(KindValidation, "invalid member input")
	ErrWeakSecret           = newError(KindValidation, "secret must contain at least 8 characters")

	ErrTopicNotFound   = newError(KindNotFound, "topic not found")
	ErrSessionNotFound = newError(KindNotFound, "topic has no voting session")
	ErrMemberNotFound  = newError(KindNotFound, "member not found")

	ErrNoActiveSession = newError(KindNoActiveSession, "topic has no active voting session")

	ErrSessionAlreadyOpen = newError(KindConflict, "topic already has a voting session")
	ErrSessionNotActive   = newError(KindConflict, "session not active")
	ErrDuplicateVote      = newError(KindConflict, "duplicate vote")
	ErrMemberExists       = newError(KindConflict, "member already registered")
	ErrConflict           = newError(KindConflict, "voting session conflict")

	ErrInvalidCredentials = newError(KindAuth, "invalid credentials")
	ErrForbidden          = newError(KindAuth, "operation requires an administrator")
)

// KindOf returns the kind of the first domain error in err's chain, or "" for
// infrastructure failures.
func KindOf(err error) Kind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}
