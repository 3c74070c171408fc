package services

import (
	"time"

	"plenary/contexts/governance/voting-session/domain/entities"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
)

// ResolveStatus derives the outcome of a session at now. The result is never
// persisted; ties (0-0 included) reject.
func ResolveStatus(session entities.Session, now time.Time) entities.SessionStatus {
	if now.Before(session.ClosesAt) {
		return entities.StatusInProgress
	}
	if session.PositiveCount() > session.NegativeCount() {
		return entities.StatusApproved
	}
	return entities.StatusRejected
}

// RequireActive collapses "no session" and "session past closes_at" into the
// single no-active-session signal used by voting and active-topic reads.
func RequireActive(session entities.Session, found bool, now time.Time) error {
	if !found || !session.ActiveAt(now) {
		return domainerrors.ErrNoActiveSession
	}
	return nil
}
