package services

import (
	"strings"
	"time"

	"plenary/contexts/governance/voting-session/domain/entities"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
)

// VoteValidator decides whether a voter may append to a session. Checks run in a
// fixed order and the first failure wins.
type VoteValidator struct{}

func (VoteValidator) Authorize(
	topic entities.Topic,
	session *entities.Session,
	voterIdentity string,
	now time.Time,
) error {
	if session == nil {
		return domainerrors.ErrSessionRequired
	}
	voterIdentity = strings.TrimSpace(voterIdentity)
	if voterIdentity == "" {
		return domainerrors.ErrInvalidVoterIdentity
	}
	if !session.ActiveAt(now) {
		return domainerrors.ErrSessionNotActive
	}
	if topic.OwnedBy(voterIdentity) {
		return domainerrors.ErrOwnerCannotVote
	}
	if session.HasVoter(voterIdentity) {
		return domainerrors.ErrDuplicateVote
	}
	return nil
}
