package services

import (
	"testing"
	"time"

	"plenary/contexts/governance/voting-session/domain/entities"
)

func TestResolveStatus(t *testing.T) {
	opensAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session, err := entities.NewSession("session-1", "topic-1", opensAt, 1)
	if err != nil {
		t.Fatalf("new session failed: %v", err)
	}

	if got := ResolveStatus(session, opensAt.Add(30*time.Second)); got != entities.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS before close, got %s", got)
	}
	if got := ResolveStatus(session, session.ClosesAt); got != entities.StatusRejected {
		t.Fatalf("expected REJECTED for 0-0 at close, got %s", got)
	}

	_ = session.Append(entities.Vote{VoterIdentity: "a", Polarity: entities.PolarityPositive})
	_ = session.Append(entities.Vote{VoterIdentity: "b", Polarity: entities.PolarityNegative})
	if got := ResolveStatus(session, session.ClosesAt.Add(time.Minute)); got != entities.StatusRejected {
		t.Fatalf("expected REJECTED on tie, got %s", got)
	}

	_ = session.Append(entities.Vote{VoterIdentity: "c", Polarity: entities.PolarityPositive})
	if got := ResolveStatus(session, session.ClosesAt.Add(time.Minute)); got != entities.StatusApproved {
		t.Fatalf("expected APPROVED with 2-1, got %s", got)
	}
	if got := ResolveStatus(session, opensAt); got != entities.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS while open regardless of tally, got %s", got)
	}
}
