package entities

import (
	"errors"
	"testing"
	"time"

	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
)

func TestNewSessionRejectsShortDuration(t *testing.T) {
	for _, minutes := range []int{0, -5} {
		if _, err := NewSession("s", "t", time.Now(), minutes); !errors.Is(err, domainerrors.ErrInvalidDuration) {
			t.Fatalf("expected invalid duration for %d, got %v", minutes, err)
		}
	}
}

func TestSessionWindowAndAppend(t *testing.T) {
	opensAt := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	session, err := NewSession("s", "t", opensAt, 3)
	if err != nil {
		t.Fatalf("new session failed: %v", err)
	}
	if !session.ClosesAt.Equal(session.OpensAt.Add(3 * time.Minute)) {
		t.Fatalf("expected closes_at = opens_at + 3m, got %s", session.ClosesAt)
	}
	if session.OpensAt.Nanosecond()%int(time.Millisecond) != 0 {
		t.Fatalf("expected opens_at truncated to milliseconds, got %s", session.OpensAt)
	}
	if !session.ActiveAt(session.ClosesAt.Add(-time.Millisecond)) || session.ActiveAt(session.ClosesAt) {
		t.Fatalf("expected active strictly before closes_at")
	}

	if err := session.Append(Vote{VoterIdentity: "v1", Polarity: "maybe"}); !errors.Is(err, domainerrors.ErrInvalidPolarity) {
		t.Fatalf("expected invalid polarity, got %v", err)
	}
	if err := session.Append(Vote{VoterIdentity: "v1", Polarity: PolarityNegative}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if session.NegativeCount() != 1 || session.PositiveCount() != 0 || !session.HasVoter("v1") {
		t.Fatalf("unexpected tally after append: %+v", session)
	}
}

func TestParseCategoryAndPolarity(t *testing.T) {
	if category, ok := ParseCategory(" Sports "); !ok || category != CategorySports {
		t.Fatalf("expected sports, got %q %v", category, ok)
	}
	if _, ok := ParseCategory("politics"); ok {
		t.Fatalf("expected unknown category to be rejected")
	}
	if polarity, ok := ParsePolarity("POSITIVE"); !ok || polarity != PolarityPositive {
		t.Fatalf("expected positive, got %q %v", polarity, ok)
	}
	if _, ok := ParsePolarity(""); ok {
		t.Fatalf("expected empty polarity to be rejected")
	}
}
