package entities

import (
	"strings"
	"time"

	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
)

type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

func ParsePolarity(raw string) (Polarity, bool) {
	switch Polarity(strings.ToLower(strings.TrimSpace(raw))) {
	case PolarityPositive:
		return PolarityPositive, true
	case PolarityNegative:
		return PolarityNegative, true
	default:
		return "", false
	}
}

// Vote is one voter's recorded choice. VoterRef is the member id when the
// identity belongs to a registered member and empty otherwise.
type Vote struct {
	VoterIdentity string
	VoterRef      string
	Polarity      Polarity
	CastAt        time.Time
}

// Session is the time-boxed voting window of one topic. The topic is referenced
// by id only; sessions never mutate their topic.
type Session struct {
	SessionID string
	TopicID   string
	OpensAt   time.Time
	ClosesAt  time.Time
	Positive  []Vote
	Negative  []Vote
}

// NewSession fixes ClosesAt at opensAt + durationMinutes.
func NewSession(sessionID string, topicID string, opensAt time.Time, durationMinutes int) (Session, error) {
	if durationMinutes < 1 {
		return Session{}, domainerrors.ErrInvalidDuration
	}
	// Millisecond precision is what every store persists; ClosesAt may sit up
	// to 1ms before clock-now + duration.
	opensAt = opensAt.UTC().Truncate(time.Millisecond)
	return Session{
		SessionID: sessionID,
		TopicID:   topicID,
		OpensAt:   opensAt,
		ClosesAt:  opensAt.Add(time.Duration(durationMinutes) * time.Minute),
		Positive:  []Vote{},
		Negative:  []Vote{},
	}, nil
}

// ActiveAt reports whether ClosesAt is strictly after now.
func (s Session) ActiveAt(now time.Time) bool {
	return s.ClosesAt.After(now)
}

func (s Session) HasVoter(identity string) bool {
	identity = strings.TrimSpace(identity)
	for _, vote := range s.Positive {
		if vote.VoterIdentity == identity {
			return true
		}
	}
	for _, vote := range s.Negative {
		if vote.VoterIdentity == identity {
			return true
		}
	}
	return false
}

func (s Session) PositiveCount() int {
	return len(s.Positive)
}

func (s Session) NegativeCount() int {
	return len(s.Negative)
}

// Append records a vote in the collection matching its polarity. It is the only
// mutator of a session after creation; eligibility must be checked first.
func (s *Session) Append(vote Vote) error {
	switch vote.Polarity {
	case PolarityPositive:
		s.Positive = append(s.Positive, vote)
	case PolarityNegative:
		s.Negative = append(s.Negative, vote)
	default:
		return domainerrors.ErrInvalidPolarity
	}
	return nil
}
