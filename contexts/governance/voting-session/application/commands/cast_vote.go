package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "plenary/contexts/governance/voting-session/application"
	"plenary/contexts/governance/voting-session/domain/entities"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
	"plenary/contexts/governance/voting-session/domain/services"
	"plenary/contexts/governance/voting-session/ports"
)

// CastInternalVoteCommand is issued on behalf of an authenticated member.
type CastInternalVoteCommand struct {
	TopicID        string
	CallerIdentity string
	Polarity       string
}

// CastExternalVoteCommand carries a self-declared identity and an optional
// secret. The secret is only checked when the identity is registered.
type CastExternalVoteCommand struct {
	TopicID       string
	VoterIdentity string
	Secret        string
	Polarity      string
}

// VoteUseCase records yes/no votes. Eligibility is re-checked under the topic
// lock so the duplicate check and the append happen in one transaction.
type VoteUseCase struct {
	Topics    ports.TopicRepository
	Tx        ports.Transactor
	Auth      ports.AuthProvider
	Members   ports.MemberDirectory
	Validator services.VoteValidator
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func (uc VoteUseCase) CastInternalVote(ctx context.Context, cmd CastInternalVoteCommand) (entities.Session, error) {
	return uc.cast(ctx, "internal", cmd.TopicID, cmd.CallerIdentity, cmd.Polarity, func(context.Context) error {
		return nil
	})
}

func (uc VoteUseCase) CastExternalVote(ctx context.Context, cmd CastExternalVoteCommand) (entities.Session, error) {
	return uc.cast(ctx, "external", cmd.TopicID, cmd.VoterIdentity, cmd.Polarity, func(ctx context.Context) error {
		return uc.checkExternalCredentials(ctx, strings.TrimSpace(cmd.VoterIdentity), cmd.Secret)
	})
}

func (uc VoteUseCase) cast(
	ctx context.Context,
	channel string,
	rawTopicID string,
	rawVoter string,
	rawPolarity string,
	credentials func(context.Context) error,
) (entities.Session, error) {
	logger := application.ResolveLogger(uc.Logger)
	topicID := strings.TrimSpace(rawTopicID)
	voter := strings.TrimSpace(rawVoter)
	polarity := entities.Polarity(strings.ToLower(strings.TrimSpace(rawPolarity)))
	logger.Info("vote cast processing started",
		"event", "voting_vote_cast_started",
		"module", "governance/voting-session",
		"layer", "application",
		"channel", channel,
		"topic_id", topicID,
		"voter_identity", voter,
	)
	if voter == "" {
		return entities.Session{}, uc.logFailure(ctx, logger, channel, topicID, voter, domainerrors.ErrInvalidVoterIdentity)
	}

	if _, err := uc.resolveActive(ctx, topicID); err != nil {
		return entities.Session{}, uc.logFailure(ctx, logger, channel, topicID, voter, err)
	}
	if err := credentials(ctx); err != nil {
		return entities.Session{}, uc.logFailure(ctx, logger, channel, topicID, voter, err)
	}
	voterRef, err := uc.resolveVoterRef(ctx, voter)
	if err != nil {
		return entities.Session{}, uc.logFailure(ctx, logger, channel, topicID, voter, err)
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Session{}, uc.logFailure(ctx, logger, channel, topicID, voter, err)
	}

	var snapshot entities.Session
	err = uc.Tx.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		topic, err := tx.LockTopic(ctx, topicID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrTopicNotFound) {
				return domainerrors.ErrNoActiveSession
			}
			return err
		}
		session, found, err := tx.SessionByTopic(ctx, topicID)
		if err != nil {
			return err
		}
		if !found {
			return domainerrors.ErrNoActiveSession
		}

		now := uc.now()
		if err := uc.Validator.Authorize(topic, &session, voter, now); err != nil {
			return err
		}
		vote := entities.Vote{
			VoterIdentity: voter,
			VoterRef:      voterRef,
			Polarity:      polarity,
			CastAt:        now,
		}
		if err := session.Append(vote); err != nil {
			return err
		}
		if err := tx.InsertVote(ctx, session.SessionID, vote); err != nil {
			return err
		}
		envelope, err := newTopicEnvelope(eventID, EventVoteCast, topicID, now, map[string]any{
			"session_id":     session.SessionID,
			"topic_id":       topicID,
			"voter_identity": voter,
			"voter_ref":      voterRef,
			"polarity":       string(polarity),
			"channel":        channel,
		})
		if err != nil {
			return err
		}
		if err := tx.AppendOutbox(ctx, envelope); err != nil {
			return err
		}
		snapshot = session
		return nil
	})
	if err != nil {
		return entities.Session{}, uc.logFailure(ctx, logger, channel, topicID, voter, err)
	}

	logger.Info("vote cast recorded",
		"event", "voting_vote_cast_recorded",
		"module", "governance/voting-session",
		"layer", "application",
		"channel", channel,
		"topic_id", topicID,
		"session_id", snapshot.SessionID,
		"polarity", string(polarity),
		"positive_count", snapshot.PositiveCount(),
		"negative_count", snapshot.NegativeCount(),
	)
	return snapshot, nil
}

func (uc VoteUseCase) resolveActive(ctx context.Context, topicID string) (entities.Session, error) {
	if topicID == "" {
		return entities.Session{}, domainerrors.ErrNoActiveSession
	}
	session, err := uc.Topics.GetSessionByTopic(ctx, topicID)
	found := true
	if err != nil {
		if !errors.Is(err, domainerrors.ErrSessionNotFound) && !errors.Is(err, domainerrors.ErrTopicNotFound) {
			return entities.Session{}, err
		}
		found = false
	}
	if err := services.RequireActive(session, found, uc.now()); err != nil {
		return entities.Session{}, err
	}
	return session, nil
}

// checkExternalCredentials lets unregistered identities through without a
// secret; registered identities must present a valid one.
func (uc VoteUseCase) checkExternalCredentials(ctx context.Context, identity string, secret string) error {
	if uc.Auth == nil {
		return nil
	}
	registered, err := uc.Auth.Exists(ctx, identity)
	if err != nil {
		return err
	}
	if !registered {
		return nil
	}
	if err := uc.Auth.Validate(ctx, identity, secret); err != nil {
		if domainerrors.KindOf(err) == domainerrors.KindAuth {
			return err
		}
		if domainerrors.KindOf(err) != "" {
			return domainerrors.ErrInvalidCredentials
		}
		return err
	}
	return nil
}

func (uc VoteUseCase) resolveVoterRef(ctx context.Context, identity string) (string, error) {
	if uc.Members == nil {
		return "", nil
	}
	member, err := uc.Members.GetMember(ctx, identity)
	if err != nil {
		if errors.Is(err, domainerrors.ErrMemberNotFound) {
			return "", nil
		}
		return "", err
	}
	return member.MemberID, nil
}

func (uc VoteUseCase) logFailure(
	ctx context.Context,
	logger *slog.Logger,
	channel string,
	topicID string,
	voter string,
	err error,
) error {
	level := slog.LevelWarn
	if domainerrors.KindOf(err) == "" {
		level = slog.LevelError
	}
	logger.Log(ctx, level, "vote cast rejected",
		"event", "voting_vote_cast_failed",
		"module", "governance/voting-session",
		"layer", "application",
		"channel", channel,
		"topic_id", topicID,
		"voter_identity", voter,
		"error", err.Error(),
	)
	return err
}

func (uc VoteUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
