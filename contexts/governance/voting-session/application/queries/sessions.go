package queries

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

// ActiveTopic pairs a topic with its currently open session.
type ActiveTopic struct {
	Topic   entities.Topic
	Session entities.Session
}

// TopicDetails is the owner-only view of a topic and its computed outcome.
type TopicDetails struct {
	Topic   entities.Topic
	Owner   entities.Profile
	Session entities.Session
	Status  entities.SessionStatus
}

type SessionQueries struct {
	Topics  ports.TopicRepository
	Members ports.MemberDirectory
	Clock   ports.Clock
	Logger  *slog.Logger
}

// GetStatus recomputes the outcome on every call.
func (q SessionQueries) GetStatus(ctx context.Context, topicID string) (entities.SessionStatus, error) {
	topicID = strings.TrimSpace(topicID)
	if _, err := q.Topics.GetTopic(ctx, topicID); err != nil {
		return "", err
	}
	session, err := q.Topics.GetSessionByTopic(ctx, topicID)
	if err != nil {
		return "", err
	}
	status := services.ResolveStatus(session, q.now())
	application.ResolveLogger(q.Logger).Debug("session status resolved",
		"event", "voting_session_status_resolved",
		"module", "governance/voting-session",
		"layer", "application",
		"topic_id", topicID,
		"status", string(status),
	)
	return status, nil
}

// ResolveActive reports the same error for a missing session and an expired one.
func (q SessionQueries) ResolveActive(ctx context.Context, topicID string) (entities.Session, error) {
	topicID = strings.TrimSpace(topicID)
	if topicID == "" {
		return entities.Session{}, domainerrors.ErrNoActiveSession
	}
	session, err := q.Topics.GetSessionByTopic(ctx, topicID)
	found := true
	if err != nil {
		if !errors.Is(err, domainerrors.ErrSessionNotFound) && !errors.Is(err, domainerrors.ErrTopicNotFound) {
			return entities.Session{}, err
		}
		found = false
	}
	if err := services.RequireActive(session, found, q.now()); err != nil {
		return entities.Session{}, err
	}
	return session, nil
}

func (q SessionQueries) GetActiveTopic(ctx context.Context, topicID string) (ActiveTopic, error) {
	session, err := q.ResolveActive(ctx, topicID)
	if err != nil {
		return ActiveTopic{}, err
	}
	topic, err := q.Topics.GetTopic(ctx, session.TopicID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrTopicNotFound) {
			return ActiveTopic{}, domainerrors.ErrNoActiveSession
		}
		return ActiveTopic{}, err
	}
	return ActiveTopic{Topic: topic, Session: session}, nil
}

func (q SessionQueries) ListOwnerTopics(ctx context.Context, ownerID string, rawCategory string) ([]entities.Topic, error) {
	category, ok := entities.ParseCategory(rawCategory)
	if !ok {
		return nil, domainerrors.ErrInvalidCategory
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, domainerrors.ErrInvalidTopicInput
	}
	return q.Topics.ListTopicsByOwner(ctx, ownerID, category)
}

func (q SessionQueries) ListActiveTopics(ctx context.Context, rawCategory string) ([]entities.Topic, error) {
	category, ok := entities.ParseCategory(rawCategory)
	if !ok {
		return nil, domainerrors.ErrInvalidCategory
	}
	return q.Topics.ListTopicsWithActiveSession(ctx, category, q.now())
}

// TopicDetails hides topics from anyone but their owner behind not-found.
func (q SessionQueries) TopicDetails(ctx context.Context, topicID string, requesterID string) (TopicDetails, error) {
	topic, err := q.Topics.GetTopic(ctx, strings.TrimSpace(topicID))
	if err != nil {
		return TopicDetails{}, err
	}
	if !topic.OwnedBy(requesterID) {
		return TopicDetails{}, domainerrors.ErrTopicNotFound
	}
	session, err := q.Topics.GetSessionByTopic(ctx, topic.TopicID)
	if err != nil {
		return TopicDetails{}, err
	}

	owner := entities.Profile{Identity: topic.OwnerID}
	if q.Members != nil {
		member, err := q.Members.GetMember(ctx, topic.OwnerID)
		switch {
		case err == nil:
			owner = member.Profile()
		case !errors.Is(err, domainerrors.ErrMemberNotFound):
			return TopicDetails{}, err
		}
	}
	return TopicDetails{
		Topic:   topic,
		Owner:   owner,
		Session: session,
		Status:  services.ResolveStatus(session, q.now()),
	}, nil
}

func (q SessionQueries) now() time.Time {
	if q.Clock == nil {
		return time.Now().UTC()
	}
	return q.Clock.Now().UTC()
}
