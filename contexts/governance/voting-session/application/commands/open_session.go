package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "plenary/contexts/governance/voting-session/application"
	"plenary/contexts/governance/voting-session/domain/entities"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
	"plenary/contexts/governance/voting-session/ports"
)

type OpenSessionCommand struct {
	TopicID         string
	RequesterID     string
	DurationMinutes int
}

// SessionUseCase opens the single voting window a topic may ever have.
type SessionUseCase struct {
	Tx     ports.Transactor
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

// OpenSession validates the duration before touching storage, then locks the
// topic, checks ownership and absence of a session, and persists the session,
// the topic link and a session.opened event in one transaction. A second call
// always fails with a conflict.
func (uc SessionUseCase) OpenSession(ctx context.Context, cmd OpenSessionCommand) (entities.Session, error) {
	logger := application.ResolveLogger(uc.Logger)
	topicID := strings.TrimSpace(cmd.TopicID)
	requesterID := strings.TrimSpace(cmd.RequesterID)
	logger.Info("session open processing started",
		"event", "voting_session_open_started",
		"module", "governance/voting-session",
		"layer", "application",
		"topic_id", topicID,
		"requester_id", requesterID,
		"duration_minutes", cmd.DurationMinutes,
	)
	if cmd.DurationMinutes < 1 {
		logger.Warn("session open validation failed",
			"event", "voting_session_open_validation_failed",
			"module", "governance/voting-session",
			"layer", "application",
			"topic_id", topicID,
			"duration_minutes", cmd.DurationMinutes,
		)
		return entities.Session{}, domainerrors.ErrInvalidDuration
	}
	if topicID == "" || requesterID == "" {
		return entities.Session{}, domainerrors.ErrTopicNotFound
	}

	sessionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Session{}, err
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Session{}, err
	}

	var opened entities.Session
	err = uc.Tx.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		topic, err := tx.LockTopic(ctx, topicID)
		if err != nil {
			return err
		}
		if !topic.OwnedBy(requesterID) {
			return domainerrors.ErrTopicNotFound
		}
		if topic.HasSession() {
			return domainerrors.ErrSessionAlreadyOpen
		}
		if _, found, err := tx.SessionByTopic(ctx, topicID); err != nil {
			return err
		} else if found {
			return domainerrors.ErrSessionAlreadyOpen
		}

		session, err := entities.NewSession(sessionID, topicID, uc.now(), cmd.DurationMinutes)
		if err != nil {
			return err
		}
		if err := tx.InsertSession(ctx, session); err != nil {
			return err
		}
		envelope, err := newTopicEnvelope(eventID, EventSessionOpened, topicID, session.OpensAt, map[string]any{
			"session_id": session.SessionID,
			"topic_id":   topicID,
			"owner_id":   topic.OwnerID,
			"opens_at":   session.OpensAt,
			"closes_at":  session.ClosesAt,
		})
		if err != nil {
			return err
		}
		if err := tx.AppendOutbox(ctx, envelope); err != nil {
			return err
		}
		opened = session
		return nil
	})
	if err != nil {
		level := slog.LevelWarn
		if domainerrors.KindOf(err) == "" {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "session open failed",
			"event", "voting_session_open_failed",
			"module", "governance/voting-session",
			"layer", "application",
			"topic_id", topicID,
			"requester_id", requesterID,
			"error", err.Error(),
		)
		return entities.Session{}, err
	}

	logger.Info("session opened",
		"event", "voting_session_opened",
		"module", "governance/voting-session",
		"layer", "application",
		"topic_id", topicID,
		"session_id", opened.SessionID,
		"closes_at", opened.ClosesAt,
	)
	return opened, nil
}

func (uc SessionUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
