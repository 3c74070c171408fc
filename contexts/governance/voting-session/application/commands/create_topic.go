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

const maxSubjectLength = 280

type CreateTopicCommand struct {
	OwnerID  string
	Subject  string
	Category string
}

type TopicUseCase struct {
	Tx     ports.Transactor
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (uc TopicUseCase) CreateTopic(ctx context.Context, cmd CreateTopicCommand) (entities.Topic, error) {
	logger := application.ResolveLogger(uc.Logger)
	ownerID := strings.TrimSpace(cmd.OwnerID)
	subject := strings.TrimSpace(cmd.Subject)
	category, ok := entities.ParseCategory(cmd.Category)
	if !ok || category == "" {
		logger.Warn("topic create category rejected",
			"event", "voting_topic_create_category_rejected",
			"module", "governance/voting-session",
			"layer", "application",
			"owner_id", ownerID,
			"category", strings.TrimSpace(cmd.Category),
		)
		return entities.Topic{}, domainerrors.ErrInvalidCategory
	}
	if ownerID == "" || subject == "" || len(subject) > maxSubjectLength {
		logger.Warn("topic create validation failed",
			"event", "voting_topic_create_validation_failed",
			"module", "governance/voting-session",
			"layer", "application",
			"owner_id", ownerID,
		)
		return entities.Topic{}, domainerrors.ErrInvalidTopicInput
	}

	topicID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Topic{}, err
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Topic{}, err
	}
	topic := entities.Topic{
		TopicID:   topicID,
		Subject:   subject,
		Category:  category,
		OwnerID:   ownerID,
		CreatedAt: uc.now().Truncate(time.Millisecond),
	}
	err = uc.Tx.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := tx.InsertTopic(ctx, topic); err != nil {
			return err
		}
		envelope, err := newTopicEnvelope(eventID, EventTopicCreated, topic.TopicID, topic.CreatedAt, map[string]any{
			"topic_id": topic.TopicID,
			"owner_id": topic.OwnerID,
			"subject":  topic.Subject,
			"category": string(topic.Category),
		})
		if err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, envelope)
	})
	if err != nil {
		logger.Error("topic create failed",
			"event", "voting_topic_create_failed",
			"module", "governance/voting-session",
			"layer", "application",
			"owner_id", ownerID,
			"error", err.Error(),
		)
		return entities.Topic{}, err
	}

	logger.Info("topic created",
		"event", "voting_topic_created",
		"module", "governance/voting-session",
		"layer", "application",
		"topic_id", topic.TopicID,
		"owner_id", ownerID,
		"category", string(category),
	)
	return topic, nil
}

func (uc TopicUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
