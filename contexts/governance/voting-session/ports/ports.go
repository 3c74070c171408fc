package ports

import (
	"context"
	"time"

	"plenary/contexts/governance/voting-session/domain/entities"
	"plenary/internal/shared/events"
	"plenary/internal/shared/outbox"
)

// Clock is the only source of "now" for session windows and status.
type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// AuthProvider answers credential questions for external voters and token issuance.
type AuthProvider interface {
	Exists(ctx context.Context, identity string) (bool, error)
	Validate(ctx context.Context, identity string, secret string) error
}

// MemberDirectory resolves registered members by identity.
type MemberDirectory interface {
	GetMember(ctx context.Context, identity string) (entities.Member, error)
}

type MemberStore interface {
	MemberDirectory
	SaveMember(ctx context.Context, member entities.Member) error
}

// TopicRepository serves reads outside of write transactions.
type TopicRepository interface {
	GetTopic(ctx context.Context, topicID string) (entities.Topic, error)
	ListTopicsByOwner(ctx context.Context, ownerID string, category entities.Category) ([]entities.Topic, error)
	ListTopicsWithActiveSession(ctx context.Context, category entities.Category, now time.Time) ([]entities.Topic, error)
	GetSessionByTopic(ctx context.Context, topicID string) (entities.Session, error)
}

// Tx is the write surface available inside a transaction. LockTopic serializes
// all writers of one topic until the transaction ends.
type Tx interface {
	LockTopic(ctx context.Context, topicID string) (entities.Topic, error)
	InsertTopic(ctx context.Context, topic entities.Topic) error
	SessionByTopic(ctx context.Context, topicID string) (entities.Session, bool, error)
	InsertSession(ctx context.Context, session entities.Session) error
	InsertVote(ctx context.Context, sessionID string, vote entities.Vote) error
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// Transactor runs fn atomically. A non-nil error from fn discards every write.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type OutboxMessage = outbox.Message

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventEnvelope = events.Envelope

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// SecretHasher produces the stored form of a member secret.
type SecretHasher interface {
	HashSecret(secret string) (string, error)
}
