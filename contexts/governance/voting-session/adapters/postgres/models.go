package postgresadapter

import (
	"strings"
	"time"

	"plenary/contexts/governance/voting-session/domain/entities"
)

type topicModel struct {
	TopicID   string    `gorm:"column:topic_id;primaryKey"`
	Subject   string    `gorm:"column:subject;not null"`
	Category  string    `gorm:"column:category;not null;index"`
	OwnerID   string    `gorm:"column:owner_id;not null;index"`
	SessionID *string   `gorm:"column:session_id;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (topicModel) TableName() string {
	return "topics"
}

func topicModelFromEntity(topic entities.Topic) topicModel {
	row := topicModel{
		TopicID:   strings.TrimSpace(topic.TopicID),
		Subject:   strings.TrimSpace(topic.Subject),
		Category:  string(topic.Category),
		OwnerID:   strings.TrimSpace(topic.OwnerID),
		CreatedAt: topic.CreatedAt.UTC(),
	}
	if topic.HasSession() {
		sessionID := strings.TrimSpace(topic.SessionID)
		row.SessionID = &sessionID
	}
	return row
}

func (m topicModel) toEntity() entities.Topic {
	sessionID := ""
	if m.SessionID != nil {
		sessionID = *m.SessionID
	}
	return entities.Topic{
		TopicID:   m.TopicID,
		Subject:   m.Subject,
		Category:  entities.Category(m.Category),
		OwnerID:   m.OwnerID,
		SessionID: sessionID,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

type sessionModel struct {
	SessionID string    `gorm:"column:session_id;primaryKey"`
	TopicID   string    `gorm:"column:topic_id;not null;uniqueIndex"`
	OpensAt   time.Time `gorm:"column:opens_at;not null"`
	ClosesAt  time.Time `gorm:"column:closes_at;not null;index"`
}

func (sessionModel) TableName() string {
	return "sessions"
}

func (m sessionModel) toEntity(votes []voteModel) entities.Session {
	session := entities.Session{
		SessionID: m.SessionID,
		TopicID:   m.TopicID,
		OpensAt:   m.OpensAt.UTC(),
		ClosesAt:  m.ClosesAt.UTC(),
		Positive:  []entities.Vote{},
		Negative:  []entities.Vote{},
	}
	for _, vote := range votes {
		_ = session.Append(vote.toEntity())
	}
	return session
}

type voteModel struct {
	VoteID        int64     `gorm:"column:vote_id;primaryKey;autoIncrement"`
	SessionID     string    `gorm:"column:session_id;not null;uniqueIndex:idx_votes_session_voter"`
	VoterIdentity string    `gorm:"column:voter_identity;not null;uniqueIndex:idx_votes_session_voter"`
	VoterRef      *string   `gorm:"column:voter_ref"`
	Polarity      string    `gorm:"column:polarity;not null"`
	CastAt        time.Time `gorm:"column:cast_at;not null"`
}

func (voteModel) TableName() string {
	return "votes"
}

func voteModelFromEntity(sessionID string, vote entities.Vote) voteModel {
	row := voteModel{
		SessionID:     strings.TrimSpace(sessionID),
		VoterIdentity: strings.TrimSpace(vote.VoterIdentity),
		Polarity:      string(vote.Polarity),
		CastAt:        vote.CastAt.UTC(),
	}
	if strings.TrimSpace(vote.VoterRef) != "" {
		ref := strings.TrimSpace(vote.VoterRef)
		row.VoterRef = &ref
	}
	return row
}

func (m voteModel) toEntity() entities.Vote {
	ref := ""
	if m.VoterRef != nil {
		ref = *m.VoterRef
	}
	return entities.Vote{
		VoterIdentity: m.VoterIdentity,
		VoterRef:      ref,
		Polarity:      entities.Polarity(m.Polarity),
		CastAt:        m.CastAt.UTC(),
	}
}

type memberModel struct {
	MemberID    string    `gorm:"column:member_id;primaryKey"`
	Identity    string    `gorm:"column:identity;not null;uniqueIndex"`
	DisplayName string    `gorm:"column:display_name;not null"`
	Email       string    `gorm:"column:email;not null"`
	SecretHash  string    `gorm:"column:secret_hash;not null"`
	Admin       bool      `gorm:"column:admin;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

func (memberModel) TableName() string {
	return "members"
}

func (m memberModel) toEntity() entities.Member {
	return entities.Member{
		MemberID:    m.MemberID,
		Identity:    m.Identity,
		DisplayName: m.DisplayName,
		Email:       m.Email,
		SecretHash:  m.SecretHash,
		Admin:       m.Admin,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type;not null"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;not null"`
	Status       string     `gorm:"column:status;not null;index"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "voting_outbox"
}
