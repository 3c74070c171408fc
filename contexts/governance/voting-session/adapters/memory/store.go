package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"plenary/contexts/governance/voting-session/domain/entities"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
	"plenary/contexts/governance/voting-session/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store keeps every aggregate in process memory. Transactions hold the write
// lock for their whole duration and apply staged writes only on commit.
type Store struct {
	mu sync.RWMutex

	topics         map[string]entities.Topic
	sessions       map[string]entities.Session
	sessionByTopic map[string]string
	members        map[string]entities.Member
	outbox         map[string]outboxRecord
	outboxOrder    []string
}

func NewStore() *Store {
	return &Store{
		topics:         make(map[string]entities.Topic),
		sessions:       make(map[string]entities.Session),
		sessionByTopic: make(map[string]string),
		members:        make(map[string]entities.Member),
		outbox:         make(map[string]outboxRecord),
	}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		store:    s,
		topics:   make(map[string]entities.Topic),
		sessions: make(map[string]entities.Session),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) GetTopic(_ context.Context, topicID string) (entities.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	topic, ok := s.topics[strings.TrimSpace(topicID)]
	if !ok {
		return entities.Topic{}, domainerrors.ErrTopicNotFound
	}
	return topic, nil
}

func (s *Store) GetSessionByTopic(_ context.Context, topicID string) (entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	topicID = strings.TrimSpace(topicID)
	if _, ok := s.topics[topicID]; !ok {
		return entities.Session{}, domainerrors.ErrTopicNotFound
	}
	sessionID, ok := s.sessionByTopic[topicID]
	if !ok {
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	return cloneSession(s.sessions[sessionID]), nil
}

func (s *Store) ListTopicsByOwner(_ context.Context, ownerID string, category entities.Category) ([]entities.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Topic, 0)
	for _, topic := range s.topics {
		if topic.OwnerID != strings.TrimSpace(ownerID) {
			continue
		}
		if category != "" && topic.Category != category {
			continue
		}
		items = append(items, topic)
	}
	sortTopics(items)
	return items, nil
}

func (s *Store) ListTopicsWithActiveSession(_ context.Context, category entities.Category, now time.Time) ([]entities.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Topic, 0)
	for topicID, sessionID := range s.sessionByTopic {
		if !s.sessions[sessionID].ActiveAt(now) {
			continue
		}
		topic := s.topics[topicID]
		if category != "" && topic.Category != category {
			continue
		}
		items = append(items, topic)
	}
	sortTopics(items)
	return items, nil
}

func (s *Store) GetMember(_ context.Context, identity string) (entities.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	member, ok := s.members[strings.TrimSpace(identity)]
	if !ok {
		return entities.Member{}, domainerrors.ErrMemberNotFound
	}
	return member, nil
}

func (s *Store) SaveMember(_ context.Context, member entities.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity := strings.TrimSpace(member.Identity)
	if _, exists := s.members[identity]; exists {
		return domainerrors.ErrMemberExists
	}
	member.Identity = identity
	s.members[identity] = member
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]ports.OutboxMessage, 0, limit)
	for _, outboxID := range s.outboxOrder {
		record := s.outbox[outboxID]
		if record.published {
			continue
		}
		message := record.message
		message.Payload = append([]byte(nil), message.Payload...)
		items = append(items, message)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	record.published = true
	s.outbox[strings.TrimSpace(outboxID)] = record
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

type stagedVote struct {
	sessionID string
	vote      entities.Vote
}

// memoryTx reads through to the store, which the caller holds locked.
type memoryTx struct {
	store    *Store
	topics   map[string]entities.Topic
	sessions map[string]entities.Session
	votes    []stagedVote
	outbox   []ports.OutboxMessage
}

func (tx *memoryTx) LockTopic(_ context.Context, topicID string) (entities.Topic, error) {
	topicID = strings.TrimSpace(topicID)
	topic, ok := tx.topics[topicID]
	if !ok {
		topic, ok = tx.store.topics[topicID]
	}
	if !ok {
		return entities.Topic{}, domainerrors.ErrTopicNotFound
	}
	if session, staged := tx.sessions[topicID]; staged {
		topic.SessionID = session.SessionID
	}
	return topic, nil
}

func (tx *memoryTx) InsertTopic(_ context.Context, topic entities.Topic) error {
	if _, exists := tx.store.topics[topic.TopicID]; exists {
		return domainerrors.ErrConflict
	}
	if _, exists := tx.topics[topic.TopicID]; exists {
		return domainerrors.ErrConflict
	}
	tx.topics[topic.TopicID] = topic
	return nil
}

func (tx *memoryTx) SessionByTopic(_ context.Context, topicID string) (entities.Session, bool, error) {
	topicID = strings.TrimSpace(topicID)
	session, ok := tx.sessions[topicID]
	if !ok {
		sessionID, linked := tx.store.sessionByTopic[topicID]
		if !linked {
			return entities.Session{}, false, nil
		}
		session = cloneSession(tx.store.sessions[sessionID])
	} else {
		session = cloneSession(session)
	}
	for _, staged := range tx.votes {
		if staged.sessionID == session.SessionID {
			_ = session.Append(staged.vote)
		}
	}
	return session, true, nil
}

func (tx *memoryTx) InsertSession(_ context.Context, session entities.Session) error {
	if _, linked := tx.store.sessionByTopic[session.TopicID]; linked {
		return domainerrors.ErrSessionAlreadyOpen
	}
	if _, staged := tx.sessions[session.TopicID]; staged {
		return domainerrors.ErrSessionAlreadyOpen
	}
	tx.sessions[session.TopicID] = cloneSession(session)
	return nil
}

func (tx *memoryTx) InsertVote(_ context.Context, sessionID string, vote entities.Vote) error {
	var current entities.Session
	found := false
	if stored, ok := tx.store.sessions[sessionID]; ok {
		current, found = stored, true
	}
	for _, staged := range tx.sessions {
		if staged.SessionID == sessionID {
			current, found = staged, true
		}
	}
	if !found {
		return domainerrors.ErrSessionNotFound
	}
	if current.HasVoter(vote.VoterIdentity) {
		return domainerrors.ErrDuplicateVote
	}
	for _, staged := range tx.votes {
		if staged.sessionID == sessionID && staged.vote.VoterIdentity == vote.VoterIdentity {
			return domainerrors.ErrDuplicateVote
		}
	}
	tx.votes = append(tx.votes, stagedVote{sessionID: sessionID, vote: vote})
	return nil
}

func (tx *memoryTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	tx.outbox = append(tx.outbox, ports.OutboxMessage{
		OutboxID:     outboxID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		CreatedAt:    createdAt,
	})
	return nil
}

func (tx *memoryTx) commit() {
	s := tx.store
	for topicID, topic := range tx.topics {
		s.topics[topicID] = topic
	}
	for topicID, session := range tx.sessions {
		s.sessions[session.SessionID] = session
		s.sessionByTopic[topicID] = session.SessionID
		topic := s.topics[topicID]
		topic.SessionID = session.SessionID
		s.topics[topicID] = topic
	}
	for _, staged := range tx.votes {
		session := s.sessions[staged.sessionID]
		_ = session.Append(staged.vote)
		s.sessions[staged.sessionID] = session
	}
	for _, message := range tx.outbox {
		if _, exists := s.outbox[message.OutboxID]; exists {
			continue
		}
		s.outbox[message.OutboxID] = outboxRecord{message: message}
		s.outboxOrder = append(s.outboxOrder, message.OutboxID)
	}
}

func cloneSession(session entities.Session) entities.Session {
	session.Positive = append([]entities.Vote{}, session.Positive...)
	session.Negative = append([]entities.Vote{}, session.Negative...)
	return session
}

func sortTopics(items []entities.Topic) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].TopicID < items[j].TopicID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

var (
	_ ports.Transactor       = (*Store)(nil)
	_ ports.TopicRepository  = (*Store)(nil)
	_ ports.MemberStore      = (*Store)(nil)
	_ ports.OutboxRepository = (*Store)(nil)
	_ ports.Clock            = (*Store)(nil)
	_ ports.IDGenerator      = (*Store)(nil)
	_ ports.Tx               = (*memoryTx)(nil)
)
