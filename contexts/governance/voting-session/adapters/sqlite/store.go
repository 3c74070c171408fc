// Package sqlite persists voting sessions in an embedded SQLite database for
// single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"plenary/contexts/governance/voting-session/domain/entities"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
	"plenary/contexts/governance/voting-session/ports"
	"plenary/internal/shared/outbox"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.logError("voting_sqlite_begin_failed", err)
	}
	if err := fn(ctx, &sqliteTx{q: sqlTx, store: s}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return s.logError("voting_sqlite_commit_failed", err)
	}
	return nil
}

func (s *Store) GetTopic(ctx context.Context, topicID string) (entities.Topic, error) {
	topic, err := getTopic(ctx, s.db, strings.TrimSpace(topicID))
	if err != nil && !errors.Is(err, domainerrors.ErrTopicNotFound) {
		return entities.Topic{}, s.logError("voting_sqlite_get_topic_failed", err, "topic_id", strings.TrimSpace(topicID))
	}
	return topic, err
}

func (s *Store) GetSessionByTopic(ctx context.Context, topicID string) (entities.Session, error) {
	if _, err := s.GetTopic(ctx, topicID); err != nil {
		return entities.Session{}, err
	}
	session, found, err := loadSession(ctx, s.db, strings.TrimSpace(topicID))
	if err != nil {
		return entities.Session{}, s.logError("voting_sqlite_get_session_failed", err, "topic_id", strings.TrimSpace(topicID))
	}
	if !found {
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) ListTopicsByOwner(ctx context.Context, ownerID string, category entities.Category) ([]entities.Topic, error) {
	query := `SELECT topic_id, subject, category, owner_id, session_id, created_at
FROM topics WHERE owner_id = ?`
	args := []any{strings.TrimSpace(ownerID)}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY created_at ASC, topic_id ASC`
	items, err := listTopics(ctx, s.db, query, args...)
	if err != nil {
		return nil, s.logError("voting_sqlite_list_topics_by_owner_failed", err, "owner_id", strings.TrimSpace(ownerID))
	}
	return items, nil
}

func (s *Store) ListTopicsWithActiveSession(ctx context.Context, category entities.Category, now time.Time) ([]entities.Topic, error) {
	query := `SELECT t.topic_id, t.subject, t.category, t.owner_id, t.session_id, t.created_at
FROM topics t JOIN sessions s ON s.topic_id = t.topic_id
WHERE s.closes_at > ?`
	args := []any{toMillis(now)}
	if category != "" {
		query += ` AND t.category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY t.created_at ASC, t.topic_id ASC`
	items, err := listTopics(ctx, s.db, query, args...)
	if err != nil {
		return nil, s.logError("voting_sqlite_list_active_topics_failed", err, "category", string(category))
	}
	return items, nil
}

func (s *Store) GetMember(ctx context.Context, identity string) (entities.Member, error) {
	var (
		member    entities.Member
		admin     int
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT member_id, identity, display_name, email, secret_hash, admin, created_at
FROM members WHERE identity = ?`, strings.TrimSpace(identity)).Scan(
		&member.MemberID,
		&member.Identity,
		&member.DisplayName,
		&member.Email,
		&member.SecretHash,
		&admin,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Member{}, domainerrors.ErrMemberNotFound
		}
		return entities.Member{}, s.logError("voting_sqlite_get_member_failed", err, "identity", strings.TrimSpace(identity))
	}
	member.Admin = admin != 0
	member.CreatedAt = fromMillis(createdAt)
	return member, nil
}

func (s *Store) SaveMember(ctx context.Context, member entities.Member) error {
	admin := 0
	if member.Admin {
		admin = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO members
(member_id, identity, display_name, email, secret_hash, admin, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(member.MemberID),
		strings.TrimSpace(member.Identity),
		strings.TrimSpace(member.DisplayName),
		strings.TrimSpace(member.Email),
		member.SecretHash,
		admin,
		toMillis(member.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrMemberExists
		}
		return s.logError("voting_sqlite_save_member_failed", err, "identity", strings.TrimSpace(member.Identity))
	}
	return nil
}

func (s *Store) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT outbox_id, event_type, partition_key, payload, created_at
FROM voting_outbox WHERE status = ? ORDER BY created_at ASC, rowid ASC LIMIT ?`, outbox.StatusPending, limit)
	if err != nil {
		return nil, s.logError("voting_sqlite_list_pending_outbox_failed", err, "limit", limit)
	}
	defer rows.Close()

	items := make([]ports.OutboxMessage, 0, limit)
	for rows.Next() {
		var (
			message   ports.OutboxMessage
			createdAt int64
		)
		if err := rows.Scan(&message.OutboxID, &message.EventType, &message.PartitionKey, &message.Payload, &createdAt); err != nil {
			return nil, s.logError("voting_sqlite_scan_outbox_failed", err)
		}
		message.CreatedAt = fromMillis(createdAt)
		items = append(items, message)
	}
	if err := rows.Err(); err != nil {
		return nil, s.logError("voting_sqlite_iterate_outbox_failed", err)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE voting_outbox SET status = ?, published_at = ? WHERE outbox_id = ?`,
		outbox.StatusPublished,
		toMillis(publishedAt),
		strings.TrimSpace(outboxID),
	)
	if err != nil {
		return s.logError("voting_sqlite_mark_outbox_published_failed", err, "outbox_id", strings.TrimSpace(outboxID))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

// sqliteTx relies on BEGIN IMMEDIATE for serialization; LockTopic is a plain read.
type sqliteTx struct {
	q     queryer
	store *Store
}

func (t *sqliteTx) LockTopic(ctx context.Context, topicID string) (entities.Topic, error) {
	topic, err := getTopic(ctx, t.q, strings.TrimSpace(topicID))
	if err != nil && !errors.Is(err, domainerrors.ErrTopicNotFound) {
		return entities.Topic{}, t.store.logError("voting_sqlite_lock_topic_failed", err, "topic_id", strings.TrimSpace(topicID))
	}
	return topic, err
}

func (t *sqliteTx) InsertTopic(ctx context.Context, topic entities.Topic) error {
	_, err := t.q.ExecContext(ctx, `INSERT INTO topics
(topic_id, subject, category, owner_id, session_id, created_at)
VALUES (?, ?, ?, ?, NULL, ?)`,
		strings.TrimSpace(topic.TopicID),
		strings.TrimSpace(topic.Subject),
		string(topic.Category),
		strings.TrimSpace(topic.OwnerID),
		toMillis(topic.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return t.store.logError("voting_sqlite_insert_topic_failed", err, "topic_id", strings.TrimSpace(topic.TopicID))
	}
	return nil
}

func (t *sqliteTx) SessionByTopic(ctx context.Context, topicID string) (entities.Session, bool, error) {
	session, found, err := loadSession(ctx, t.q, strings.TrimSpace(topicID))
	if err != nil {
		return entities.Session{}, false, t.store.logError("voting_sqlite_tx_get_session_failed", err, "topic_id", strings.TrimSpace(topicID))
	}
	return session, found, nil
}

func (t *sqliteTx) InsertSession(ctx context.Context, session entities.Session) error {
	_, err := t.q.ExecContext(ctx, `INSERT INTO sessions (session_id, topic_id, opens_at, closes_at) VALUES (?, ?, ?, ?)`,
		strings.TrimSpace(session.SessionID),
		strings.TrimSpace(session.TopicID),
		toMillis(session.OpensAt),
		toMillis(session.ClosesAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrSessionAlreadyOpen
		}
		return t.store.logError("voting_sqlite_insert_session_failed", err, "topic_id", strings.TrimSpace(session.TopicID))
	}
	result, err := t.q.ExecContext(ctx, `UPDATE topics SET session_id = ? WHERE topic_id = ? AND session_id IS NULL`,
		strings.TrimSpace(session.SessionID),
		strings.TrimSpace(session.TopicID),
	)
	if err != nil {
		return t.store.logError("voting_sqlite_link_session_failed", err, "topic_id", strings.TrimSpace(session.TopicID))
	}
	if affected, err := result.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		return domainerrors.ErrSessionAlreadyOpen
	}
	return nil
}

func (t *sqliteTx) InsertVote(ctx context.Context, sessionID string, vote entities.Vote) error {
	var voterRef any
	if ref := strings.TrimSpace(vote.VoterRef); ref != "" {
		voterRef = ref
	}
	_, err := t.q.ExecContext(ctx, `INSERT INTO votes (session_id, voter_identity, voter_ref, polarity, cast_at) VALUES (?, ?, ?, ?, ?)`,
		strings.TrimSpace(sessionID),
		strings.TrimSpace(vote.VoterIdentity),
		voterRef,
		string(vote.Polarity),
		toMillis(vote.CastAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrDuplicateVote
		}
		return t.store.logError("voting_sqlite_insert_vote_failed", err,
			"session_id", strings.TrimSpace(sessionID),
			"voter_identity", strings.TrimSpace(vote.VoterIdentity),
		)
	}
	return nil
}

func (t *sqliteTx) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return t.store.logError("voting_sqlite_append_outbox_marshal_failed", err, "event_id", envelope.EventID)
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	createdAt := envelope.OccurredAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err := t.q.ExecContext(ctx, `INSERT OR IGNORE INTO voting_outbox
(outbox_id, event_type, partition_key, payload, status, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		outboxID,
		strings.TrimSpace(envelope.EventType),
		strings.TrimSpace(envelope.PartitionKey),
		payload,
		outbox.StatusPending,
		toMillis(createdAt),
	); err != nil {
		return t.store.logError("voting_sqlite_append_outbox_insert_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func getTopic(ctx context.Context, q queryer, topicID string) (entities.Topic, error) {
	var (
		topic     entities.Topic
		category  string
		sessionID sql.NullString
		createdAt int64
	)
	err := q.QueryRowContext(ctx, `SELECT topic_id, subject, category, owner_id, session_id, created_at
FROM topics WHERE topic_id = ?`, topicID).Scan(
		&topic.TopicID,
		&topic.Subject,
		&category,
		&topic.OwnerID,
		&sessionID,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Topic{}, domainerrors.ErrTopicNotFound
		}
		return entities.Topic{}, err
	}
	topic.Category = entities.Category(category)
	topic.SessionID = sessionID.String
	topic.CreatedAt = fromMillis(createdAt)
	return topic, nil
}

func listTopics(ctx context.Context, q queryer, query string, args ...any) ([]entities.Topic, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]entities.Topic, 0)
	for rows.Next() {
		var (
			topic     entities.Topic
			category  string
			sessionID sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&topic.TopicID, &topic.Subject, &category, &topic.OwnerID, &sessionID, &createdAt); err != nil {
			return nil, err
		}
		topic.Category = entities.Category(category)
		topic.SessionID = sessionID.String
		topic.CreatedAt = fromMillis(createdAt)
		items = append(items, topic)
	}
	return items, rows.Err()
}

func loadSession(ctx context.Context, q queryer, topicID string) (entities.Session, bool, error) {
	var (
		session  entities.Session
		opensAt  int64
		closesAt int64
	)
	err := q.QueryRowContext(ctx, `SELECT session_id, topic_id, opens_at, closes_at FROM sessions WHERE topic_id = ?`, topicID).
		Scan(&session.SessionID, &session.TopicID, &opensAt, &closesAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Session{}, false, nil
		}
		return entities.Session{}, false, err
	}
	session.OpensAt = fromMillis(opensAt)
	session.ClosesAt = fromMillis(closesAt)
	session.Positive = []entities.Vote{}
	session.Negative = []entities.Vote{}

	rows, err := q.QueryContext(ctx, `SELECT voter_identity, voter_ref, polarity, cast_at
FROM votes WHERE session_id = ? ORDER BY cast_at ASC, vote_id ASC`, session.SessionID)
	if err != nil {
		return entities.Session{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			vote     entities.Vote
			voterRef sql.NullString
			polarity string
			castAt   int64
		)
		if err := rows.Scan(&vote.VoterIdentity, &voterRef, &polarity, &castAt); err != nil {
			return entities.Session{}, false, err
		}
		vote.VoterRef = voterRef.String
		vote.Polarity = entities.Polarity(polarity)
		vote.CastAt = fromMillis(castAt)
		if err := session.Append(vote); err != nil {
			return entities.Session{}, false, err
		}
	}
	if err := rows.Err(); err != nil {
		return entities.Session{}, false, err
	}
	return session, true, nil
}

func (s *Store) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/voting-session",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	s.logger.Error("voting sqlite operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var (
	_ ports.Transactor       = (*Store)(nil)
	_ ports.TopicRepository  = (*Store)(nil)
	_ ports.MemberStore      = (*Store)(nil)
	_ ports.OutboxRepository = (*Store)(nil)
	_ ports.Tx               = (*sqliteTx)(nil)
)
