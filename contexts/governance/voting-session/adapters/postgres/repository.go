package postgresadapter

import (
	"context"
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
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the voting tables and their unique indexes.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&topicModel{},
		&sessionModel{},
		&voteModel{},
		&memberModel{},
		&outboxModel{},
	); err != nil {
		return r.logError("voting_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, &gormTx{db: db, repo: r})
	})
}

func (r *Repository) GetTopic(ctx context.Context, topicID string) (entities.Topic, error) {
	var row topicModel
	err := r.db.WithContext(ctx).
		Where("topic_id = ?", strings.TrimSpace(topicID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Topic{}, domainerrors.ErrTopicNotFound
		}
		return entities.Topic{}, r.logError("voting_repo_get_topic_failed", err, "topic_id", strings.TrimSpace(topicID))
	}
	return row.toEntity(), nil
}

func (r *Repository) GetSessionByTopic(ctx context.Context, topicID string) (entities.Session, error) {
	if _, err := r.GetTopic(ctx, topicID); err != nil {
		return entities.Session{}, err
	}
	session, found, err := loadSession(ctx, r.db, strings.TrimSpace(topicID))
	if err != nil {
		return entities.Session{}, r.logError("voting_repo_get_session_failed", err, "topic_id", strings.TrimSpace(topicID))
	}
	if !found {
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	return session, nil
}

func (r *Repository) ListTopicsByOwner(ctx context.Context, ownerID string, category entities.Category) ([]entities.Topic, error) {
	tx := r.db.WithContext(ctx).Model(&topicModel{}).
		Where("owner_id = ?", strings.TrimSpace(ownerID))
	if category != "" {
		tx = tx.Where("category = ?", string(category))
	}
	var rows []topicModel
	if err := tx.Order("created_at ASC, topic_id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_topics_by_owner_failed", err, "owner_id", strings.TrimSpace(ownerID))
	}
	return toTopicEntities(rows), nil
}

func (r *Repository) ListTopicsWithActiveSession(ctx context.Context, category entities.Category, now time.Time) ([]entities.Topic, error) {
	tx := r.db.WithContext(ctx).
		Table("topics AS t").
		Select("t.*").
		Joins("JOIN sessions AS s ON s.topic_id = t.topic_id").
		Where("s.closes_at > ?", now.UTC())
	if category != "" {
		tx = tx.Where("t.category = ?", string(category))
	}
	var rows []topicModel
	if err := tx.Order("t.created_at ASC, t.topic_id ASC").Scan(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_active_topics_failed", err, "category", string(category))
	}
	return toTopicEntities(rows), nil
}

func (r *Repository) GetMember(ctx context.Context, identity string) (entities.Member, error) {
	var row memberModel
	err := r.db.WithContext(ctx).
		Where("identity = ?", strings.TrimSpace(identity)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Member{}, domainerrors.ErrMemberNotFound
		}
		return entities.Member{}, r.logError("voting_repo_get_member_failed", err, "identity", strings.TrimSpace(identity))
	}
	return row.toEntity(), nil
}

func (r *Repository) SaveMember(ctx context.Context, member entities.Member) error {
	row := memberModel{
		MemberID:    strings.TrimSpace(member.MemberID),
		Identity:    strings.TrimSpace(member.Identity),
		DisplayName: strings.TrimSpace(member.DisplayName),
		Email:       strings.TrimSpace(member.Email),
		SecretHash:  member.SecretHash,
		Admin:       member.Admin,
		CreatedAt:   member.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrMemberExists
		}
		return r.logError("voting_repo_save_member_failed", err, "identity", row.Identity)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("voting_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

// gormTx runs every statement on the transaction handle gorm hands to InTx.
type gormTx struct {
	db   *gorm.DB
	repo *Repository
}

func (t *gormTx) LockTopic(ctx context.Context, topicID string) (entities.Topic, error) {
	var row topicModel
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("topic_id = ?", strings.TrimSpace(topicID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Topic{}, domainerrors.ErrTopicNotFound
		}
		return entities.Topic{}, t.repo.logError("voting_repo_lock_topic_failed", err, "topic_id", strings.TrimSpace(topicID))
	}
	return row.toEntity(), nil
}

func (t *gormTx) InsertTopic(ctx context.Context, topic entities.Topic) error {
	row := topicModelFromEntity(topic)
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return t.repo.logError("voting_repo_insert_topic_failed", err, "topic_id", row.TopicID)
	}
	return nil
}

func (t *gormTx) SessionByTopic(ctx context.Context, topicID string) (entities.Session, bool, error) {
	session, found, err := loadSession(ctx, t.db, strings.TrimSpace(topicID))
	if err != nil {
		return entities.Session{}, false, t.repo.logError("voting_repo_tx_get_session_failed", err, "topic_id", strings.TrimSpace(topicID))
	}
	return session, found, nil
}

func (t *gormTx) InsertSession(ctx context.Context, session entities.Session) error {
	row := sessionModel{
		SessionID: strings.TrimSpace(session.SessionID),
		TopicID:   strings.TrimSpace(session.TopicID),
		OpensAt:   session.OpensAt.UTC(),
		ClosesAt:  session.ClosesAt.UTC(),
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrSessionAlreadyOpen
		}
		return t.repo.logError("voting_repo_insert_session_failed", err, "topic_id", row.TopicID)
	}
	result := t.db.WithContext(ctx).
		Model(&topicModel{}).
		Where("topic_id = ?", row.TopicID).
		Where("session_id IS NULL").
		Update("session_id", row.SessionID)
	if result.Error != nil {
		return t.repo.logError("voting_repo_link_session_failed", result.Error, "topic_id", row.TopicID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrSessionAlreadyOpen
	}
	return nil
}

func (t *gormTx) InsertVote(ctx context.Context, sessionID string, vote entities.Vote) error {
	row := voteModelFromEntity(sessionID, vote)
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrDuplicateVote
		}
		return t.repo.logError("voting_repo_insert_vote_failed", err,
			"session_id", row.SessionID,
			"voter_identity", row.VoterIdentity,
		)
	}
	return nil
}

func (t *gormTx) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return t.repo.logError("voting_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outbox.StatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return t.repo.logError("voting_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	return nil
}

func loadSession(ctx context.Context, db *gorm.DB, topicID string) (entities.Session, bool, error) {
	var row sessionModel
	err := db.WithContext(ctx).
		Where("topic_id = ?", topicID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Session{}, false, nil
		}
		return entities.Session{}, false, err
	}
	var votes []voteModel
	if err := db.WithContext(ctx).
		Where("session_id = ?", row.SessionID).
		Order("cast_at ASC, vote_id ASC").
		Find(&votes).Error; err != nil {
		return entities.Session{}, false, err
	}
	return row.toEntity(votes), true, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/voting-session",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("voting repository operation failed", fields...)
	return err
}

func toTopicEntities(rows []topicModel) []entities.Topic {
	items := make([]entities.Topic, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var (
	_ ports.Transactor       = (*Repository)(nil)
	_ ports.TopicRepository  = (*Repository)(nil)
	_ ports.MemberStore      = (*Repository)(nil)
	_ ports.OutboxRepository = (*Repository)(nil)
	_ ports.Tx               = (*gormTx)(nil)
)
