package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"plenary/contexts/governance/voting-session/adapters/sqlite/migrations"
	"plenary/contexts/governance/voting-session/application/commands"
	"plenary/contexts/governance/voting-session/domain/entities"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
	"plenary/contexts/governance/voting-session/ports"
	"plenary/internal/platform/db"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	handle, err := db.OpenSQLite(filepath.Join(t.TempDir(), "voting.db"), migrations.FS)
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	t.Cleanup(func() { _ = handle.Close() })
	return NewStore(handle.DB, nil)
}

func seedTopicWithSession(t *testing.T, store *Store, now time.Time) entities.Session {
	t.Helper()
	ctx := context.Background()
	session, err := entities.NewSession("session-1", "topic-1", now, 10)
	if err != nil {
		t.Fatalf("new session failed: %v", err)
	}
	err = store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := tx.InsertTopic(ctx, entities.Topic{
			TopicID:   "topic-1",
			Subject:   "Extend library hours",
			Category:  entities.CategoryEducation,
			OwnerID:   "owner-1",
			CreatedAt: now,
		}); err != nil {
			return err
		}
		return tx.InsertSession(ctx, session)
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return session
}

func TestStoreSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	seedTopicWithSession(t, store, now)

	topic, err := store.GetTopic(ctx, "topic-1")
	if err != nil {
		t.Fatalf("get topic failed: %v", err)
	}
	if topic.SessionID != "session-1" {
		t.Fatalf("expected topic linked to session-1, got %q", topic.SessionID)
	}

	err = store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.InsertSession(ctx, entities.Session{
			SessionID: "session-2",
			TopicID:   "topic-1",
			OpensAt:   now,
			ClosesAt:  now.Add(time.Minute),
		})
	})
	if !errors.Is(err, domainerrors.ErrSessionAlreadyOpen) {
		t.Fatalf("expected session already open, got %v", err)
	}

	vote := entities.Vote{VoterIdentity: "voter-1", Polarity: entities.PolarityPositive, CastAt: now.Add(time.Minute)}
	if err := store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.InsertVote(ctx, "session-1", vote)
	}); err != nil {
		t.Fatalf("insert vote failed: %v", err)
	}
	err = store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.InsertVote(ctx, "session-1", entities.Vote{
			VoterIdentity: "voter-1",
			Polarity:      entities.PolarityNegative,
			CastAt:        now.Add(2 * time.Minute),
		})
	})
	if !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected duplicate vote from unique index, got %v", err)
	}

	session, err := store.GetSessionByTopic(ctx, "topic-1")
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if session.PositiveCount() != 1 || session.NegativeCount() != 0 {
		t.Fatalf("unexpected tally %d/%d", session.PositiveCount(), session.NegativeCount())
	}
	if !session.ClosesAt.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("expected closes_at round trip, got %s", session.ClosesAt)
	}

	active, err := store.ListTopicsWithActiveSession(ctx, "", now.Add(5*time.Minute))
	if err != nil || len(active) != 1 {
		t.Fatalf("expected one active topic, got %d %v", len(active), err)
	}
	active, err = store.ListTopicsWithActiveSession(ctx, "", now.Add(10*time.Minute))
	if err != nil || len(active) != 0 {
		t.Fatalf("expected no active topics at closes_at, got %d %v", len(active), err)
	}
}

func TestStoreRollsBackFailedTransaction(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	seedTopicWithSession(t, store, now)

	failure := errors.New("abort")
	err := store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := tx.InsertVote(ctx, "session-1", entities.Vote{
			VoterIdentity: "voter-9",
			Polarity:      entities.PolarityNegative,
			CastAt:        now,
		}); err != nil {
			return err
		}
		if err := tx.AppendOutbox(ctx, ports.EventEnvelope{EventID: "event-1", EventType: "vote.cast", OccurredAt: now}); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected abort error, got %v", err)
	}

	session, err := store.GetSessionByTopic(ctx, "topic-1")
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if session.NegativeCount() != 0 {
		t.Fatalf("expected rolled back vote, got %d negative", session.NegativeCount())
	}
	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected no outbox rows after rollback, got %d %v", len(pending), err)
	}
}

func TestStoreOutboxAndMembers(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	if err := store.InTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.AppendOutbox(ctx, ports.EventEnvelope{EventID: "event-1", EventType: "topic.created", PartitionKey: "topic-1", OccurredAt: now})
	}); err != nil {
		t.Fatalf("append outbox failed: %v", err)
	}
	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one pending row, got %d %v", len(pending), err)
	}
	if err := store.MarkOutboxPublished(ctx, "event-1", now); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	if err := store.MarkOutboxPublished(ctx, "missing", now); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected conflict for unknown outbox row, got %v", err)
	}

	member := entities.Member{
		MemberID:    "member-1",
		Identity:    "12345678901",
		DisplayName: "Ana",
		Email:       "ana@example.com",
		SecretHash:  "hash",
		Admin:       true,
		CreatedAt:   now,
	}
	if err := store.SaveMember(ctx, member); err != nil {
		t.Fatalf("save member failed: %v", err)
	}
	if err := store.SaveMember(ctx, member); !errors.Is(err, domainerrors.ErrMemberExists) {
		t.Fatalf("expected member exists, got %v", err)
	}
	loaded, err := store.GetMember(ctx, "12345678901")
	if err != nil || !loaded.Admin || loaded.Email != "ana@example.com" {
		t.Fatalf("unexpected member %+v %v", loaded, err)
	}
	if _, err := store.GetMember(ctx, "nobody"); !errors.Is(err, domainerrors.ErrMemberNotFound) {
		t.Fatalf("expected member not found, got %v", err)
	}
}

func TestStoreConcurrentDuplicateVotes(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	clock := SystemClock{}
	ids := UUIDGenerator{}

	topic, err := commands.TopicUseCase{Tx: store, Clock: clock, IDGen: ids}.CreateTopic(ctx, commands.CreateTopicCommand{
		OwnerID:  "owner-1",
		Subject:  "Repave the cycle lane",
		Category: "transport",
	})
	if err != nil {
		t.Fatalf("create topic failed: %v", err)
	}

	sessions := commands.SessionUseCase{Tx: store, Clock: clock, IDGen: ids}
	openResults := make(chan error, 12)
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sessions.OpenSession(ctx, commands.OpenSessionCommand{
				TopicID:         topic.TopicID,
				RequesterID:     "owner-1",
				DurationMinutes: 10,
			})
			openResults <- err
		}()
	}
	wg.Wait()
	close(openResults)

	opened, alreadyOpen := 0, 0
	for err := range openResults {
		switch {
		case err == nil:
			opened++
		case errors.Is(err, domainerrors.ErrSessionAlreadyOpen):
			alreadyOpen++
		default:
			t.Fatalf("unexpected open session error: %v", err)
		}
	}
	if opened != 1 || alreadyOpen != 11 {
		t.Fatalf("expected 1 opened and 11 conflicts, got %d and %d", opened, alreadyOpen)
	}

	votes := commands.VoteUseCase{Topics: store, Tx: store, Members: store, Clock: clock, IDGen: ids}
	voteResults := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := votes.CastInternalVote(ctx, commands.CastInternalVoteCommand{
				TopicID:        topic.TopicID,
				CallerIdentity: "voter-1",
				Polarity:       "positive",
			})
			voteResults <- err
		}()
	}
	wg.Wait()
	close(voteResults)

	recorded, duplicates := 0, 0
	for err := range voteResults {
		switch {
		case err == nil:
			recorded++
		case errors.Is(err, domainerrors.ErrDuplicateVote):
			duplicates++
		default:
			t.Fatalf("unexpected vote error: %v", err)
		}
	}
	if recorded != 1 || duplicates != 15 {
		t.Fatalf("expected 1 recorded and 15 duplicates, got %d and %d", recorded, duplicates)
	}

	session, err := store.GetSessionByTopic(ctx, topic.TopicID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if session.PositiveCount() != 1 || session.NegativeCount() != 0 {
		t.Fatalf("expected exactly one stored vote, got +%d -%d", session.PositiveCount(), session.NegativeCount())
	}
}

func TestSystemClockAndIDsRoundTrip(t *testing.T) {
	now := SystemClock{}.Now()
	if now.Location() != time.UTC || now.Nanosecond()%int(time.Millisecond) != 0 {
		t.Fatalf("expected millisecond UTC time, got %v", now)
	}
	if !fromMillis(toMillis(now)).Equal(now) {
		t.Fatalf("expected clock value to survive storage round trip")
	}

	first, err := UUIDGenerator{}.NewID(context.Background())
	if err != nil {
		t.Fatalf("new id failed: %v", err)
	}
	second, err := UUIDGenerator{}.NewID(context.Background())
	if err != nil {
		t.Fatalf("new id failed: %v", err)
	}
	if first == second || len(first) != 36 {
		t.Fatalf("unexpected ids %q %q", first, second)
	}
}
