package workers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"plenary/contexts/governance/voting-session/adapters/memory"
	"plenary/contexts/governance/voting-session/application/commands"
	"plenary/contexts/governance/voting-session/ports"
	"plenary/internal/platform/messaging"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ ports.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	return nil
}

func seedOutbox(t *testing.T, store *memory.Store) string {
	t.Helper()
	ctx := context.Background()
	topic, err := commands.TopicUseCase{Tx: store, IDGen: store}.CreateTopic(ctx, commands.CreateTopicCommand{
		OwnerID:  "owner-1",
		Subject:  "Open the gym on Sundays",
		Category: "sports",
	})
	if err != nil {
		t.Fatalf("create topic failed: %v", err)
	}
	if _, err := (commands.SessionUseCase{Tx: store, IDGen: store}).OpenSession(ctx, commands.OpenSessionCommand{
		TopicID:         topic.TopicID,
		RequesterID:     "owner-1",
		DurationMinutes: 5,
	}); err != nil {
		t.Fatalf("open session failed: %v", err)
	}
	return topic.TopicID
}

func TestOutboxRelayPublishesInOrderAndMarks(t *testing.T) {
	store := memory.NewStore()
	seedOutbox(t, store)
	publisher := &recordingPublisher{}

	relay := OutboxRelay{Outbox: store, Publisher: publisher, BatchSize: 10}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay failed: %v", err)
	}
	if strings.Join(publisher.topics, ",") != "topic.created,session.opened" {
		t.Fatalf("unexpected published topics: %v", publisher.topics)
	}
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected outbox drained, got %d %v", len(pending), err)
	}
}

func TestOutboxRelayKeepsRowsOnPublishFailure(t *testing.T) {
	store := memory.NewStore()
	seedOutbox(t, store)

	relay := OutboxRelay{Outbox: store, Publisher: &recordingPublisher{fail: true}}
	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure")
	}
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil || len(pending) != 2 {
		t.Fatalf("expected both rows still pending, got %d %v", len(pending), err)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAuditConsumerRecordsRelayedEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var logs syncBuffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	bus := messaging.NewBus(0, logger)
	if err := (AuditConsumer{Subscriber: bus, Logger: logger}).Start(ctx); err != nil {
		t.Fatalf("start audit consumer failed: %v", err)
	}

	store := memory.NewStore()
	topicID := seedOutbox(t, store)
	if err := (OutboxRelay{Outbox: store, Publisher: bus}).RunOnce(ctx); err != nil {
		t.Fatalf("relay failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for strings.Count(logs.String(), `"voting_audit_recorded"`) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for audit records, got: %s", logs.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !strings.Contains(logs.String(), topicID) {
		t.Fatalf("expected audit records to carry topic id %s", topicID)
	}
}

type stubOutbox struct {
	rows   []ports.OutboxMessage
	marked []string
}

func (o *stubOutbox) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	if len(o.rows) > limit {
		return o.rows[:limit], nil
	}
	return o.rows, nil
}

func (o *stubOutbox) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	o.marked = append(o.marked, outboxID)
	return nil
}

func TestOutboxRelayStopsAtUndecodableRow(t *testing.T) {
	outbox := &stubOutbox{rows: []ports.OutboxMessage{
		{OutboxID: "row-1", EventType: "topic.created", Payload: []byte(`{"event_id":"row-1","event_type":"topic.created"}`)},
		{OutboxID: "row-2", EventType: "session.opened", Payload: []byte(`not json`)},
		{OutboxID: "row-3", EventType: "vote.cast", Payload: []byte(`{"event_id":"row-3","event_type":"vote.cast"}`)},
	}}
	publisher := &recordingPublisher{}

	if err := (OutboxRelay{Outbox: outbox, Publisher: publisher}).RunOnce(context.Background()); err == nil {
		t.Fatalf("expected decode failure")
	}
	if strings.Join(outbox.marked, ",") != "row-1" {
		t.Fatalf("expected only row-1 marked, got %v", outbox.marked)
	}
	if strings.Join(publisher.topics, ",") != "topic.created" {
		t.Fatalf("expected later rows held back, got %v", publisher.topics)
	}
}
