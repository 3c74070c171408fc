package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "plenary/contexts/governance/voting-session/application"
	"plenary/contexts/governance/voting-session/ports"
)

const defaultRelayBatch = 100

// OutboxRelay moves voting events from the outbox table onto the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce relays one batch in creation order. A row is marked published only
// after the bus accepts it, and the cycle stops at the first failing row so
// events of one topic never overtake each other.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	batch := r.BatchSize
	if batch <= 0 {
		batch = defaultRelayBatch
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, batch)
	if err != nil {
		return r.fail(logger, "list", "", err)
	}
	if len(pending) == 0 {
		return nil
	}

	publishedAt := r.now()
	for i, row := range pending {
		if stage, err := r.relay(ctx, row, publishedAt); err != nil {
			logger.Info("voting outbox relay cycle interrupted",
				"event", "voting_outbox_relay_interrupted",
				"module", "governance/voting-session",
				"layer", "worker",
				"published_count", i,
				"remaining_count", len(pending)-i,
			)
			return r.fail(logger, stage, row.OutboxID, err)
		}
	}

	logger.Info("voting outbox relay cycle completed",
		"event", "voting_outbox_relay_completed",
		"module", "governance/voting-session",
		"layer", "worker",
		"published_count", len(pending),
		"batch_full", len(pending) == batch,
	)
	return nil
}

// relay returns the stage that failed alongside the error.
func (r OutboxRelay) relay(ctx context.Context, row ports.OutboxMessage, publishedAt time.Time) (string, error) {
	var envelope ports.EventEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return "decode", err
	}
	topic := envelope.EventType
	if topic == "" {
		topic = row.EventType
	}
	if err := r.Publisher.Publish(ctx, topic, envelope); err != nil {
		return "publish", err
	}
	if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, publishedAt); err != nil {
		return "mark_published", err
	}
	return "", nil
}

func (r OutboxRelay) fail(logger *slog.Logger, stage string, outboxID string, err error) error {
	logger.Error("voting outbox relay failed",
		"event", "voting_outbox_"+stage+"_failed",
		"module", "governance/voting-session",
		"layer", "worker",
		"stage", stage,
		"outbox_id", outboxID,
		"error", err.Error(),
	)
	return err
}

func (r OutboxRelay) now() time.Time {
	if r.Clock == nil {
		return time.Now().UTC()
	}
	return r.Clock.Now().UTC()
}
