package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	application "plenary/contexts/governance/voting-session/application"
	"plenary/contexts/governance/voting-session/application/commands"
	"plenary/contexts/governance/voting-session/ports"
)

const defaultAuditCG = "voting-session-audit-cg"

// AuditConsumer writes one structured audit record per voting event.
type AuditConsumer struct {
	Subscriber    ports.EventSubscriber
	ConsumerGroup string
	Disabled      bool
	Logger        *slog.Logger
}

func (c AuditConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		logger.Info("audit consumer disabled by feature flag",
			"event", "voting_audit_consumer_disabled",
			"module", "governance/voting-session",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultAuditCG
	}
	for _, topic := range []string{commands.EventTopicCreated, commands.EventSessionOpened, commands.EventVoteCast} {
		if err := c.Subscriber.Subscribe(ctx, topic, group, c.handle); err != nil {
			logger.Error("audit consumer subscribe failed",
				"event", "voting_audit_consumer_subscribe_failed",
				"module", "governance/voting-session",
				"layer", "worker",
				"topic", topic,
				"consumer_group", group,
				"error", err.Error(),
			)
			return err
		}
	}
	logger.Info("audit consumer subscriptions active",
		"event", "voting_audit_consumer_started",
		"module", "governance/voting-session",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c AuditConsumer) handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	var data map[string]any
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &data); err != nil {
			logger.Warn("audit event payload undecodable",
				"event", "voting_audit_payload_invalid",
				"module", "governance/voting-session",
				"layer", "worker",
				"event_id", event.EventID,
				"error", err.Error(),
			)
			return err
		}
	}
	attrs := []any{
		"event", "voting_audit_recorded",
		"module", "governance/voting-session",
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"topic_id", event.PartitionKey,
		"occurred_at", event.OccurredAt,
	}
	for _, key := range []string{"session_id", "owner_id", "voter_identity", "polarity", "channel", "closes_at"} {
		if value, ok := data[key]; ok {
			attrs = append(attrs, key, value)
		}
	}
	logger.InfoContext(ctx, "voting event audited", attrs...)
	return nil
}
