package commands

import (
	"encoding/json"
	"time"

	"plenary/contexts/governance/voting-session/ports"
)

const (
	EventTopicCreated  = "topic.created"
	EventSessionOpened = "session.opened"
	EventVoteCast      = "vote.cast"
)

func newTopicEnvelope(
	eventID string,
	eventType string,
	topicID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Partitioned by topic so consumers observe a topic's events in write order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "voting-session",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "topic_id",
		PartitionKey:     topicID,
		Data:             payload,
	}, nil
}
