package messaging

import (
	"context"
	"log/slog"
	"sync"

	"plenary/internal/shared/events"
)

const defaultBufferSize = 128

// Bus is an in-process event bus. It does not talk to a broker: events live
// only in the memory of the process that publishes them. Each consumer group
// subscribed to a topic receives every event once; members of one group take
// turns.
type Bus struct {
	mu         sync.Mutex
	groups     map[string]map[string]*group
	bufferSize int
	logger     *slog.Logger
}

type group struct {
	members []chan events.Envelope
	next    int
}

func NewBus(bufferSize int, logger *slog.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		groups:     make(map[string]map[string]*group),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Publish hands event to one member of every group on topic. A group whose
// chosen member has a full buffer misses the event; the drop is logged.
func (b *Bus) Publish(ctx context.Context, topic string, event events.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	targets := make(map[string]chan events.Envelope, len(b.groups[topic]))
	for name, g := range b.groups[topic] {
		if len(g.members) == 0 {
			continue
		}
		targets[name] = g.members[g.next%len(g.members)]
		g.next++
	}
	b.mu.Unlock()

	for name, ch := range targets {
		select {
		case ch <- event:
		default:
			b.logger.Warn("event dropped for slow consumer group",
				"event", "event_bus_publish_dropped",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"consumer_group", name,
				"event_id", event.EventID,
			)
		}
	}

	b.logger.Debug("event published",
		"event", "event_bus_published",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"consumer_groups", len(targets),
	)
	return nil
}

// Subscribe joins consumerGroup on topic and runs handler for each delivered
// event until ctx ends.
func (b *Bus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, events.Envelope) error,
) error {
	ch := make(chan events.Envelope, b.bufferSize)
	b.join(topic, consumerGroup, ch)

	go func() {
		defer b.leave(topic, consumerGroup, ch)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil {
					b.logger.Error("event handler failed",
						"event", "event_bus_handler_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

func (b *Bus) join(topic string, consumerGroup string, ch chan events.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	byGroup, ok := b.groups[topic]
	if !ok {
		byGroup = make(map[string]*group)
		b.groups[topic] = byGroup
	}
	g, ok := byGroup[consumerGroup]
	if !ok {
		g = &group{}
		byGroup[consumerGroup] = g
	}
	g.members = append(g.members, ch)
}

func (b *Bus) leave(topic string, consumerGroup string, ch chan events.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.groups[topic][consumerGroup]
	if !ok {
		return
	}
	members := g.members[:0]
	for _, member := range g.members {
		if member != ch {
			members = append(members, member)
		}
	}
	g.members = members
	if len(members) == 0 {
		delete(b.groups[topic], consumerGroup)
	}
}
