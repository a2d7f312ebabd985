package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"feedme-console/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus is the single in-process publish/subscribe channel between the realtime
// layer, the domain stores and the notification queue. It is owned by the
// composition root; nothing else constructs one.
type Bus struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func New(log logger.ILogger) *Bus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NopLogger{},
	)
	return &Bus{
		pubSub: pubSub,
		logger: log,
	}
}

// Publish serializes the event and pushes it onto its topic. Publish failures
// are returned but subscribers are decoupled: a slow consumer never blocks
// the producer beyond the channel buffer.
func (b *Bus) Publish(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("bus: marshal %s: %w", ev.EventTopic(), err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubSub.Publish(ev.EventTopic(), msg); err != nil {
		return fmt.Errorf("bus: publish %s: %w", ev.EventTopic(), err)
	}
	return nil
}

// Subscribe registers a handler for one topic. The handler runs on the
// subscriber goroutine; decode errors are logged and the message dropped,
// mirroring the router's tolerance for malformed payloads.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler func(payload []byte)) error {
	messages, err := b.pubSub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("bus: subscribe %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			handler(msg.Payload)
			msg.Ack()
		}
	}()

	return nil
}

// Close shuts the underlying pub/sub down; outstanding subscriber channels
// are closed.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}

// Decode unmarshals a payload into the given event struct. Kept here so
// subscribers do not couple to the wire encoding.
func Decode[T any](payload []byte) (T, error) {
	var ev T
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("bus: decode event: %w", err)
	}
	return ev, nil
}
