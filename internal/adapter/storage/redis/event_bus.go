package redis

import (
	"context"
	"encoding/json"
	"time"

	"linkpay/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

// EventBus implements ports.EventPublisher over Redis pub/sub so that every
// API instance can deliver events to the websocket clients it holds.
type EventBus struct {
	client  *goredis.Client
	channel string
	log     zerolog.Logger
}

// NewEventBus creates a Redis-backed event bus on the given channel.
func NewEventBus(client *goredis.Client, channel string, log zerolog.Logger) *EventBus {
	return &EventBus{client: client, channel: channel, log: log}
}

// Publish broadcasts the event from a detached goroutine with its own
// timeout. Failures are logged only.
func (b *EventBus) Publish(_ context.Context, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.log.Warn().Err(err).Str("event", string(event.Type)).Msg("Failed to encode event")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
			b.log.Warn().Err(err).Str("event", string(event.Type)).Msg("Failed to publish event")
		}
	}()
}

// Run subscribes to the channel and hands every decoded event to sink until
// ctx is cancelled.
func (b *EventBus) Run(ctx context.Context, sink func(context.Context, domain.Event)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed before consuming.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn().Err(err).Msg("Dropping malformed event")
				continue
			}
			sink(ctx, event)
		}
	}
}
