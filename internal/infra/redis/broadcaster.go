package redis

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"trivia-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Broadcaster relays game events between instances over Redis Pub/Sub, one channel per game.
type Broadcaster struct {
	client *redis.Client
}

func NewBroadcaster(client *redis.Client) *Broadcaster {
	return &Broadcaster{client: client}
}

func eventsChannel(gameID string) string { return "trivia:events:" + gameID }

func (b *Broadcaster) Publish(ctx context.Context, event domain.GameEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, eventsChannel(event.GameID), data).Err()
}

func (b *Broadcaster) Subscribe(ctx context.Context, gameID string) (<-chan domain.GameEvent, func(), error) {
	pubsub := b.client.Subscribe(ctx, eventsChannel(gameID))
	// wait for the subscription so no event published after we return is lost
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	msgs := pubsub.Channel()
	out := make(chan domain.GameEvent, 8)
	go func() {
		defer close(out)
		for msg := range msgs {
			var event domain.GameEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("drop malformed event on %s: %v", msg.Channel, err)
				continue
			}
			select {
			case out <- event:
			default:
				// slow consumer; drop the oldest so the newest state wins
				select {
				case <-out:
				default:
				}
				select {
				case out <- event:
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = pubsub.Close() })
	}
	return out, cancel, nil
}
