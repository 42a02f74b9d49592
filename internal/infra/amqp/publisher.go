package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"trivia-service/internal/domain"

	"github.com/rabbitmq/amqp091-go"
)

// DefaultExchange receives game lifecycle events, routed by event type.
const DefaultExchange = "trivia.events"

// EventPublisher sends game events to a RabbitMQ topic exchange.
type EventPublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool
}

// NewEventPublisher connects to RabbitMQ. An empty url yields a disabled publisher.
func NewEventPublisher(url, exchange string) (*EventPublisher, error) {
	if url == "" {
		log.Println("rabbitmq url is empty, event publishing is disabled")
		return &EventPublisher{}, nil
	}
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &EventPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		enabled:  true,
	}, nil
}

func (p *EventPublisher) Enabled() bool { return p.enabled }

func (p *EventPublisher) Publish(ctx context.Context, event domain.GameEvent) error {
	if !p.enabled {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(pubCtx, p.exchange, string(event.Type), false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    event.At,
		MessageId:    event.GameID + ":" + string(event.Type) + ":" + event.At.Format(time.RFC3339Nano),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		log.Printf("close rabbitmq channel: %v", err)
	}
	return p.conn.Close()
}
