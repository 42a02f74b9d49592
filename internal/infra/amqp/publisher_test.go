package amqp

import (
	"context"
	"testing"
	"time"

	"trivia-service/internal/domain"
)

func TestDisabledPublisherIsNoOp(t *testing.T) {
	p, err := NewEventPublisher("", "")
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	if p.Enabled() {
		t.Fatalf("expected disabled publisher")
	}
	if err := p.Publish(context.Background(), domain.GameEvent{Type: domain.EventGameStarted, GameID: "g1", At: time.Now()}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
