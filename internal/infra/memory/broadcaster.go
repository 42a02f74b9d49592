package memory

import (
	"context"
	"sync"

	"trivia-service/internal/domain"
)

// Broadcaster fans game events out to in-process subscribers.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.GameEvent]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[string]map[chan domain.GameEvent]struct{})}
}

func (b *Broadcaster) Subscribe(_ context.Context, gameID string) (<-chan domain.GameEvent, func(), error) {
	ch := make(chan domain.GameEvent, 8)

	b.mu.Lock()
	subs, ok := b.subscribers[gameID]
	if !ok {
		subs = make(map[chan domain.GameEvent]struct{})
		b.subscribers[gameID] = subs
	}
	subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[gameID]
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(b.subscribers, gameID)
		}
	}
	return ch, cancel, nil
}

// Publish never blocks: a subscriber that fell behind loses its oldest event.
func (b *Broadcaster) Publish(_ context.Context, event domain.GameEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers[event.GameID] {
		deliver(ch, event)
	}
	return nil
}

func deliver(ch chan domain.GameEvent, event domain.GameEvent) {
	select {
	case ch <- event:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- event:
		default:
		}
	}
}
