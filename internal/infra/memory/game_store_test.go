package memory

import (
	"context"
	"testing"

	"trivia-service/internal/app"
	"trivia-service/internal/infra/storetest"
)

func TestGameStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) app.GameStore { return NewGameStore() })
}

func TestGameStoreReturnsCopies(t *testing.T) {
	store := NewGameStore()
	g, p := storetest.HostedGame("g1", "host")
	if err := store.CreateGame(context.Background(), g, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, _ := store.GetGame(context.Background(), "g1")
	got.QuestionIDs[0] = "mutated"
	again, _ := store.GetGame(context.Background(), "g1")
	if again.QuestionIDs[0] != "q1" {
		t.Fatalf("caller mutated stored game: %v", again.QuestionIDs)
	}
}
