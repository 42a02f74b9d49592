// Package storetest holds behaviour every app.GameStore implementation must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
)

var base = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

// Run exercises a GameStore. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) app.GameStore) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("SingleLobby", func(t *testing.T) { testSingleLobby(t, newStore(t)) })
	t.Run("UpdateGameVersions", func(t *testing.T) { testUpdateGameVersions(t, newStore(t)) })
	t.Run("UpdateParticipant", func(t *testing.T) { testUpdateParticipant(t, newStore(t)) })
	t.Run("ConcurrentAnswers", func(t *testing.T) { testConcurrentAnswers(t, newStore(t)) })
	t.Run("ListFinished", func(t *testing.T) { testListFinished(t, newStore(t)) })
	t.Run("ListParticipations", func(t *testing.T) { testListParticipations(t, newStore(t)) })
}

// HostedGame returns a waiting hosted game and its host participant, both at version 1.
func HostedGame(id, host string) (domain.Game, domain.Participant) {
	g := domain.NewGame(id, domain.KindHosted, host, []string{"q1", "q2"}, 20, 3, base)
	g.Version = 1
	p := domain.Participant{
		ID: id + "-" + host, GameID: id, Key: host, Identity: host, Name: host,
		Answers: []domain.Answer{}, JoinedAt: base, Version: 1,
	}
	return g, p
}

func soloGame(id string) (domain.Game, domain.Participant) {
	g := domain.NewGame(id, domain.KindSolo, "", []string{"q1"}, 10, 3, base)
	_ = g.Start(base)
	g.Version = 1
	p := domain.Participant{ID: id + "-anon", GameID: id, Key: "anon-" + id, Name: "Anon", Answers: []domain.Answer{}, JoinedAt: base, Version: 1}
	return g, p
}

func testCreateAndGet(t *testing.T, store app.GameStore) {
	ctx := context.Background()
	g, p := HostedGame("g1", "host")
	if err := store.CreateGame(ctx, g, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := store.GetGame(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.HostID != "host" || got.Status != domain.StatusWaiting || len(got.QuestionIDs) != 2 || got.Version != 1 {
		t.Fatalf("unexpected game %+v", got)
	}
	if _, err := store.GetGame(ctx, "missing"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
	participants, err := store.ListParticipants(ctx, "g1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(participants) != 1 || participants[0].Key != "host" || participants[0].ID != p.ID {
		t.Fatalf("unexpected participants %+v", participants)
	}
}

func testSingleLobby(t *testing.T, store app.GameStore) {
	ctx := context.Background()
	if _, err := store.FindLobby(ctx); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected no lobby, got %v", err)
	}
	a, pa := HostedGame("a", "host")
	if err := store.CreateGame(ctx, a, pa); err != nil {
		t.Fatalf("create a: %v", err)
	}
	solo, ps := soloGame("solo")
	if err := store.CreateGame(ctx, solo, ps); err != nil {
		t.Fatalf("solo games never occupy the lobby: %v", err)
	}
	lobby, err := store.FindLobby(ctx)
	if err != nil || lobby.ID != "a" {
		t.Fatalf("expected lobby a, got %+v err=%v", lobby, err)
	}
	b, pb := HostedGame("b", "host")
	if err := store.CreateGame(ctx, b, pb); !errors.Is(err, domain.ErrLobbyTaken) {
		t.Fatalf("expected ErrLobbyTaken, got %v", err)
	}
	if _, err := store.UpdateGame(ctx, "a", func(g *domain.Game) error { return g.Start(base) }); err != nil {
		t.Fatalf("start a: %v", err)
	}
	if _, err := store.FindLobby(ctx); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("started game still in lobby: %v", err)
	}
	if err := store.CreateGame(ctx, b, pb); err != nil {
		t.Fatalf("create b after a started: %v", err)
	}
}

func testUpdateGameVersions(t *testing.T, store app.GameStore) {
	ctx := context.Background()
	g, p := HostedGame("g1", "host")
	if err := store.CreateGame(ctx, g, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := store.UpdateGame(ctx, "g1", func(g *domain.Game) error { return g.Start(base) })
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 || updated.Status != domain.StatusInProgress {
		t.Fatalf("expected version 2 in progress, got %d %s", updated.Version, updated.Status)
	}

	boom := errors.New("boom")
	if _, err := store.UpdateGame(ctx, "g1", func(g *domain.Game) error {
		g.CurrentQuestionIndex = 1
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	same, err := store.UpdateGame(ctx, "g1", func(g *domain.Game) error {
		g.CurrentQuestionIndex = 1
		return domain.ErrUnchanged
	})
	if err != nil {
		t.Fatalf("unchanged: %v", err)
	}
	stored, _ := store.GetGame(ctx, "g1")
	if same.Version != 2 || stored.Version != 2 || stored.CurrentQuestionIndex != 0 {
		t.Fatalf("aborted updates leaked: returned %+v stored %+v", same, stored)
	}
	if _, err := store.UpdateGame(ctx, "missing", func(*domain.Game) error { return nil }); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func testUpdateParticipant(t *testing.T, store app.GameStore) {
	ctx := context.Background()
	g, p := HostedGame("g1", "host")
	if err := store.CreateGame(ctx, g, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	var seen domain.Status
	bob, err := store.UpdateParticipant(ctx, "g1", "bob", func(g domain.Game, p *domain.Participant) error {
		seen = g.Status
		if p.Exists() {
			return fmt.Errorf("bob should be new")
		}
		p.ID = "bob-id"
		p.Identity = "bob"
		p.Name = "Bob"
		p.JoinedAt = base.Add(time.Second)
		return nil
	})
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	if seen != domain.StatusWaiting || bob.Version != 1 || bob.GameID != "g1" || bob.Key != "bob" {
		t.Fatalf("unexpected bob %+v (saw %s)", bob, seen)
	}

	bob, err = store.UpdateParticipant(ctx, "g1", "bob", func(_ domain.Game, p *domain.Participant) error {
		p.ID = "ignored"
		p.RecordAnswer(domain.Answer{QuestionID: "q1", Choice: "A", PointsEarned: 12})
		return nil
	})
	if err != nil {
		t.Fatalf("update bob: %v", err)
	}
	if bob.ID != "bob-id" || bob.Version != 2 || bob.Score != 12 || len(bob.Answers) != 1 {
		t.Fatalf("unexpected bob after answer %+v", bob)
	}

	unchanged, err := store.UpdateParticipant(ctx, "g1", "bob", func(_ domain.Game, p *domain.Participant) error {
		p.Score = 99
		return domain.ErrUnchanged
	})
	if err != nil || unchanged.Score != 12 || unchanged.Version != 2 {
		t.Fatalf("ErrUnchanged should return stored bob, got %+v err=%v", unchanged, err)
	}

	participants, err := store.ListParticipants(ctx, "g1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(participants) != 2 || participants[0].Key != "host" || participants[1].Key != "bob" {
		t.Fatalf("expected insertion order host,bob got %+v", participants)
	}
	if _, err := store.UpdateParticipant(ctx, "missing", "bob", func(domain.Game, *domain.Participant) error { return nil }); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func testConcurrentAnswers(t *testing.T, store app.GameStore) {
	ctx := context.Background()
	g, p := HostedGame("g1", "host")
	if err := store.CreateGame(ctx, g, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for attempt := 0; attempt < 50; attempt++ {
				_, err := store.UpdateParticipant(ctx, "g1", "host", func(_ domain.Game, p *domain.Participant) error {
					p.RecordAnswer(domain.Answer{QuestionID: fmt.Sprintf("q%d", i), PointsEarned: 1})
					return nil
				})
				if errors.Is(err, domain.ErrConflict) {
					continue
				}
				errs <- err
				return
			}
			errs <- fmt.Errorf("writer %d kept conflicting", i)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("writer: %v", err)
		}
	}

	participants, _ := store.ListParticipants(ctx, "g1")
	host := participants[0]
	if len(host.Answers) != writers || host.Score != writers || host.Version != writers+1 {
		t.Fatalf("lost updates: answers=%d score=%d version=%d", len(host.Answers), host.Score, host.Version)
	}
}

func testListFinished(t *testing.T, store app.GameStore) {
	ctx := context.Background()
	finish := func(id string, at time.Time) {
		t.Helper()
		if _, err := store.UpdateGame(ctx, id, func(g *domain.Game) error {
			if g.Status == domain.StatusWaiting {
				if err := g.Start(base); err != nil {
					return err
				}
			}
			for g.Status != domain.StatusFinished {
				if _, err := g.Advance(at, domain.TransitionPolicy{}); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			t.Fatalf("finish %s: %v", id, err)
		}
	}

	for i, id := range []string{"h1", "h2", "h3"} {
		g, p := HostedGame(id, "host")
		if err := store.CreateGame(ctx, g, p); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		if i < 2 {
			finish(id, base.Add(time.Duration(i+1)*time.Minute))
		}
	}
	solo, ps := soloGame("s1")
	if err := store.CreateGame(ctx, solo, ps); err != nil {
		t.Fatalf("create solo: %v", err)
	}
	finish("s1", base.Add(10*time.Minute))

	hosted, err := store.ListFinished(ctx, domain.KindHosted, 0)
	if err != nil {
		t.Fatalf("list finished: %v", err)
	}
	if len(hosted) != 2 || hosted[0].ID != "h2" || hosted[1].ID != "h1" {
		t.Fatalf("expected h2,h1 got %+v", ids(hosted))
	}
	latest, _ := store.ListFinished(ctx, domain.KindHosted, 1)
	if len(latest) != 1 || latest[0].ID != "h2" {
		t.Fatalf("expected only h2, got %v", ids(latest))
	}
	solos, _ := store.ListFinished(ctx, domain.KindSolo, 0)
	if len(solos) != 1 || solos[0].ID != "s1" {
		t.Fatalf("expected s1, got %v", ids(solos))
	}

	// equal finish times order by id, highest first
	for _, id := range []string{"s3", "s2"} {
		g, p := soloGame(id)
		if err := store.CreateGame(ctx, g, p); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		finish(id, base.Add(20*time.Minute))
	}
	for i := 0; i < 10; i++ {
		solos, err := store.ListFinished(ctx, domain.KindSolo, 0)
		if err != nil {
			t.Fatalf("list solos: %v", err)
		}
		if got := fmt.Sprint(ids(solos)); got != "[s3 s2 s1]" {
			t.Fatalf("expected [s3 s2 s1], got %s", got)
		}
	}
}

func testListParticipations(t *testing.T, store app.GameStore) {
	ctx := context.Background()
	g1, p1 := HostedGame("g1", "alice")
	if err := store.CreateGame(ctx, g1, p1); err != nil {
		t.Fatalf("create g1: %v", err)
	}
	if _, err := store.UpdateGame(ctx, "g1", func(g *domain.Game) error { return g.Start(base) }); err != nil {
		t.Fatalf("start g1: %v", err)
	}
	g2, p2 := HostedGame("g2", "bob")
	if err := store.CreateGame(ctx, g2, p2); err != nil {
		t.Fatalf("create g2: %v", err)
	}
	if _, err := store.UpdateParticipant(ctx, "g2", "alice", func(_ domain.Game, p *domain.Participant) error {
		p.ID = "g2-alice"
		p.Identity = "alice"
		p.Name = "alice"
		return nil
	}); err != nil {
		t.Fatalf("join g2: %v", err)
	}

	got, err := store.ListParticipations(ctx, "alice")
	if err != nil {
		t.Fatalf("participations: %v", err)
	}
	games := map[string]bool{}
	for _, p := range got {
		games[p.GameID] = true
	}
	if len(got) != 2 || !games["g1"] || !games["g2"] {
		t.Fatalf("expected alice in g1 and g2, got %+v", got)
	}
	none, _ := store.ListParticipations(ctx, "nobody")
	if len(none) != 0 {
		t.Fatalf("expected no participations, got %d", len(none))
	}
}

func ids(games []domain.Game) []string {
	out := make([]string, len(games))
	for i, g := range games {
		out[i] = g.ID
	}
	return out
}
