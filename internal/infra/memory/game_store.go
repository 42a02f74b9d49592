package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"trivia-service/internal/domain"
)

// GameStore is an in-memory implementation of app.GameStore. A single lock makes
// every read-modify-write atomic.
type GameStore struct {
	mu           sync.RWMutex
	games        map[string]domain.Game
	participants map[string][]domain.Participant
	lobby        string
}

func NewGameStore() *GameStore {
	return &GameStore{
		games:        make(map[string]domain.Game),
		participants: make(map[string][]domain.Participant),
	}
}

func (s *GameStore) CreateGame(_ context.Context, game domain.Game, first domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[game.ID]; ok {
		return fmt.Errorf("%w: game %s already exists", domain.ErrConflict, game.ID)
	}
	if game.IsLobby() {
		if s.lobby != "" {
			return domain.ErrLobbyTaken
		}
		s.lobby = game.ID
	}
	s.games[game.ID] = cloneGame(game)
	s.participants[game.ID] = []domain.Participant{cloneParticipant(first)}
	return nil
}

func (s *GameStore) GetGame(_ context.Context, gameID string) (domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[gameID]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return cloneGame(game), nil
}

func (s *GameStore) UpdateGame(_ context.Context, gameID string, fn func(*domain.Game) error) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.games[gameID]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	next := cloneGame(current)
	if err := fn(&next); err != nil {
		if errors.Is(err, domain.ErrUnchanged) {
			return cloneGame(current), nil
		}
		return domain.Game{}, err
	}
	next.ID = current.ID
	next.Version = current.Version + 1
	if s.lobby == gameID && !next.IsLobby() {
		s.lobby = ""
	}
	s.games[gameID] = next
	return cloneGame(next), nil
}

func (s *GameStore) UpdateParticipant(_ context.Context, gameID, key string, fn func(domain.Game, *domain.Participant) error) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[gameID]
	if !ok {
		return domain.Participant{}, domain.ErrGameNotFound
	}

	idx := -1
	current := domain.Participant{GameID: gameID, Key: key}
	for i, p := range s.participants[gameID] {
		if p.Key == key {
			idx = i
			current = p
			break
		}
	}

	next := cloneParticipant(current)
	if err := fn(cloneGame(game), &next); err != nil {
		if errors.Is(err, domain.ErrUnchanged) {
			return cloneParticipant(current), nil
		}
		return domain.Participant{}, err
	}
	next.GameID = gameID
	next.Key = key
	next.Version = current.Version + 1
	if idx >= 0 {
		next.ID = current.ID
		s.participants[gameID][idx] = next
	} else {
		s.participants[gameID] = append(s.participants[gameID], next)
	}
	return cloneParticipant(next), nil
}

func (s *GameStore) ListParticipants(_ context.Context, gameID string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.participants[gameID]
	out := make([]domain.Participant, 0, len(stored))
	for _, p := range stored {
		out = append(out, cloneParticipant(p))
	}
	return out, nil
}

func (s *GameStore) FindLobby(_ context.Context) (domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lobby == "" {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return cloneGame(s.games[s.lobby]), nil
}

func (s *GameStore) ListFinished(_ context.Context, kind domain.Kind, limit int) ([]domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Game
	for _, g := range s.games {
		if g.Kind == kind && g.Status == domain.StatusFinished {
			out = append(out, cloneGame(g))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		fi, fj := finishedAt(out[i]), finishedAt(out[j])
		if !fi.Equal(fj) {
			return fi.After(fj)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *GameStore) ListParticipations(_ context.Context, identity string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Participant
	for _, participants := range s.participants {
		for _, p := range participants {
			if p.Identity != "" && p.Identity == identity {
				out = append(out, cloneParticipant(p))
			}
		}
	}
	return out, nil
}

func cloneGame(g domain.Game) domain.Game {
	g.QuestionIDs = append([]string(nil), g.QuestionIDs...)
	return g
}

func cloneParticipant(p domain.Participant) domain.Participant {
	p.Answers = append([]domain.Answer{}, p.Answers...)
	return p
}

func finishedAt(g domain.Game) time.Time {
	if g.FinishedAt == nil {
		return time.Time{}
	}
	return *g.FinishedAt
}
