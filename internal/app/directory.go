package app

import (
	"context"
	"errors"
	"sort"

	"trivia-service/internal/domain"
)

// EnsureOutcome says how the matchmaker placed a player.
type EnsureOutcome string

const (
	OutcomeJoined  EnsureOutcome = "joined"
	OutcomeCreated EnsureOutcome = "created"
	// OutcomeWaiting means there is no lobby and the caller may not open one.
	OutcomeWaiting EnsureOutcome = "waiting"
)

// EnsureResult is the matchmaker's answer.
type EnsureResult struct {
	Outcome EnsureOutcome `json:"outcome"`
	Game    *domain.Game  `json:"game,omitempty"`
}

// ensureAttempts bounds how often the matchmaker chases a lobby that changed under it.
const ensureAttempts = 3

// FindJoinable returns the waiting hosted game, if there is one.
func (s *GameService) FindJoinable(ctx context.Context) (domain.Game, bool, error) {
	game, err := s.games.FindLobby(ctx)
	if errors.Is(err, domain.ErrGameNotFound) {
		return domain.Game{}, false, nil
	}
	if err != nil {
		return domain.Game{}, false, err
	}
	return game, true, nil
}

// EnsureGame joins the lobby if one exists, opens one if the caller may host, and
// otherwise tells the caller to wait.
func (s *GameService) EnsureGame(ctx context.Context, who domain.Identity) (EnsureResult, error) {
	if who.Anonymous() {
		return EnsureResult{}, domain.ErrUnauthenticated
	}
	for attempt := 0; attempt < ensureAttempts; attempt++ {
		lobby, ok, err := s.FindJoinable(ctx)
		if err != nil {
			return EnsureResult{}, err
		}
		if ok {
			_, err := s.JoinGame(ctx, lobby.ID, who)
			if errors.Is(err, domain.ErrNotJoinable) {
				continue
			}
			if err != nil {
				return EnsureResult{}, err
			}
			return EnsureResult{Outcome: OutcomeJoined, Game: &lobby}, nil
		}
		if !s.CanHost(who) {
			return EnsureResult{Outcome: OutcomeWaiting}, nil
		}
		game, err := s.CreateGame(ctx, who)
		if errors.Is(err, domain.ErrLobbyTaken) {
			continue
		}
		if err != nil {
			return EnsureResult{}, err
		}
		return EnsureResult{Outcome: OutcomeCreated, Game: &game}, nil
	}
	return EnsureResult{}, domain.ErrConflict
}

// CurrentGame returns the waiting or in-progress game the identity takes part in.
func (s *GameService) CurrentGame(ctx context.Context, who domain.Identity) (domain.Game, bool, error) {
	if who.Anonymous() {
		return domain.Game{}, false, domain.ErrUnauthenticated
	}
	participations, err := s.games.ListParticipations(ctx, who.ID)
	if err != nil {
		return domain.Game{}, false, err
	}
	for _, p := range participations {
		game, err := s.games.GetGame(ctx, p.GameID)
		if errors.Is(err, domain.ErrGameNotFound) {
			continue
		}
		if err != nil {
			return domain.Game{}, false, err
		}
		if game.Status == domain.StatusWaiting || game.Status == domain.StatusInProgress {
			return game, true, nil
		}
	}
	return domain.Game{}, false, nil
}

// History lists the identity's participations, newest first.
func (s *GameService) History(ctx context.Context, who domain.Identity) ([]domain.Participant, error) {
	if who.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}
	participations, err := s.games.ListParticipations(ctx, who.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(participations, func(i, j int) bool {
		return participations[i].JoinedAt.After(participations[j].JoinedAt)
	})
	return participations, nil
}
