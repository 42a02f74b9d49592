package app

import (
	"context"
	"errors"

	"trivia-service/internal/domain"
)

// GameLeaderboard ranks the participants of one game.
func (s *GameService) GameLeaderboard(ctx context.Context, gameID string) (domain.Leaderboard, error) {
	if _, err := s.games.GetGame(ctx, gameID); err != nil {
		return domain.Leaderboard{}, err
	}
	participants, err := s.games.ListParticipants(ctx, gameID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{
		GameID:    gameID,
		Entries:   domain.RankParticipants(participants),
		UpdatedAt: s.now(),
	}, nil
}

// RecentLeaderboard ranks the most recently finished hosted game. ok is false
// when no hosted game has finished yet.
func (s *GameService) RecentLeaderboard(ctx context.Context) (domain.Leaderboard, bool, error) {
	games, err := s.games.ListFinished(ctx, domain.KindHosted, 1)
	if err != nil {
		return domain.Leaderboard{}, false, err
	}
	if len(games) == 0 {
		return domain.Leaderboard{}, false, nil
	}
	lb, err := s.GameLeaderboard(ctx, games[0].ID)
	if err != nil {
		return domain.Leaderboard{}, false, err
	}
	return lb, true, nil
}

// SoloLeaderboard ranks every player of every finished solo game. Ties go to the
// player whose game finished first.
func (s *GameService) SoloLeaderboard(ctx context.Context) (domain.Leaderboard, bool, error) {
	games, err := s.games.ListFinished(ctx, domain.KindSolo, 0)
	if err != nil {
		return domain.Leaderboard{}, false, err
	}
	var all []domain.Participant
	for i := len(games) - 1; i >= 0; i-- {
		participants, err := s.games.ListParticipants(ctx, games[i].ID)
		if errors.Is(err, domain.ErrGameNotFound) {
			continue
		}
		if err != nil {
			return domain.Leaderboard{}, false, err
		}
		all = append(all, participants...)
	}
	if len(all) == 0 {
		return domain.Leaderboard{}, false, nil
	}
	return domain.Leaderboard{
		Entries:   domain.RankParticipants(all),
		UpdatedAt: s.now(),
	}, true, nil
}
