package app

import (
	"context"

	"trivia-service/internal/domain"
	"trivia-service/internal/metrics"

	"github.com/google/uuid"
)

// CreateSoloGame starts a single-player game for an anonymous player with a
// generated name. Solo games have no host and begin immediately.
func (s *GameService) CreateSoloGame(ctx context.Context) (domain.Game, domain.Participant, error) {
	questions, err := s.questions.Sample(ctx, s.settings.SoloQuestionCount)
	if err != nil {
		return domain.Game{}, domain.Participant{}, err
	}
	if len(questions) == 0 {
		return domain.Game{}, domain.Participant{}, domain.ErrNoQuestions
	}

	now := s.now()
	game := domain.NewGame(uuid.NewString(), domain.KindSolo, "", domain.QuestionIDs(questions),
		s.settings.SoloAnswerSeconds, s.settings.ReviewSeconds, now)
	if err := game.Start(now); err != nil {
		return domain.Game{}, domain.Participant{}, err
	}
	game.Version = 1
	player := newParticipant(game.ID, "anon-"+uuid.NewString(), "", s.anonymousName(), now)
	player.Version = 1

	if err := s.games.CreateGame(ctx, game, player); err != nil {
		return domain.Game{}, domain.Participant{}, err
	}
	metrics.GamesCreated.WithLabelValues(string(domain.KindSolo)).Inc()
	s.publish(ctx, domain.NewGameEvent(domain.EventGameStarted, game, now))
	return game, player, nil
}

// SubmitSoloAnswer files an answer for the solo game's only player.
func (s *GameService) SubmitSoloAnswer(ctx context.Context, gameID string, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	question, err := s.question(ctx, sub)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	player, err := s.soloPlayer(ctx, gameID)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	var result domain.AnswerResult
	err = retryOnConflict(func() error {
		var err error
		player, err = s.games.UpdateParticipant(ctx, gameID, player.Key, func(g domain.Game, p *domain.Participant) error {
			if !g.IsSolo() {
				return domain.ErrWrongKind
			}
			if !p.Exists() {
				return domain.ErrParticipantNotFound
			}
			return s.fileAnswer(g, p, question, sub, &result)
		})
		return err
	})
	if err != nil {
		return domain.AnswerResult{}, err
	}
	s.afterAnswer(ctx, gameID, player, result)
	return result, nil
}

// AdvanceSoloGame performs one solo transition: with showReview set and the game
// still answering it enters review, otherwise it moves to the next question or
// finishes the game.
func (s *GameService) AdvanceSoloGame(ctx context.Context, gameID string, showReview bool) (AdvanceResult, error) {
	var reviewed bool
	game, err := s.updateGame(ctx, gameID, func(g *domain.Game) error {
		reviewed = false
		if !g.IsSolo() {
			return domain.ErrWrongKind
		}
		if g.Status != domain.StatusInProgress {
			return domain.ErrNotInProgress
		}
		if showReview && !g.InReviewPhase {
			reviewed = true
			return g.EnterReview(s.now(), s.settings.Policy)
		}
		_, err := g.Advance(s.now(), s.settings.Policy)
		return err
	})
	if err != nil {
		return AdvanceResult{}, err
	}
	if reviewed {
		metrics.Transitions.WithLabelValues("review").Inc()
		s.publish(ctx, domain.NewGameEvent(domain.EventReviewStarted, game, s.now()))
	} else {
		s.announceAdvance(ctx, game)
	}
	return advanceResult(game, true), nil
}

func (s *GameService) soloPlayer(ctx context.Context, gameID string) (domain.Participant, error) {
	participants, err := s.games.ListParticipants(ctx, gameID)
	if err != nil {
		return domain.Participant{}, err
	}
	if len(participants) == 0 {
		if _, err := s.games.GetGame(ctx, gameID); err != nil {
			return domain.Participant{}, err
		}
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return participants[0], nil
}
